// Package validation checks collected form submissions against a per-form
// rule table. Evaluation stops at the first violated rule.
package validation

import (
	"fmt"

	"github.com/diagnosis/formrelay/internal/domain"
	"github.com/diagnosis/formrelay/internal/utils"
)

// Rule constrains one field. Zero MinLength or MaxLength means unbounded.
type Rule struct {
	Field     string
	Required  bool
	MinLength int
	MaxLength int
	Email     bool
	Message   string
}

// FieldError is the first rule a submission violated.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Options struct {
	// IntakeTextMaxLength caps the intake free-text answers. Zero leaves
	// them unbounded.
	IntakeTextMaxLength int
}

type Validator struct {
	rules map[domain.FormType][]Rule
}

func New(opts Options) *Validator {
	return &Validator{rules: ruleTable(opts)}
}

// Rules returns the rule table for ft in evaluation order.
func (v *Validator) Rules(ft domain.FormType) []Rule {
	out := make([]Rule, len(v.rules[ft]))
	copy(out, v.rules[ft])
	return out
}

// Validate returns nil when s is acceptable, otherwise a *FieldError for the
// first violated rule. It has no side effects.
func (v *Validator) Validate(s domain.Submission) error {
	rules, ok := v.rules[s.FormType()]
	if !ok {
		return fmt.Errorf("validation: unknown form type %q", s.FormType())
	}
	for _, r := range rules {
		if !r.accepts(s.Get(r.Field)) {
			return &FieldError{Field: r.Field, Message: r.Message}
		}
	}
	return nil
}

func (r Rule) accepts(value string) bool {
	if value == "" {
		return !r.Required
	}
	n := utils.CharCount(value)
	if r.MinLength > 0 && n < r.MinLength {
		return false
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		return false
	}
	if r.Email && !utils.IsValidEmail(value) {
		return false
	}
	return true
}
