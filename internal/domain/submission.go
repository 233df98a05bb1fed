package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type FormType string

const (
	FormContact FormType = "contact"
	FormIntake  FormType = "intake"
)

func ParseFormType(s string) (FormType, bool) {
	switch FormType(s) {
	case FormContact, FormIntake:
		return FormType(s), true
	default:
		return "", false
	}
}

// Field names shared by the browser forms and the webhook payload.
const (
	FieldName             = "name"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldMessage          = "message"
	FieldServiceInterest  = "serviceInterest"
	FieldBringsYouHere    = "bringsYouHere"
	FieldHopeToAchieve    = "hopeToAchieve"
	FieldBiggestChallenge = "biggestChallenge"
	FieldStartTimeline    = "startTimeline"
	FieldBestTime         = "bestTime"
	FieldContactMethod    = "contactMethod"
	FieldHowHeard         = "howHeard"
	FieldNotes            = "notes"

	// Control fields read from the form but never forwarded.
	FieldHoneypot = "honeypot"
	FieldConsent  = "consent"
)

var formFields = map[FormType][]string{
	FormContact: {FieldName, FieldEmail, FieldMessage},
	FormIntake: {
		FieldName, FieldEmail, FieldPhone,
		FieldServiceInterest, FieldBringsYouHere, FieldHopeToAchieve, FieldBiggestChallenge,
		FieldStartTimeline, FieldBestTime, FieldContactMethod,
		FieldHowHeard, FieldNotes,
	},
}

// Fields returns the payload field names of the form in wire order.
func (ft FormType) Fields() []string {
	fields := formFields[ft]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// RequiresConsent reports whether the form carries a consent checkbox.
func (ft FormType) RequiresConsent() bool {
	return ft == FormIntake
}

// Submission is one collected form. It is immutable once built.
type Submission struct {
	formType FormType
	values   map[string]string
}

// NewSubmission keeps only the fields that belong to ft.
func NewSubmission(ft FormType, values map[string]string) Submission {
	kept := make(map[string]string, len(formFields[ft]))
	for _, f := range formFields[ft] {
		kept[f] = values[f]
	}
	return Submission{formType: ft, values: kept}
}

func (s Submission) FormType() FormType { return s.formType }

// Get returns the value of a field, or "" when the form has no such field.
func (s Submission) Get(field string) string {
	return s.values[field]
}

// Values returns a copy of the field values.
func (s Submission) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes formType first, then the form's fields in wire order.
func (s Submission) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"formType":`)
	ft, err := json.Marshal(string(s.formType))
	if err != nil {
		return nil, err
	}
	buf.Write(ft)
	for _, f := range formFields[s.formType] {
		key, _ := json.Marshal(f)
		val, err := json.Marshal(s.values[f])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", f, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
