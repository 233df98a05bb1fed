package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/diagnosis/formrelay/internal/domain"
	"github.com/diagnosis/formrelay/internal/validation"
)

func validContact() map[string]string {
	return map[string]string{
		"name":    "Jo Lee",
		"email":   "jo@example.com",
		"message": "Hello there, I need help.",
	}
}

func validIntake() map[string]string {
	return map[string]string{
		"name":             "Ana Ruiz",
		"email":            "ana@example.org",
		"serviceInterest":  "coaching",
		"bringsYouHere":    "Looking for a reset after a long year.",
		"hopeToAchieve":    "Better sleep and fewer headaches.",
		"biggestChallenge": "Finding time for myself.",
		"startTimeline":    "asap",
		"bestTime":         "morning",
		"contactMethod":    "email",
	}
}

func with(base map[string]string, field, value string) map[string]string {
	out := make(map[string]string, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[field] = value
	return out
}

func fieldError(t *testing.T, err error) *validation.FieldError {
	t.Helper()
	var fe *validation.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FieldError", err)
	}
	return fe
}

func TestValidAccepted(t *testing.T) {
	v := validation.New(validation.Options{})
	if err := v.Validate(domain.NewSubmission(domain.FormContact, validContact())); err != nil {
		t.Errorf("contact: %v", err)
	}
	if err := v.Validate(domain.NewSubmission(domain.FormIntake, validIntake())); err != nil {
		t.Errorf("intake: %v", err)
	}
}

func TestShortNameRejected(t *testing.T) {
	v := validation.New(validation.Options{})
	for _, ft := range []domain.FormType{domain.FormContact, domain.FormIntake} {
		base := validContact()
		if ft == domain.FormIntake {
			base = validIntake()
		}
		for _, name := range []string{"", "J", "é"} {
			err := v.Validate(domain.NewSubmission(ft, with(base, "name", name)))
			fe := fieldError(t, err)
			if fe.Field != domain.FieldName || fe.Message != validation.MsgName {
				t.Errorf("%s name=%q: got %+v", ft, name, fe)
			}
		}
	}
}

func TestBadEmailRejected(t *testing.T) {
	v := validation.New(validation.Options{})
	for _, email := range []string{"", "jo", "jo@example", "jo @example.com", "@example.com"} {
		err := v.Validate(domain.NewSubmission(domain.FormContact, with(validContact(), "email", email)))
		fe := fieldError(t, err)
		if fe.Field != domain.FieldEmail || fe.Message != validation.MsgEmail {
			t.Errorf("email=%q: got %+v", email, fe)
		}
	}
}

func TestContactMessageBounds(t *testing.T) {
	v := validation.New(validation.Options{})
	tests := []struct {
		length int
		ok     bool
	}{
		{0, false}, {9, false}, {10, true}, {1000, true}, {1001, false},
	}
	for _, tt := range tests {
		s := domain.NewSubmission(domain.FormContact, with(validContact(), "message", strings.Repeat("a", tt.length)))
		err := v.Validate(s)
		if tt.ok && err != nil {
			t.Errorf("len %d: unexpected %v", tt.length, err)
		}
		if !tt.ok {
			if fe := fieldError(t, err); fe.Message != validation.MsgMessage {
				t.Errorf("len %d: got %+v", tt.length, fe)
			}
		}
	}
}

func TestIntakeShortAnswer(t *testing.T) {
	v := validation.New(validation.Options{})
	err := v.Validate(domain.NewSubmission(domain.FormIntake, with(validIntake(), "bringsYouHere", "short")))
	fe := fieldError(t, err)
	want := &validation.FieldError{Field: domain.FieldBringsYouHere, Message: validation.MsgBringsYouHere}
	if diff := cmp.Diff(want, fe); diff != "" {
		t.Fatalf("field error mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(fe.Message, "at least 10 characters") {
		t.Errorf("message %q does not mention the minimum", fe.Message)
	}
}

func TestIntakeChoicesRequired(t *testing.T) {
	v := validation.New(validation.Options{})
	for _, field := range []string{"serviceInterest", "startTimeline", "bestTime", "contactMethod"} {
		err := v.Validate(domain.NewSubmission(domain.FormIntake, with(validIntake(), field, "")))
		if fe := fieldError(t, err); fe.Field != field {
			t.Errorf("empty %s: got field %s", field, fe.Field)
		}
	}
	// Optional intake fields stay optional.
	s := domain.NewSubmission(domain.FormIntake, with(with(validIntake(), "phone", ""), "notes", ""))
	if err := v.Validate(s); err != nil {
		t.Errorf("optional fields: %v", err)
	}
}

func TestFirstFailureWins(t *testing.T) {
	v := validation.New(validation.Options{})
	in := with(with(validIntake(), "email", "nope"), "hopeToAchieve", "")
	fe := fieldError(t, v.Validate(domain.NewSubmission(domain.FormIntake, in)))
	if fe.Field != domain.FieldEmail {
		t.Errorf("first failure = %s, want email", fe.Field)
	}
}

func TestIntakeLongAnswers(t *testing.T) {
	long := strings.Repeat("x", 5000)
	in := with(validIntake(), "biggestChallenge", long)

	if err := validation.New(validation.Options{}).Validate(domain.NewSubmission(domain.FormIntake, in)); err != nil {
		t.Errorf("unbounded intake rejected long answer: %v", err)
	}
	capped := validation.New(validation.Options{IntakeTextMaxLength: 2000})
	fe := fieldError(t, capped.Validate(domain.NewSubmission(domain.FormIntake, in)))
	if fe.Field != domain.FieldBiggestChallenge {
		t.Errorf("capped: got %+v", fe)
	}
}

func TestValidateIsPure(t *testing.T) {
	v := validation.New(validation.Options{})
	inputs := []domain.Submission{
		domain.NewSubmission(domain.FormContact, validContact()),
		domain.NewSubmission(domain.FormContact, with(validContact(), "name", "J")),
		domain.NewSubmission(domain.FormIntake, with(validIntake(), "bestTime", "")),
	}
	for _, s := range inputs {
		first, second := v.Validate(s), v.Validate(s)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("repeat validation differs (-first +second):\n%s", diff)
		}
	}
}

func TestUnknownFormType(t *testing.T) {
	v := validation.New(validation.Options{})
	err := v.Validate(domain.NewSubmission("survey", nil))
	if err == nil {
		t.Fatal("want error for unknown form type")
	}
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		t.Errorf("unknown form type should not be a field error: %v", err)
	}
}
