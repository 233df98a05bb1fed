package submission

import (
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/formrelay/internal/domain"
	"github.com/diagnosis/formrelay/internal/webhook"
)

// State is where an attempt is in Idle, Checking, Submitting, then
// Succeeded or Failed. Attempts refused while Checking end back in Idle.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reason says why an attempt did not succeed.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonHoneypot    Reason = "honeypot"
	ReasonConsent     Reason = "consent"
	ReasonRateLimited Reason = "rate_limited"
	ReasonInvalid     Reason = "invalid"
	ReasonTransport   Reason = "transport"
)

// User-facing messages for refused attempts. Validation messages come from
// the validator.
const (
	MsgConsent     = "Please confirm your consent before submitting."
	MsgRateLimited = "Please wait a moment before submitting again."
	MsgContactSent = "Thank you! Your message has been sent. We'll be in touch soon."
	MsgIntakeSent  = "Thank you! Your next step is to book your free consultation."
)

type Result struct {
	State   State
	Reason  Reason
	Message string
	// Field names the input that failed validation.
	Field      string
	Submission domain.Submission
	Delivery   webhook.Delivery
	Err        error
}

// Outcome is a short label for metrics and the archive.
func (r Result) Outcome() string {
	switch r.State {
	case StateSucceeded:
		return "submitted"
	case StateFailed:
		return "failed"
	}
	if r.Reason == ReasonHoneypot {
		return "spam"
	}
	if r.Reason == ReasonNone {
		return "unknown"
	}
	return string(r.Reason)
}

// Attempt is one finished Submit call, handed to every Recorder.
type Attempt struct {
	ID       uuid.UUID
	FormType domain.FormType
	Client   string
	At       time.Time
	Result   Result
}
