// Package submission runs one form submission attempt: spam and consent
// checks, cooldown, validation, webhook delivery and the resulting form state.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/formrelay/internal/cooldown"
	"github.com/diagnosis/formrelay/internal/domain"
	"github.com/diagnosis/formrelay/internal/utils"
	"github.com/diagnosis/formrelay/internal/validation"
	"github.com/diagnosis/formrelay/internal/webhook"
	"github.com/diagnosis/formrelay/pkg/logger"
)

type Validator interface {
	Validate(s domain.Submission) error
}

type Transport interface {
	Deliver(ctx context.Context, payload []byte) (webhook.Delivery, error)
}

// Recorder observes finished attempts. Errors are logged and never change
// the attempt's result.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

type Config struct {
	FormType      domain.FormType
	Validator     Validator
	Transport     Transport
	Cooldown      *cooldown.Limiter
	Recorders     []Recorder
	BookingURL    string
	FallbackEmail string
	PhoneRegion   string
	Clock         func() time.Time
}

type Controller struct {
	formType      domain.FormType
	validator     Validator
	transport     Transport
	cooldown      *cooldown.Limiter
	recorders     []Recorder
	bookingURL    string
	fallbackEmail string
	phoneRegion   string
	now           func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		formType:      cfg.FormType,
		validator:     cfg.Validator,
		transport:     cfg.Transport,
		cooldown:      cfg.Cooldown,
		recorders:     cfg.Recorders,
		bookingURL:    cfg.BookingURL,
		fallbackEmail: cfg.FallbackEmail,
		phoneRegion:   cfg.PhoneRegion,
		now:           clock,
		inflight:      make(map[string]struct{}),
	}
}

func (c *Controller) FormType() domain.FormType { return c.formType }

// Submit runs one attempt for client against view. client keys the cooldown;
// every attempt from the same client shares it.
func (c *Controller) Submit(ctx context.Context, client string, view FormView) Result {
	ctx = logger.With(ctx, logger.FormTypeKey, string(c.formType))
	res := c.run(ctx, client, view)
	c.record(ctx, client, res)
	return res
}

func (c *Controller) run(ctx context.Context, client string, view FormView) Result {
	logger.DebugContext(ctx, "Submission checking")

	// A filled honeypot ends the attempt without telling the sender anything.
	if view.Field(domain.FieldHoneypot) != "" {
		logger.InfoContext(ctx, "Honeypot filled, dropping submission")
		return Result{State: StateIdle, Reason: ReasonHoneypot}
	}

	if c.formType.RequiresConsent() && !view.Checked(domain.FieldConsent) {
		return c.refuse(view, ReasonConsent, MsgConsent, "")
	}

	if !c.acquire(client) {
		return c.refuse(view, ReasonRateLimited, MsgRateLimited, "")
	}
	defer c.release(client)

	if c.cooldown != nil && !c.cooldown.Allow(ctx, client) {
		return c.refuse(view, ReasonRateLimited, MsgRateLimited, "")
	}

	sub := c.collect(view)
	if err := c.validator.Validate(sub); err != nil {
		var fe *validation.FieldError
		if errors.As(err, &fe) {
			res := c.refuse(view, ReasonInvalid, fe.Message, fe.Field)
			res.Submission = sub
			return res
		}
		return c.fail(ctx, view, sub, webhook.Delivery{}, err)
	}

	logger.DebugContext(ctx, "Submission submitting")
	view.SetBusy(true)

	payload, err := json.Marshal(sub)
	if err != nil {
		return c.fail(ctx, view, sub, webhook.Delivery{}, fmt.Errorf("encode submission: %w", err))
	}

	// Once issued the call runs to completion, even if the sender goes away.
	delivery, err := c.transport.Deliver(context.WithoutCancel(ctx), payload)
	if err != nil {
		return c.fail(ctx, view, sub, delivery, err)
	}
	if !delivery.Acknowledged {
		logger.WarnContext(ctx, "Webhook answered non-2xx, reporting success",
			"status", delivery.StatusCode)
	}

	if c.cooldown != nil {
		c.cooldown.Record(ctx, client)
	}
	success := c.Success()
	if success.ResetFields {
		view.SetBusy(false)
	}
	view.ShowSuccess(success)

	logger.InfoContext(ctx, "Submission delivered",
		"status", delivery.StatusCode,
		"elapsed_ms", delivery.Duration.Milliseconds(),
	)
	return Result{
		State:      StateSucceeded,
		Message:    success.Message,
		Submission: sub,
		Delivery:   delivery,
	}
}

// collect builds the submission from the view. Values are forwarded as typed
// apart from surrounding whitespace; phone numbers are normalized.
func (c *Controller) collect(view FormView) domain.Submission {
	values := make(map[string]string)
	for _, f := range c.formType.Fields() {
		v := utils.NormalizeString(view.Field(f))
		if f == domain.FieldPhone {
			v = utils.NormalizePhone(v, c.phoneRegion)
		}
		values[f] = v
	}
	return domain.NewSubmission(c.formType, values)
}

// Success is what the form shows after an accepted submission.
func (c *Controller) Success() Success {
	if c.formType == domain.FormIntake {
		return Success{Message: MsgIntakeSent, RedirectURL: c.bookingURL, HideForm: true}
	}
	return Success{Message: MsgContactSent, ResetFields: true}
}

func (c *Controller) refuse(view FormView, reason Reason, msg, field string) Result {
	view.ShowError(msg)
	return Result{State: StateIdle, Reason: reason, Message: msg, Field: field}
}

func (c *Controller) fail(ctx context.Context, view FormView, sub domain.Submission, d webhook.Delivery, err error) Result {
	logger.ErrorContext(ctx, "Submission failed", "error", err)
	msg := fmt.Sprintf("There was a problem. Please email us at %s", c.fallbackEmail)
	view.SetBusy(false)
	view.ShowError(msg)
	return Result{
		State:      StateFailed,
		Reason:     ReasonTransport,
		Message:    msg,
		Submission: sub,
		Delivery:   d,
		Err:        err,
	}
}

// acquire marks client as submitting. It fails while an earlier attempt from
// the same client is still in flight.
func (c *Controller) acquire(client string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[client]; busy {
		return false
	}
	c.inflight[client] = struct{}{}
	return true
}

func (c *Controller) release(client string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, client)
}

func (c *Controller) record(ctx context.Context, client string, res Result) {
	if len(c.recorders) == 0 {
		return
	}
	a := Attempt{
		ID:       uuid.New(),
		FormType: c.formType,
		Client:   client,
		At:       c.now(),
		Result:   res,
	}
	for _, r := range c.recorders {
		if err := r.Record(ctx, a); err != nil {
			logger.WarnContext(ctx, "Recorder failed", "error", err, "attempt_id", a.ID)
		}
	}
}
