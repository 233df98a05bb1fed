package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/formrelay/internal/domain"
	"github.com/diagnosis/formrelay/internal/utils"
	"github.com/diagnosis/formrelay/pkg/events"
	"github.com/diagnosis/formrelay/pkg/logger"
)

// Metrics receives attempt counts and webhook latencies.
type Metrics interface {
	ObserveAttempt(formType, outcome string)
	ObserveDelivery(formType string, elapsed time.Duration)
}

type MetricsRecorder struct {
	metrics Metrics
}

func NewMetricsRecorder(m Metrics) *MetricsRecorder {
	return &MetricsRecorder{metrics: m}
}

func (r *MetricsRecorder) Record(_ context.Context, a Attempt) error {
	ft := string(a.FormType)
	r.metrics.ObserveAttempt(ft, a.Result.Outcome())
	if a.Result.State == StateSucceeded || a.Result.State == StateFailed {
		if a.Result.Delivery.Duration > 0 {
			r.metrics.ObserveDelivery(ft, a.Result.Delivery.Duration)
		}
	}
	return nil
}

type Archive interface {
	Insert(ctx context.Context, rec *domain.ArchivedSubmission) error
}

// ArchiveRecorder keeps every attempt that reached the webhook.
type ArchiveRecorder struct {
	archive Archive
}

func NewArchiveRecorder(a Archive) *ArchiveRecorder {
	return &ArchiveRecorder{archive: a}
}

func (r *ArchiveRecorder) Record(ctx context.Context, a Attempt) error {
	if a.Result.State != StateSucceeded && a.Result.State != StateFailed {
		return nil
	}
	payload, err := json.Marshal(a.Result.Submission)
	if err != nil {
		return fmt.Errorf("archive: encode payload: %w", err)
	}
	rec := &domain.ArchivedSubmission{
		ID:         a.ID,
		FormType:   a.FormType,
		Outcome:    a.Result.Outcome(),
		StatusCode: a.Result.Delivery.StatusCode,
		Email:      a.Result.Submission.Get(domain.FieldEmail),
		Payload:    payload,
		CreatedAt:  a.At,
	}
	if a.Result.Err != nil {
		rec.Error = a.Result.Err.Error()
	}
	if err := r.archive.Insert(ctx, rec); err != nil {
		return fmt.Errorf("archive: insert %s: %w", a.ID, err)
	}
	return nil
}

type EventRecorder struct {
	publisher events.Publisher
}

func NewEventRecorder(p events.Publisher) *EventRecorder {
	return &EventRecorder{publisher: p}
}

func (r *EventRecorder) Record(ctx context.Context, a Attempt) error {
	switch a.Result.State {
	case StateSucceeded:
		return r.publisher.Publish(ctx, events.FormSubmitted, events.FormSubmittedEvent{
			AttemptID:   a.ID.String(),
			FormType:    string(a.FormType),
			Name:        a.Result.Submission.Get(domain.FieldName),
			Email:       a.Result.Submission.Get(domain.FieldEmail),
			StatusCode:  a.Result.Delivery.StatusCode,
			SubmittedAt: a.At,
		})
	case StateFailed:
		errMsg := ""
		if a.Result.Err != nil {
			errMsg = a.Result.Err.Error()
		}
		return r.publisher.Publish(ctx, events.FormFailed, events.FormFailedEvent{
			AttemptID: a.ID.String(),
			FormType:  string(a.FormType),
			Email:     a.Result.Submission.Get(domain.FieldEmail),
			Error:     errMsg,
			FailedAt:  a.At,
		})
	}
	return nil
}

// Mailer is the part of the mail service the notifier needs.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error)
}

// NotifyRecorder mails the site owner a copy of each delivered submission.
// Mail goes out in the background; Wait blocks until queued mail is sent.
type NotifyRecorder struct {
	mailer Mailer
	to     string
	wg     sync.WaitGroup
}

func NewNotifyRecorder(m Mailer, to string) *NotifyRecorder {
	return &NotifyRecorder{mailer: m, to: to}
}

func (r *NotifyRecorder) Record(ctx context.Context, a Attempt) error {
	if a.Result.State != StateSucceeded || r.to == "" {
		return nil
	}
	subject, text, body := noticeContent(a)
	ctx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.mailer.Send(ctx, r.to, "", subject, text, body); err != nil {
			logger.ErrorContext(ctx, "Failed to send submission notice", "error", err, "attempt_id", a.ID)
		}
	}()
	return nil
}

func (r *NotifyRecorder) Wait() {
	r.wg.Wait()
}

func noticeContent(a Attempt) (subject, text, body string) {
	sub := a.Result.Submission
	subject = fmt.Sprintf("New %s form from %s", a.FormType, sub.Get(domain.FieldName))

	var tb, hb strings.Builder
	hb.WriteString("<table>")
	for _, f := range a.FormType.Fields() {
		v := sub.Get(f)
		if v == "" {
			continue
		}
		fmt.Fprintf(&tb, "%s: %s\n", f, v)
		fmt.Fprintf(&hb, "<tr><th align=\"left\">%s</th><td>%s</td></tr>",
			html.EscapeString(f), strings.ReplaceAll(html.EscapeString(v), "\n", "<br>"))
	}
	hb.WriteString("</table>")
	return subject, tb.String(), utils.SafeNoticeHTML(hb.String())
}
