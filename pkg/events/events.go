package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/formrelay/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name("formrelay"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "bytes", len(payload))

	return n.conn.Publish(subject, payload)
}

// Close flushes pending messages before closing the connection.
func (n *NATSEventBus) Close() error {
	err := n.conn.Flush()
	n.conn.Close()
	return err
}

// NopBus drops every event. Used when events are disabled.
type NopBus struct{}

func (NopBus) Publish(context.Context, string, interface{}) error { return nil }
func (NopBus) Close() error                                       { return nil }

// Event subjects
const (
	FormSubmitted = "form.submitted"
	FormFailed    = "form.failed"
)

// FormSubmittedEvent carries contact details only; the full answers stay
// with the webhook and the archive.
type FormSubmittedEvent struct {
	AttemptID   string    `json:"attempt_id"`
	FormType    string    `json:"form_type"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	StatusCode  int       `json:"status_code"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type FormFailedEvent struct {
	AttemptID string    `json:"attempt_id"`
	FormType  string    `json:"form_type"`
	Email     string    `json:"email"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
}
