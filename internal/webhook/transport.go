// Package webhook posts accepted submissions to the fixed automation endpoint.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/diagnosis/formrelay/pkg/config"
)

// ErrStatus is returned in strict mode when the endpoint answers non-2xx.
var ErrStatus = errors.New("webhook: endpoint rejected submission")

// Delivery describes one completed POST.
type Delivery struct {
	StatusCode int
	Duration   time.Duration
	// Acknowledged is false when the endpoint answered non-2xx but the
	// transport runs in opaque mode and reported success anyway.
	Acknowledged bool
}

type HTTPTransport struct {
	url       string
	client    *http.Client
	ackMode   string
	userAgent string
}

// NewHTTPTransport builds a transport for cfg. A nil client gets one with
// cfg.Timeout.
func NewHTTPTransport(cfg config.WebhookConfig, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	mode := cfg.AckMode
	if mode == "" {
		mode = config.AckOpaque
	}
	return &HTTPTransport{
		url:       cfg.URL,
		client:    client,
		ackMode:   mode,
		userAgent: cfg.UserAgent,
	}
}

// Deliver makes exactly one POST of payload. It does not retry.
func (t *HTTPTransport) Deliver(ctx context.Context, payload []byte) (Delivery, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return Delivery{}, fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Delivery{Duration: time.Since(start)}, fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()
	// Drain a little so the connection can be reused; the body is never interpreted.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	d := Delivery{
		StatusCode:   resp.StatusCode,
		Duration:     time.Since(start),
		Acknowledged: resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if !d.Acknowledged && t.ackMode == config.AckStrict {
		return d, fmt.Errorf("%w: status %d", ErrStatus, resp.StatusCode)
	}
	return d, nil
}
