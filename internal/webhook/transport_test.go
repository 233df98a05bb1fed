package webhook_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diagnosis/formrelay/internal/webhook"
	"github.com/diagnosis/formrelay/pkg/config"
)

func TestDeliverPostsJSON(t *testing.T) {
	type seen struct{ body, contentType, agent, method string }
	got := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- seen{string(b), r.Header.Get("Content-Type"), r.UserAgent(), r.Method}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := webhook.NewHTTPTransport(config.WebhookConfig{URL: srv.URL, Timeout: time.Second, UserAgent: "formrelay-test"}, nil)
	d, err := tr.Deliver(context.Background(), []byte(`{"formType":"contact"}`))
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !d.Acknowledged || d.StatusCode != http.StatusOK {
		t.Errorf("delivery = %+v", d)
	}
	req := <-got
	if req.method != http.MethodPost || req.contentType != "application/json" || req.agent != "formrelay-test" {
		t.Errorf("request: %+v", req)
	}
	if req.body != `{"formType":"contact"}` {
		t.Errorf("body = %s", req.body)
	}
}

func TestAckModes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	opaque := webhook.NewHTTPTransport(config.WebhookConfig{URL: srv.URL, AckMode: config.AckOpaque}, nil)
	d, err := opaque.Deliver(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("opaque mode: %v", err)
	}
	if d.Acknowledged || d.StatusCode != http.StatusInternalServerError {
		t.Errorf("opaque delivery = %+v", d)
	}

	strict := webhook.NewHTTPTransport(config.WebhookConfig{URL: srv.URL, AckMode: config.AckStrict}, nil)
	if _, err := strict.Deliver(context.Background(), []byte(`{}`)); !errors.Is(err, webhook.ErrStatus) {
		t.Errorf("strict mode error = %v, want ErrStatus", err)
	}
}

func TestDeliverNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := webhook.NewHTTPTransport(config.WebhookConfig{URL: url, Timeout: time.Second}, nil)
	if _, err := tr.Deliver(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("want error from closed server")
	}
}

func TestDeliverSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := webhook.NewHTTPTransport(config.WebhookConfig{URL: srv.URL, AckMode: config.AckStrict}, nil)
	tr.Deliver(context.Background(), []byte(`{}`))
	if n := calls.Load(); n != 1 {
		t.Errorf("endpoint called %d times, want 1", n)
	}
}
