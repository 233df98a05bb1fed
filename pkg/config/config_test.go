package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/exec")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if cfg.Cooldown.Window != 5*time.Second {
		t.Errorf("cooldown window = %v, want 5s", cfg.Cooldown.Window)
	}
	if cfg.Webhook.AckMode != AckOpaque {
		t.Errorf("ack mode = %q, want %q", cfg.Webhook.AckMode, AckOpaque)
	}
	if cfg.Cooldown.Backend != CooldownMemory {
		t.Errorf("cooldown backend = %q, want %q", cfg.Cooldown.Backend, CooldownMemory)
	}
	if cfg.NeedsDatabase() {
		t.Error("default config should not need a database")
	}
	if cfg.Server.TrustProxy {
		t.Error("forwarding headers must not be trusted by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/exec")
	t.Setenv("WEBHOOK_ACK_MODE", "STRICT")
	t.Setenv("COOLDOWN_BACKEND", "postgres")
	t.Setenv("COOLDOWN_WINDOW", "2500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("FORMS_INTAKE_TEXT_MAX_LENGTH", "2000")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if cfg.Webhook.AckMode != AckStrict {
		t.Errorf("ack mode = %q, want %q", cfg.Webhook.AckMode, AckStrict)
	}
	if cfg.Cooldown.Window != 2500*time.Millisecond {
		t.Errorf("cooldown window = %v", cfg.Cooldown.Window)
	}
	if !cfg.NeedsDatabase() {
		t.Error("postgres cooldown should need a database")
	}
	if cfg.Forms.IntakeTextMaxLength != 2000 {
		t.Errorf("intake max = %d, want 2000", cfg.Forms.IntakeTextMaxLength)
	}
	want := []string{"https://a.example", "https://b.example"}
	if diff := cmp.Diff(want, cfg.CORS.AllowedOrigins); diff != "" {
		t.Errorf("origins mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing webhook", map[string]string{"WEBHOOK_URL": ""}},
		{"bad ack mode", map[string]string{"WEBHOOK_URL": "https://x.example", "WEBHOOK_ACK_MODE": "maybe"}},
		{"bad backend", map[string]string{"WEBHOOK_URL": "https://x.example", "COOLDOWN_BACKEND": "memcached"}},
		{"negative intake max", map[string]string{"WEBHOOK_URL": "https://x.example", "FORMS_INTAKE_TEXT_MAX_LENGTH": "-1"}},
		{"negative retention", map[string]string{"WEBHOOK_URL": "https://x.example", "ARCHIVE_RETENTION": "-1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if err := Load().Validate(); err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}
