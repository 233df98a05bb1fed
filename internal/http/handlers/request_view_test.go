package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diagnosis/formrelay/internal/submission"
)

func TestCheckedSemantics(t *testing.T) {
	v := &requestView{values: map[string]string{
		"on": "on", "yes": "yes", "true": "true", "one": "1",
		"off": "off", "false": "false", "zero": "0", "blank": "  ",
	}}

	for _, name := range []string{"on", "yes", "true", "one"} {
		if !v.Checked(name) {
			t.Errorf("Checked(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"off", "false", "zero", "blank", "missing"} {
		if v.Checked(name) {
			t.Errorf("Checked(%q) = true, want false", name)
		}
	}
}

func TestRequestViewKeepsFirstValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=first&name=second"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	v, err := newRequestView(httptest.NewRecorder(), req, 1<<10)
	if err != nil {
		t.Fatalf("newRequestView: %v", err)
	}
	if got := v.Field("name"); got != "first" {
		t.Errorf("Field(name) = %q", got)
	}
}

func TestRequestViewIgnoresQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/?honeypot=x", strings.NewReader("name=Jo"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	v, err := newRequestView(httptest.NewRecorder(), req, 1<<10)
	if err != nil {
		t.Fatalf("newRequestView: %v", err)
	}
	if v.Field("honeypot") != "" {
		t.Error("query string leaked into form fields")
	}
}

func TestShowSuccessResetsFields(t *testing.T) {
	v := &requestView{values: map[string]string{"name": "Jo"}}

	v.ShowSuccess(submission.Success{Message: "ok", ResetFields: true})

	if v.Field("name") != "" || v.success == nil || v.success.Message != "ok" {
		t.Errorf("view = %+v", v)
	}
}
