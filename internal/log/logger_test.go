package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFormatCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentForecast, Output: &buf})

	logger.Debug("hidden")
	logger.Info("visible", FieldUserID, "u1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != ComponentForecast {
		t.Errorf("component = %v, want %s", entry["component"], ComponentForecast)
	}
	if entry[FieldUserID] != "u1" {
		t.Errorf("user_id = %v, want u1", entry[FieldUserID])
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithUser("u1").
		WithForecast(3, 330, false).
		WithAnomalies(10, 2).
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldUserID] != "u1" || f[FieldMonths] != 3 || f[FieldAnomalyCount] != 2 {
		t.Errorf("unexpected fields: %v", f)
	}
	if f[FieldError] != "boom" {
		t.Errorf("error field = %v, want boom", f[FieldError])
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}
}

func TestMiddleware_FromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: FormatText, Component: ComponentHTTP, Output: &buf})

	var got *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got == nil {
		t.Fatal("handler did not run")
	}
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("expected request id in output, got %q", buf.String())
	}

	if fallback := FromContext(context.Background()); fallback.Component() != "unknown" {
		t.Errorf("fallback component = %q, want unknown", fallback.Component())
	}
}
