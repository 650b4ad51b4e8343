package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorrelationID_Minted(t *testing.T) {
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(CorrelationKey).(string)
		if !ok || id == "" {
			t.Error("correlation id missing from context")
		}
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("header missing")
	}
}

func TestCorrelationID_Propagated(t *testing.T) {
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetCorrelationID(r.Context()); got != "caller-id" {
			t.Errorf("expected caller id to be honored, got %q", got)
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Correlation-ID", "caller-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "caller-id" {
		t.Errorf("expected header echo, got %q", got)
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("status not passed through, got %d", w.Code)
	}
}

func TestGetCorrelationID_Missing(t *testing.T) {
	if got := GetCorrelationID(httptest.NewRequest("GET", "/", nil).Context()); got != "unknown" {
		t.Errorf("expected fallback value, got %q", got)
	}
}
