package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyz(t *testing.T) {
	healthy := ReadyCheck{Name: "kv", Check: func(context.Context) error { return nil }}
	broken := ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("dial refused") }}

	mux := NewBaseMuxWithReady(healthy)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	mux = NewBaseMuxWithReady(healthy, broken, ReadyCheck{Name: "nil"})
	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "dial refused") {
		t.Fatalf("expected failure reason in body, got %s", rw.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	rw := httptest.NewRecorder()
	NewBaseMuxWithReady().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK || rw.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rw.Code, rw.Body.String())
	}
}
