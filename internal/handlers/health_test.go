package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"RIDESHARE_BACK-END/internal/dto"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func jsonDecode(rec *httptest.ResponseRecorder, out any) error {
	return json.Unmarshal(rec.Body.Bytes(), out)
}

func TestReadinessCheck(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		deps       map[string]Pinger
		wantCode   int
		wantStatus string
	}{
		{"all up", map[string]Pinger{"db": ok, "trips": ok}, http.StatusOK, "ready"},
		{"store down", map[string]Pinger{"db": ok, "trips": down}, http.StatusServiceUnavailable, "degraded"},
		{"no deps", nil, http.StatusOK, "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.deps)
			rec := httptest.NewRecorder()
			h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			var resp dto.HealthResponse
			if err := jsonDecode(rec, &resp); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.wantCode || resp.Status != tt.wantStatus {
				t.Fatalf("got %d %q, want %d %q", rec.Code, resp.Status, tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestLivenessAndHealth(t *testing.T) {
	h := NewHealthHandler(nil)
	for path, fn := range map[string]http.HandlerFunc{"ok": h.HealthCheck, "alive": h.LivenessCheck} {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		var resp dto.HealthResponse
		if err := jsonDecode(rec, &resp); err != nil || resp.Status != path {
			t.Fatalf("status = %q (err %v), want %q", resp.Status, err, path)
		}
	}
}
