package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"showings/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantDeps   map[string]string
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]Check{"store": func(ctx context.Context) error { return nil }},
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"store": "ok"},
		},
		{
			name: "one dependency down",
			checks: map[string]Check{
				"store": func(ctx context.Context) error { return nil },
				"redis": func(ctx context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantDeps:   map[string]string{"store": "ok", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(tt.checks, logger.Discard()).RegisterRoutes(router)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for dep, want := range tt.wantDeps {
				if resp.Dependencies[dep] != want {
					t.Errorf("dependency %s = %q, want %q", dep, resp.Dependencies[dep], want)
				}
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(nil, logger.Discard()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
