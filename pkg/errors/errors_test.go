package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Showing"), CodeNotFound, http.StatusNotFound},
		{"not found with id", NotFoundWithID("Lot", "lot-1"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad body", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad id"), CodeInvalidInput, http.StatusBadRequest},
		{"conflict", Conflict("overlaps"), CodeConflict, http.StatusConflict},
		{"invalid range", InvalidRange("end before start"), CodeInvalidRange, http.StatusBadRequest},
		{"invalid transition", InvalidTransition("CANCELED", "COMPLETED"), CodeInvalidTransition, http.StatusConflict},
		{"internal", Internal("boom", errors.New("db down")), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("calendar"), CodeUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
			if tt.err.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestInvalidTransition_Details(t *testing.T) {
	err := InvalidTransition("COMPLETED", "SCHEDULED")
	if err.Details["from"] != "COMPLETED" || err.Details["to"] != "SCHEDULED" {
		t.Errorf("Details = %v", err.Details)
	}
	if err.Message != "cannot change status from COMPLETED to SCHEDULED" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("Showing", "abc")
	if err.Details["resource"] != "Showing" || err.Details["id"] != "abc" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "store failed", http.StatusInternalServerError)

	if got, want := err.Error(), "INTERNAL_ERROR: store failed (caused by: connection reset)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if got, want := New(CodeConflict, "taken", http.StatusConflict).Error(), "CONFLICT: taken"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithDetails(t *testing.T) {
	err := Conflict("overlaps").WithDetails(map[string]any{"conflicting_id": "s-2"})
	if err.Details["conflicting_id"] != "s-2" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestAsAppError(t *testing.T) {
	conflict := Conflict("overlaps")
	wrapped := fmt.Errorf("request showing: %w", conflict)

	if !IsAppError(wrapped) {
		t.Error("IsAppError should see through wrapping")
	}
	if got := AsAppError(wrapped); got != conflict {
		t.Errorf("AsAppError() = %v, want the wrapped conflict", got)
	}

	plain := errors.New("unexpected")
	if IsAppError(plain) {
		t.Error("plain error reported as AppError")
	}
	got := AsAppError(plain)
	if got.Code != CodeInternal || !errors.Is(got, plain) {
		t.Errorf("AsAppError(plain) = %+v", got)
	}
	if IsAppError(nil) {
		t.Error("nil reported as AppError")
	}
}
