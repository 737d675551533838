package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"showings/internal/calendarsync/service"
	apperrors "showings/pkg/errors"
	"showings/pkg/logger"
	"showings/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockCredentialService struct {
	saveFunc   func(ctx context.Context, ownerID string, req *model.CalendarCredentialRequest) (*model.CalendarCredential, error)
	removeFunc func(ctx context.Context, ownerID string) error
}

func (m *mockCredentialService) Save(ctx context.Context, ownerID string, req *model.CalendarCredentialRequest) (*model.CalendarCredential, error) {
	return m.saveFunc(ctx, ownerID, req)
}

func (m *mockCredentialService) Remove(ctx context.Context, ownerID string) error {
	return m.removeFunc(ctx, ownerID)
}

type mockReconciler struct {
	reconcileFunc func(ctx context.Context) (*service.ReconcileResult, error)
}

func (m *mockReconciler) Reconcile(ctx context.Context) (*service.ReconcileResult, error) {
	return m.reconcileFunc(ctx)
}

func newRouter(creds *mockCredentialService, rec *mockReconciler) *httprouter.Router {
	router := httprouter.New()
	NewCalendarSyncHandler(creds, rec, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestPutCredential(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "stored", body: `{"refresh_token":"1//refresh-token"}`, wantStatus: http.StatusOK},
		{name: "validation", body: `{"refresh_token":""}`, serviceErr: apperrors.Validation("Calendar credential validation failed", nil), wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"refresh_token":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOwner string
			creds := &mockCredentialService{
				saveFunc: func(ctx context.Context, ownerID string, req *model.CalendarCredentialRequest) (*model.CalendarCredential, error) {
					gotOwner = ownerID
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &model.CalendarCredential{OwnerID: ownerID, RefreshToken: req.RefreshToken}, nil
				},
			}

			req := httptest.NewRequest(http.MethodPut, "/api/v1/owners/id/owner-1/calendar-credential", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newRouter(creds, &mockReconciler{}).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if gotOwner != "owner-1" {
					t.Errorf("owner = %q", gotOwner)
				}
				if strings.Contains(w.Body.String(), "refresh-token") {
					t.Errorf("response leaks the refresh token: %s", w.Body.String())
				}
			}
		})
	}
}

func TestDeleteCredential(t *testing.T) {
	creds := &mockCredentialService{
		removeFunc: func(ctx context.Context, ownerID string) error {
			if ownerID == "missing" {
				return apperrors.NotFoundWithID("Calendar credential", ownerID)
			}
			return nil
		},
	}
	router := newRouter(creds, &mockReconciler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/owners/id/owner-1/calendar-credential", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/owners/id/missing/calendar-credential", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestReconcile(t *testing.T) {
	rec := &mockReconciler{
		reconcileFunc: func(ctx context.Context) (*service.ReconcileResult, error) {
			return &service.ReconcileResult{Scanned: 3, Enqueued: 2, Failed: 1}, nil
		},
	}

	w := httptest.NewRecorder()
	newRouter(&mockCredentialService{}, rec).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/calendar-sync/reconcile", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data service.ReconcileResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Enqueued != 2 || body.Data.Failed != 1 {
		t.Errorf("result = %+v", body.Data)
	}
}

func TestReconcile_Error(t *testing.T) {
	rec := &mockReconciler{
		reconcileFunc: func(ctx context.Context) (*service.ReconcileResult, error) {
			return nil, apperrors.Internal("Failed to list showings for reconcile", nil)
		},
	}

	w := httptest.NewRecorder()
	newRouter(&mockCredentialService{}, rec).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/calendar-sync/reconcile", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
