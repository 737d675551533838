package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "showings/pkg/errors"
	httputil "showings/pkg/http"
	"showings/pkg/logger"
	"showings/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockShowingService struct {
	requestFunc     func(ctx context.Context, req *model.ShowingRequest) (*model.Showing, error)
	getByIDFunc     func(ctx context.Context, id string) (*model.Showing, error)
	listFunc        func(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, int64, error)
	agendaFunc      func(ctx context.Context, lotID, date string) ([]*model.Showing, error)
	cancelFunc      func(ctx context.Context, id string) (*model.Showing, error)
	completeFunc    func(ctx context.Context, id string) (*model.Showing, error)
	rescheduleFunc  func(ctx context.Context, id string, req *model.RescheduleRequest) (*model.Showing, error)
	hasConflictFunc func(ctx context.Context, lotID string, start, end time.Time, excludeID string) (bool, error)
}

func (m *mockShowingService) RequestShowing(ctx context.Context, req *model.ShowingRequest) (*model.Showing, error) {
	return m.requestFunc(ctx, req)
}

func (m *mockShowingService) GetByID(ctx context.Context, id string) (*model.Showing, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockShowingService) List(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, int64, error) {
	return m.listFunc(ctx, filter, limit, offset)
}

func (m *mockShowingService) DailyAgenda(ctx context.Context, lotID, date string) ([]*model.Showing, error) {
	return m.agendaFunc(ctx, lotID, date)
}

func (m *mockShowingService) CancelShowing(ctx context.Context, id string) (*model.Showing, error) {
	return m.cancelFunc(ctx, id)
}

func (m *mockShowingService) CompleteShowing(ctx context.Context, id string) (*model.Showing, error) {
	return m.completeFunc(ctx, id)
}

func (m *mockShowingService) RescheduleShowing(ctx context.Context, id string, req *model.RescheduleRequest) (*model.Showing, error) {
	return m.rescheduleFunc(ctx, id, req)
}

func (m *mockShowingService) HasConflict(ctx context.Context, lotID string, start, end time.Time, excludeID string) (bool, error) {
	return m.hasConflictFunc(ctx, lotID, start, end, excludeID)
}

func newRouter(svc *mockShowingService) *httprouter.Router {
	router := httprouter.New()
	NewShowingHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestCreate(t *testing.T) {
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"lot_id":"lot-R","start_time":"2030-05-01T09:00:00Z","end_time":"2030-05-01T09:30:00Z","client_name":"Dana"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "overlap",
			body:       `{"lot_id":"lot-R","start_time":"2030-05-01T09:00:00Z","end_time":"2030-05-01T09:30:00Z","client_name":"Dana"}`,
			serviceErr: apperrors.Conflict("Showing time overlaps with an existing showing"),
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeConflict,
		},
		{
			name:       "invalid range",
			body:       `{"lot_id":"lot-R","start_time":"2030-05-01T09:00:00Z","end_time":"2030-05-01T09:00:00Z","client_name":"Dana"}`,
			serviceErr: apperrors.InvalidRange("end_time must be after start_time"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidRange,
		},
		{
			name:       "malformed json",
			body:       `{"lot_id":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
		{
			name:       "unknown field",
			body:       `{"lot_id":"lot-R","status":"COMPLETED"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockShowingService{
				requestFunc: func(ctx context.Context, req *model.ShowingRequest) (*model.Showing, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					if !req.StartTime.Equal(start) {
						t.Errorf("unexpected start time %v", req.StartTime)
					}
					return &model.Showing{ID: "s-1", LotID: req.LotID, StartTime: req.StartTime, EndTime: req.EndTime, Status: model.StatusScheduled}, nil
				},
			}

			w := serve(newRouter(svc), http.MethodPost, "/api/v1/showings", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantCode != "" {
				if got := decodeError(t, w).Code; got != tt.wantCode {
					t.Errorf("expected code %s, got %s", tt.wantCode, got)
				}
			}
		})
	}
}

func TestCancel_InvalidTransition(t *testing.T) {
	svc := &mockShowingService{
		cancelFunc: func(ctx context.Context, id string) (*model.Showing, error) {
			return nil, apperrors.InvalidTransition("CANCELED", "CANCELED")
		},
	}

	w := serve(newRouter(svc), http.MethodPost, "/api/v1/showings/id/s-1/cancel", "")

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Code != apperrors.CodeInvalidTransition {
		t.Errorf("expected INVALID_TRANSITION, got %s", resp.Code)
	}
	if resp.Details["from"] != "CANCELED" {
		t.Errorf("expected from detail, got %v", resp.Details)
	}
}

func TestComplete(t *testing.T) {
	var gotID string
	svc := &mockShowingService{
		completeFunc: func(ctx context.Context, id string) (*model.Showing, error) {
			gotID = id
			return &model.Showing{ID: id, Status: model.StatusCompleted}, nil
		},
	}

	w := serve(newRouter(svc), http.MethodPost, "/api/v1/showings/id/s-9/complete", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != "s-9" {
		t.Errorf("expected id s-9, got %q", gotID)
	}
}

func TestReschedule(t *testing.T) {
	var got *model.RescheduleRequest
	svc := &mockShowingService{
		rescheduleFunc: func(ctx context.Context, id string, req *model.RescheduleRequest) (*model.Showing, error) {
			got = req
			return &model.Showing{ID: id, StartTime: req.StartTime, EndTime: req.EndTime, Status: model.StatusScheduled}, nil
		},
	}

	w := serve(newRouter(svc), http.MethodPatch, "/api/v1/showings/id/s-1/reschedule",
		`{"start_time":"2030-05-01T10:00:00+03:00","end_time":"2030-05-01T11:00:00+03:00"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got == nil || !got.StartTime.Equal(time.Date(2030, 5, 1, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected request passed to service: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := &mockShowingService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Showing, error) {
			return nil, apperrors.NotFoundWithID("Showing", id)
		},
	}

	w := serve(newRouter(svc), http.MethodGet, "/api/v1/showings/id/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetAll(t *testing.T) {
	tests := []struct {
		name             string
		query            string
		wantStatus       int
		wantLimit        int
		wantOffset       int64
		wantStatusFilter model.ShowingStatus
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantLimit: 10},
		{name: "filters", query: "?lot_id=lot-R&status=SCHEDULED&limit=5&offset=5", wantStatus: http.StatusOK, wantLimit: 5, wantOffset: 5, wantStatusFilter: model.StatusScheduled},
		{name: "limit capped", query: "?limit=1000", wantStatus: http.StatusOK, wantLimit: 100},
		{name: "invalid limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "invalid offset", query: "?offset=xyz", wantStatus: http.StatusBadRequest},
		{name: "invalid from", query: "?from=yesterday", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFilter model.ShowingFilter
			var gotLimit int
			var gotOffset int64
			svc := &mockShowingService{
				listFunc: func(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, int64, error) {
					gotFilter, gotLimit, gotOffset = filter, limit, offset
					return []*model.Showing{}, 0, nil
				},
			}

			w := serve(newRouter(svc), http.MethodGet, "/api/v1/showings"+tt.query, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
				t.Errorf("expected limit=%d offset=%d, got limit=%d offset=%d", tt.wantLimit, tt.wantOffset, gotLimit, gotOffset)
			}
			if gotFilter.Status != tt.wantStatusFilter {
				t.Errorf("expected status filter %q, got %q", tt.wantStatusFilter, gotFilter.Status)
			}
		})
	}
}

func TestConflicts(t *testing.T) {
	svc := &mockShowingService{
		hasConflictFunc: func(ctx context.Context, lotID string, start, end time.Time, excludeID string) (bool, error) {
			if lotID != "lot-R" || excludeID != "s-1" {
				t.Errorf("unexpected args lot=%q exclude=%q", lotID, excludeID)
			}
			return true, nil
		},
	}
	router := newRouter(svc)

	w := serve(router, http.MethodGet, "/api/v1/showings/conflicts?lot_id=lot-R&start_time=2030-05-01T09:00:00Z&end_time=2030-05-01T10:00:00Z&exclude_id=s-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data ConflictResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Data.HasConflict {
		t.Error("expected has_conflict=true")
	}

	w = serve(router, http.MethodGet, "/api/v1/showings/conflicts?lot_id=lot-R&start_time=2030-05-01T09:00:00Z", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing end_time should be 400, got %d", w.Code)
	}
}

func TestDailyAgenda(t *testing.T) {
	var gotLot, gotDate string
	svc := &mockShowingService{
		agendaFunc: func(ctx context.Context, lotID, date string) ([]*model.Showing, error) {
			gotLot, gotDate = lotID, date
			return []*model.Showing{{ID: "s-1"}}, nil
		},
	}

	w := serve(newRouter(svc), http.MethodGet, "/api/v1/lots/id/lot-R/showings?date=2030-05-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotLot != "lot-R" || gotDate != "2030-05-01" {
		t.Errorf("unexpected args lot=%q date=%q", gotLot, gotDate)
	}
}
