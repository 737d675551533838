package handler

import (
	"net/http"
	"time"

	"showings/internal/showings/service"
	httputil "showings/pkg/http"
	"showings/pkg/logger"
	"showings/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ShowingHandler struct {
	service service.ShowingService
	log     *logger.Logger
}

func NewShowingHandler(service service.ShowingService, log *logger.Logger) *ShowingHandler {
	return &ShowingHandler{
		service: service,
		log:     log,
	}
}

type ConflictResponse struct {
	LotID       string `json:"lot_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	HasConflict bool   `json:"has_conflict"`
}

func (h *ShowingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ShowingRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	showing, err := h.service.RequestShowing(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, showing); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ShowingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	showing, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, showing); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShowingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.ShowingFilter{
		LotID:  query.Get("lot_id"),
		Status: model.ShowingStatus(query.Get("status")),
	}
	if query.Get("from") != "" {
		from, err := httputil.ParseTimeParam(r, "from")
		if err != nil {
			h.writeError(w, "GetAll", err)
			return
		}
		filter.From = &from
	}
	if query.Get("to") != "" {
		to, err := httputil.ParseTimeParam(r, "to")
		if err != nil {
			h.writeError(w, "GetAll", err)
			return
		}
		filter.To = &to
	}

	showings, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, showings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *ShowingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	showing, err := h.service.CancelShowing(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, showing); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShowingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	showing, err := h.service.CompleteShowing(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, showing); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShowingHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.RescheduleRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	showing, err := h.service.RescheduleShowing(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	if err := httputil.WriteSuccess(w, showing); err != nil {
		h.log.Error("failed to write success response", "handler", "Reschedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShowingHandler) Conflicts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	lotID := r.URL.Query().Get("lot_id")
	start, err := httputil.ParseTimeParam(r, "start_time")
	if err != nil {
		h.writeError(w, "Conflicts", err)
		return
	}
	end, err := httputil.ParseTimeParam(r, "end_time")
	if err != nil {
		h.writeError(w, "Conflicts", err)
		return
	}

	conflict, err := h.service.HasConflict(r.Context(), lotID, start, end, r.URL.Query().Get("exclude_id"))
	if err != nil {
		h.writeError(w, "Conflicts", err)
		return
	}

	if err := httputil.WriteSuccess(w, ConflictResponse{
		LotID:       lotID,
		StartTime:   start.Format(time.RFC3339),
		EndTime:     end.Format(time.RFC3339),
		HasConflict: conflict,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Conflicts", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShowingHandler) DailyAgenda(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	showings, err := h.service.DailyAgenda(r.Context(), ps.ByName("id"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, "DailyAgenda", err)
		return
	}

	if err := httputil.WriteSuccess(w, showings); err != nil {
		h.log.Error("failed to write success response", "handler", "DailyAgenda", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ShowingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ShowingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/showings", h.Create)
	router.GET("/api/v1/showings", h.GetAll)
	router.GET("/api/v1/showings/conflicts", h.Conflicts)
	router.GET("/api/v1/showings/id/:id", h.GetByID)
	router.POST("/api/v1/showings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/showings/id/:id/complete", h.Complete)
	router.PATCH("/api/v1/showings/id/:id/reschedule", h.Reschedule)
	router.GET("/api/v1/lots/id/:id/showings", h.DailyAgenda)
}
