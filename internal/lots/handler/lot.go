package handler

import (
	"net/http"

	"showings/internal/lots/service"
	httputil "showings/pkg/http"
	"showings/pkg/logger"
	"showings/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type LotHandler struct {
	service service.LotService
	log     *logger.Logger
}

func NewLotHandler(service service.LotService, log *logger.Logger) *LotHandler {
	return &LotHandler{
		service: service,
		log:     log,
	}
}

func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var lot model.Lot
	if err := httputil.DecodeJSONBody(r, &lot); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &lot); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, lot); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *LotHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lot, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, lot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LotHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	lots, total, err := h.service.GetAll(r.Context(), r.URL.Query().Get("park_id"), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, lots, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *LotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *LotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/lots", h.Create)
	router.GET("/api/v1/lots", h.GetAll)
	router.GET("/api/v1/lots/id/:id", h.GetByID)
}
