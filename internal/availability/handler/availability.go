package handler

import (
	"net/http"
	"time"

	"showings/internal/availability/service"
	httputil "showings/pkg/http"
	"showings/pkg/logger"
	"showings/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) AddRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var rule model.AvailabilityRule
	if err := httputil.DecodeJSONBody(r, &rule); err != nil {
		h.writeError(w, "AddRule", err)
		return
	}

	if err := h.service.AddRule(r.Context(), ps.ByName("id"), &rule); err != nil {
		h.writeError(w, "AddRule", err)
		return
	}

	if err := httputil.WriteCreated(w, rule); err != nil {
		h.log.Error("failed to write created response", "handler", "AddRule", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) ListRules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var from, to time.Time
	var err error
	if r.URL.Query().Get("from") != "" {
		if from, err = httputil.ParseTimeParam(r, "from"); err != nil {
			h.writeError(w, "ListRules", err)
			return
		}
	}
	if r.URL.Query().Get("to") != "" {
		if to, err = httputil.ParseTimeParam(r, "to"); err != nil {
			h.writeError(w, "ListRules", err)
			return
		}
	}

	rules, err := h.service.ListRules(r.Context(), ps.ByName("id"), from, to)
	if err != nil {
		h.writeError(w, "ListRules", err)
		return
	}

	if err := httputil.WriteSuccess(w, rules); err != nil {
		h.log.Error("failed to write success response", "handler", "ListRules", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteRule(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteRule", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) Offerable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start, err := httputil.ParseTimeParam(r, "start_time")
	if err != nil {
		h.writeError(w, "Offerable", err)
		return
	}
	end, err := httputil.ParseTimeParam(r, "end_time")
	if err != nil {
		h.writeError(w, "Offerable", err)
		return
	}

	result, err := h.service.Offerable(r.Context(), ps.ByName("id"), start, end)
	if err != nil {
		h.writeError(w, "Offerable", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Offerable", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/lots/id/:id/availability", h.AddRule)
	router.GET("/api/v1/lots/id/:id/availability", h.ListRules)
	router.GET("/api/v1/lots/id/:id/offerable", h.Offerable)
	router.DELETE("/api/v1/availability/id/:id", h.DeleteRule)
}
