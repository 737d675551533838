package handler

import (
	"context"
	"net/http"

	"showings/internal/calendarsync/service"
	httputil "showings/pkg/http"
	"showings/pkg/logger"
	"showings/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type Reconciler interface {
	Reconcile(ctx context.Context) (*service.ReconcileResult, error)
}

type CalendarSyncHandler struct {
	credentials service.CredentialService
	reconciler  Reconciler
	log         *logger.Logger
}

func NewCalendarSyncHandler(credentials service.CredentialService, reconciler Reconciler, log *logger.Logger) *CalendarSyncHandler {
	return &CalendarSyncHandler{
		credentials: credentials,
		reconciler:  reconciler,
		log:         log,
	}
}

func (h *CalendarSyncHandler) PutCredential(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CalendarCredentialRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, "PutCredential", err)
		return
	}

	cred, err := h.credentials.Save(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "PutCredential", err)
		return
	}

	if err := httputil.WriteSuccess(w, cred); err != nil {
		h.log.Error("failed to write success response", "handler", "PutCredential", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CalendarSyncHandler) DeleteCredential(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.credentials.Remove(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteCredential", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *CalendarSyncHandler) Reconcile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.reconciler.Reconcile(r.Context())
	if err != nil {
		h.writeError(w, "Reconcile", err)
		return
	}

	if err := httputil.WriteAccepted(w, result); err != nil {
		h.log.Error("failed to write accepted response", "handler", "Reconcile", "operation", "WriteAccepted", "error", err)
	}
}

func (h *CalendarSyncHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CalendarSyncHandler) RegisterRoutes(router *httprouter.Router) {
	router.PUT("/api/v1/owners/id/:id/calendar-credential", h.PutCredential)
	router.DELETE("/api/v1/owners/id/:id/calendar-credential", h.DeleteCredential)
	router.POST("/api/v1/calendar-sync/reconcile", h.Reconcile)
}
