package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"kujisan/application/services"
	pkgerrors "kujisan/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TreeSessions is what the tree endpoints need from the session service
type TreeSessions interface {
	Create(ctx context.Context) (*services.TreeView, error)
	View(ctx context.Context, id string) (*services.TreeView, error)
	Toggle(ctx context.Context, id, personID string) (*services.TreeView, error)
	Reload(ctx context.Context, id string) (*services.TreeView, error)
	Close(id string) error
}

var _ TreeSessions = (*services.SessionService)(nil)

// TreeHandler serves tree sessions: one per mounted tree view
type TreeHandler struct {
	sessions TreeSessions
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(sessions TreeSessions, errHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *TreeHandler {
	return &TreeHandler{
		sessions: sessions,
		errors:   errHandler,
		logger:   logger,
	}
}

// CreateSession handles POST /tree/sessions
func (h *TreeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Create(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/tree/sessions/"+view.SessionID)
	respondJSON(w, h.logger, http.StatusCreated, view)
}

// GetSession handles GET /tree/sessions/{sessionID}
func (h *TreeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.View(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// ToggleNode handles POST /tree/sessions/{sessionID}/nodes/{personID}/toggle
func (h *TreeHandler) ToggleNode(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	personID := chi.URLParam(r, "personID")

	view, err := h.sessions.Toggle(r.Context(), sessionID, personID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// ReloadSession handles POST /tree/sessions/{sessionID}/reload
func (h *TreeHandler) ReloadSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Reload(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// CloseSession handles DELETE /tree/sessions/{sessionID}
func (h *TreeHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sessionID")); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
