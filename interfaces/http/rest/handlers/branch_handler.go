package handlers

import (
	"net/http"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	pkgerrors "kujisan/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BranchHandler exposes raw branch reads for clients that run their own
// merge, and for debugging the configured source
type BranchHandler struct {
	fetcher ports.BranchFetcher
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(fetcher ports.BranchFetcher, errHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *BranchHandler {
	return &BranchHandler{
		fetcher: fetcher,
		errors:  errHandler,
		logger:  logger,
	}
}

// RootsResponse wraps the root branch list
type RootsResponse struct {
	Roots []*entities.TreePerson `json:"roots"`
}

// GetRoots handles GET /tree/roots
func (h *BranchHandler) GetRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := h.fetcher.FetchRoot(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if roots == nil {
		roots = []*entities.TreePerson{}
	}
	respondJSON(w, h.logger, http.StatusOK, RootsResponse{Roots: roots})
}

// GetBranch handles GET /people/{personID}/branch
func (h *BranchHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewPersonID(chi.URLParam(r, "personID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	branch, err := h.fetcher.FetchBranch(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if branch == nil {
		h.errors.Handle(w, r, pkgerrors.NewNotFoundError("person"))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, branch)
}
