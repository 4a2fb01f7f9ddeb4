package handlers

import (
	"net/http"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	pkgerrors "kujisan/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DirectoryHandler serves the people and family pages around the tree. A nil
// directory answers every request with 503.
type DirectoryHandler struct {
	directory ports.DirectoryReader
	errors    *pkgerrors.ErrorHandler
	logger    *zap.Logger
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directory ports.DirectoryReader, errHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		directory: directory,
		errors:    errHandler,
		logger:    logger,
	}
}

// PeopleResponse wraps the people directory
type PeopleResponse struct {
	People []entities.PersonSummary `json:"people"`
}

// FamiliesResponse wraps the family directory
type FamiliesResponse struct {
	Families []entities.FamilySummary `json:"families"`
}

// ListPeople handles GET /people
func (h *DirectoryHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	people, err := h.directory.ListPeople(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if people == nil {
		people = []entities.PersonSummary{}
	}
	respondJSON(w, h.logger, http.StatusOK, PeopleResponse{People: people})
}

// GetProfile handles GET /profiles/{slug}
func (h *DirectoryHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	profile, err := h.directory.GetPerson(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if profile == nil {
		h.errors.Handle(w, r, pkgerrors.NewNotFoundError("person"))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, profile)
}

// ListFamilies handles GET /families
func (h *DirectoryHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	families, err := h.directory.ListFamilies(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if families == nil {
		families = []entities.FamilySummary{}
	}
	respondJSON(w, h.logger, http.StatusOK, FamiliesResponse{Families: families})
}

// GetFamily handles GET /families/{slug}
func (h *DirectoryHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	family, err := h.directory.GetFamily(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if family == nil {
		h.errors.Handle(w, r, pkgerrors.NewNotFoundError("family"))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, family)
}

// GetStats handles GET /stats
func (h *DirectoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	stats, err := h.directory.GetStats(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, stats)
}

func (h *DirectoryHandler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.directory == nil {
		h.errors.Handle(w, r, pkgerrors.New(pkgerrors.ErrorTypeUnavailable, "people and family reads are not served by this source"))
		return false
	}
	return true
}
