package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	pkgerrors "kujisan/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockDirectory is a testify mock of ports.DirectoryReader
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListPeople(ctx context.Context) ([]entities.PersonSummary, error) {
	args := m.Called(ctx)
	people, _ := args.Get(0).([]entities.PersonSummary)
	return people, args.Error(1)
}

func (m *MockDirectory) GetPerson(ctx context.Context, slug string) (*entities.PersonProfile, error) {
	args := m.Called(ctx, slug)
	profile, _ := args.Get(0).(*entities.PersonProfile)
	return profile, args.Error(1)
}

func (m *MockDirectory) ListFamilies(ctx context.Context) ([]entities.FamilySummary, error) {
	args := m.Called(ctx)
	families, _ := args.Get(0).([]entities.FamilySummary)
	return families, args.Error(1)
}

func (m *MockDirectory) GetFamily(ctx context.Context, slug string) (*entities.FamilyProfile, error) {
	args := m.Called(ctx, slug)
	family, _ := args.Get(0).(*entities.FamilyProfile)
	return family, args.Error(1)
}

func (m *MockDirectory) GetStats(ctx context.Context) (*entities.LineageStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*entities.LineageStats)
	return stats, args.Error(1)
}

func newDirectoryRouter(directory ports.DirectoryReader) http.Handler {
	h := NewDirectoryHandler(directory, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())
	r := chi.NewRouter()
	r.Get("/people", h.ListPeople)
	r.Get("/profiles/{slug}", h.GetProfile)
	r.Get("/families", h.ListFamilies)
	r.Get("/families/{slug}", h.GetFamily)
	r.Get("/stats", h.GetStats)
	return r
}

func TestGetProfilePassesSlug(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("GetPerson", mock.Anything, "lamin-kujabi").
		Return(&entities.PersonProfile{PersonSummary: entities.PersonSummary{ID: "lamin", Name: "Lamin"}}, nil)

	rec := serve(newDirectoryRouter(directory), http.MethodGet, "/profiles/lamin-kujabi")

	require.Equal(t, http.StatusOK, rec.Code)
	var profile entities.PersonProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Lamin", profile.Name)
	directory.AssertExpectations(t)
}

func TestDirectoryMissesAreNotFound(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("GetPerson", mock.Anything, "nobody").Return(nil, nil)
	directory.On("GetFamily", mock.Anything, "nobody").Return(nil, nil)
	router := newDirectoryRouter(directory)

	for _, path := range []string{"/profiles/nobody", "/families/nobody"} {
		rec := serve(router, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, string(pkgerrors.ErrorTypeNotFound), errorBody(t, rec).Type)
	}
}

func TestEmptyDirectoriesEncodeAsArrays(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("ListPeople", mock.Anything).Return(nil, nil)
	directory.On("ListFamilies", mock.Anything).Return(nil, nil)
	router := newDirectoryRouter(directory)

	rec := serve(router, http.MethodGet, "/people")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"people":[]}`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/families")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"families":[]}`, rec.Body.String())
}

func TestStatsSourceFailureIsBadGateway(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("GetStats", mock.Anything).
		Return(nil, pkgerrors.NewExternalError("sanity", errors.New("500 from upstream")))

	rec := serve(newDirectoryRouter(directory), http.MethodGet, "/stats")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(pkgerrors.ErrorTypeExternal), errorBody(t, rec).Type)
}

func TestMissingDirectoryIsUnavailable(t *testing.T) {
	router := newDirectoryRouter(nil)

	for _, path := range []string{"/people", "/profiles/x", "/families", "/families/x", "/stats"} {
		rec := serve(router, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, string(pkgerrors.ErrorTypeUnavailable), errorBody(t, rec).Type)
	}
}
