package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/growthdesk/internal/domain/types"
)

// SearchDependencies defines the interface for saved engagement searches.
type SearchDependencies interface {
	SaveSearch(ctx context.Context, req types.SavedSearchRequest) (types.SavedSearch, error)
	SavedSearches(ctx context.Context, client string) ([]types.SavedSearch, error)
	DeleteSearch(ctx context.Context, id int64) error
}

// SearchesHandler manages saved engagement searches.
type SearchesHandler struct {
	deps SearchDependencies
}

// NewSearchesHandler creates a new saved search handler.
func NewSearchesHandler(deps SearchDependencies) *SearchesHandler {
	return &SearchesHandler{deps: deps}
}

// HandleSearches handles /engagement/searches: GET lists (optionally for
// ?client=), POST saves a named query and DELETE ?id= removes one.
func (h *SearchesHandler) HandleSearches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.save(w, r)
	case http.MethodDelete:
		h.remove(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SearchesHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.searches.list"
	searches, err := h.deps.SavedSearches(r.Context(), r.URL.Query().Get("client"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if searches == nil {
		searches = []types.SavedSearch{}
	}
	writeJSON(w, http.StatusOK, searches)
}

func (h *SearchesHandler) save(w http.ResponseWriter, r *http.Request) {
	const op = "api.searches.save"
	var req types.SavedSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	saved, err := h.deps.SaveSearch(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *SearchesHandler) remove(w http.ResponseWriter, r *http.Request) {
	const op = "api.searches.delete"
	raw := r.URL.Query().Get("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("id must be a positive integer, got %q", raw)))
		return
	}
	if err := h.deps.DeleteSearch(r.Context(), id); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
