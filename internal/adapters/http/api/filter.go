package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/growthdesk/internal/domain/types"
	"github.com/okian/growthdesk/pkg/logger"
)

// FilterDependencies defines the interface for filter operations.
type FilterDependencies interface {
	Filter(ctx context.Context, req types.FilterRequest) (types.FilterResponse, error)
}

// FilterHandler handles candidate list filtering.
type FilterHandler struct {
	deps FilterDependencies
}

// NewFilterHandler creates a new filter handler.
func NewFilterHandler(deps FilterDependencies) *FilterHandler {
	return &FilterHandler{deps: deps}
}

// HandleFilter handles POST /filter requests.
func (h *FilterHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	const op = "api.filter"
	resp, ok := h.run(w, r, op)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleExport handles POST /filter/export?part=clean|urls|stats requests
// and returns the chosen part of the result as CSV.
func (h *FilterHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.filter_export"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	part := ExportPart(strings.ToLower(r.URL.Query().Get("part")))
	if part == "" {
		part = ExportClean
	}
	if !part.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errInvalidPart(part)))
		return
	}

	resp, ok := h.run(w, r, op)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+part.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, part, resp); err != nil {
		logger.Get().Error(r.Context(), "csv export failed", logger.String("op", op), logger.Error(err))
	}
}

func (h *FilterHandler) run(w http.ResponseWriter, r *http.Request, op string) (types.FilterResponse, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return types.FilterResponse{}, false
	}
	var req types.FilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return types.FilterResponse{}, false
	}
	resp, err := h.deps.Filter(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return types.FilterResponse{}, false
	}
	return resp, true
}
