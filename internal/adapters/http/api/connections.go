package api

import (
	"context"
	"net/http"

	"github.com/okian/growthdesk/internal/domain/types"
)

// ConnectionDependencies defines the interface for importing connections.
type ConnectionDependencies interface {
	AddConnections(ctx context.Context, req types.ConnectionRequest) (types.ConnectionReceipt, error)
}

// ConnectionsHandler handles connection imports.
type ConnectionsHandler struct {
	deps ConnectionDependencies
}

// NewConnectionsHandler creates a new connections handler.
func NewConnectionsHandler(deps ConnectionDependencies) *ConnectionsHandler {
	return &ConnectionsHandler{deps: deps}
}

// HandlePostConnections handles POST /connections requests.
func (h *ConnectionsHandler) HandlePostConnections(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_connections"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.ConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	receipt, err := h.deps.AddConnections(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}
