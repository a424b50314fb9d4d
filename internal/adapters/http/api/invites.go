package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/growthdesk/internal/domain/types"
)

// InviteDependencies defines the interface for invite log operations.
type InviteDependencies interface {
	LogInvites(ctx context.Context, req types.InviteRequest) (types.InviteReceipt, error)
	RecentInvites(ctx context.Context, limit int) ([]types.Invite, error)
	Overview(ctx context.Context) (types.Overview, error)
}

// InvitesHandler handles invite logging and browsing.
type InvitesHandler struct {
	deps InviteDependencies
}

// NewInvitesHandler creates a new invites handler.
func NewInvitesHandler(deps InviteDependencies) *InvitesHandler {
	return &InvitesHandler{deps: deps}
}

// HandlePostInvites handles POST /invites requests.
func (h *InvitesHandler) HandlePostInvites(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_invites"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.InviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	receipt, err := h.deps.LogInvites(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// HandleRecent handles GET /invites/recent?limit=N requests.
// A missing limit lets the service pick its default.
func (h *InvitesHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent_invites"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = n
	}
	invites, err := h.deps.RecentInvites(r.Context(), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if invites == nil {
		invites = []types.Invite{}
	}
	writeJSON(w, http.StatusOK, invites)
}

// HandleOverview handles GET /invites/overview requests.
func (h *InvitesHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.invites_overview"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ov, err := h.deps.Overview(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
