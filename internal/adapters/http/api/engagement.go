package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/growthdesk/internal/domain/engagement"
	"github.com/okian/growthdesk/internal/domain/types"
)

// EngagementDependencies defines the interface for engagement lookups.
type EngagementDependencies interface {
	Engagement(ctx context.Context, q types.EngagementQuery) ([]types.EngagementRow, error)
}

// EngagementHandler lists accepted invites for follow-up.
type EngagementHandler struct {
	deps EngagementDependencies
}

// NewEngagementHandler creates a new engagement handler.
func NewEngagementHandler(deps EngagementDependencies) *EngagementHandler {
	return &EngagementHandler{deps: deps}
}

// HandleEngagement handles GET /engagement requests. Filters come from the
// query string; category may repeat or hold a comma separated list.
func (h *EngagementHandler) HandleEngagement(w http.ResponseWriter, r *http.Request) {
	const op = "api.engagement"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := parseEngagementQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rows, err := h.deps.Engagement(r.Context(), q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if rows == nil {
		rows = []types.EngagementRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func parseEngagementQuery(v url.Values) (types.EngagementQuery, error) {
	q := types.EngagementQuery{
		Client:        v.Get("client"),
		TitleInclude:  engagement.ParseKeywords(v.Get("title_include")),
		TitleExclude:  engagement.ParseKeywords(v.Get("title_exclude")),
		Organization:  v.Get("organization"),
		InvitedFrom:   v.Get("invited_from"),
		InvitedTo:     v.Get("invited_to"),
		ConnectedFrom: v.Get("connected_from"),
		ConnectedTo:   v.Get("connected_to"),
	}
	for _, c := range v["category"] {
		q.Categories = append(q.Categories, engagement.ParseKeywords(c)...)
	}
	var err error
	if q.MinFollowers, err = optionalInt(v, "min_followers"); err != nil {
		return q, err
	}
	if q.MaxFollowers, err = optionalInt(v, "max_followers"); err != nil {
		return q, err
	}
	return q, nil
}

func optionalInt(v url.Values, key string) (int, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, s)
	}
	return n, nil
}
