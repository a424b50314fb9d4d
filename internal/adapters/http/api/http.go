// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/growthdesk/internal/app"
	"github.com/okian/growthdesk/internal/adapters/repository"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 32 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	FilterDependencies
	InviteDependencies
	ConnectionDependencies
	ClientDependencies
	EngagementDependencies
	SearchDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	filterHandler      *FilterHandler
	invitesHandler     *InvitesHandler
	connectionsHandler *ConnectionsHandler
	clientsHandler     *ClientsHandler
	engagementHandler  *EngagementHandler
	searchesHandler    *SearchesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		filterHandler:      NewFilterHandler(deps),
		invitesHandler:     NewInvitesHandler(deps),
		connectionsHandler: NewConnectionsHandler(deps),
		clientsHandler:     NewClientsHandler(deps),
		engagementHandler:  NewEngagementHandler(deps),
		searchesHandler:    NewSearchesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/filter", "filter", s.filterHandler.HandleFilter)
	route("/filter/export", "filter_export", s.filterHandler.HandleExport)
	route("/invites", "invites", s.invitesHandler.HandlePostInvites)
	route("/invites/recent", "invites_recent", s.invitesHandler.HandleRecent)
	route("/invites/overview", "invites_overview", s.invitesHandler.HandleOverview)
	route("/connections", "connections", s.connectionsHandler.HandlePostConnections)
	route("/clients", "clients", s.clientsHandler.HandleClients)
	route("/categories", "categories", s.clientsHandler.HandleCategories)
	route("/engagement", "engagement", s.engagementHandler.HandleEngagement)
	route("/engagement/searches", "engagement_searches", s.searchesHandler.HandleSearches)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	if isBadRequest(err) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if errors.Is(err, service.ErrSearchNotFound) || errors.Is(err, repository.ErrSearchNotFound) {
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
		return
	}
	if errors.Is(err, service.ErrNotStarted) {
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}

func isBadRequest(err error) bool {
	for _, kind := range []error{
		ErrBadRequest,
		service.ErrMissingClient,
		service.ErrTooManyCandidates,
		service.ErrEmptyBatch,
		service.ErrInvalidDate,
		service.ErrInvalidLimit,
		service.ErrInvalidBatchID,
		service.ErrMissingName,
		repository.ErrInvalidLimit,
		repository.ErrEmptyBatch,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// decodeJSON reads a bounded JSON body into v, rejecting trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
