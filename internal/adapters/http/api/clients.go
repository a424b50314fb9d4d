package api

import (
	"context"
	"net/http"
)

// ClientDependencies defines the interface for client lookups.
type ClientDependencies interface {
	Clients(ctx context.Context) ([]string, error)
	Categories(ctx context.Context, client string) ([]string, error)
}

// ClientsHandler lists known clients and their invite categories.
type ClientsHandler struct {
	deps ClientDependencies
}

// NewClientsHandler creates a new clients handler.
func NewClientsHandler(deps ClientDependencies) *ClientsHandler {
	return &ClientsHandler{deps: deps}
}

// HandleClients handles GET /clients requests.
func (h *ClientsHandler) HandleClients(w http.ResponseWriter, r *http.Request) {
	const op = "api.clients"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	clients, err := h.deps.Clients(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(clients))
}

// HandleCategories handles GET /categories?client=NAME requests.
func (h *ClientsHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	const op = "api.categories"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	cats, err := h.deps.Categories(r.Context(), r.URL.Query().Get("client"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(cats))
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
