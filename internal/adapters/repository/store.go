// Package repository persists invited profiles and accepted connections.
package repository

import (
	"context"
	"time"

	"github.com/okian/growthdesk/internal/domain/model"
)

// Store provides read/write access to the outreach history.
type Store interface {
	// LogInvites records every profile of batch as an invited row tagged with batchID.
	// Returns the number of rows written. If batchID was logged before nothing is
	// written; the stored row count is returned with ErrBatchExists.
	LogInvites(ctx context.Context, batchID string, batch model.InviteBatch) (int, error)
	// AddConnections records accepted connections for client.
	AddConnections(ctx context.Context, client string, connections []model.Connection) (int, error)

	// Invited returns every invited row of client in insertion order.
	Invited(ctx context.Context, client string) ([]model.Invite, error)
	// Connections returns every connection of client in insertion order.
	Connections(ctx context.Context, client string) ([]model.Connection, error)

	// Clients returns the sorted distinct client names across invites and connections.
	Clients(ctx context.Context) ([]string, error)
	// Categories returns the sorted distinct non-empty invite categories of client.
	Categories(ctx context.Context, client string) ([]string, error)

	// RecentInvites returns up to limit invited rows, newest first.
	// Returns ErrInvalidLimit if limit is not positive.
	RecentInvites(ctx context.Context, limit int) ([]model.Invite, error)
	// Overview summarizes the invite table. now decides what "today" means.
	Overview(ctx context.Context, now time.Time) (model.InviteOverview, error)

	// SaveSearch stores search under its client and name, replacing an existing
	// search of the same name. A zero CreatedAt is stamped with the store clock.
	// Returns the search ID.
	SaveSearch(ctx context.Context, search model.SavedSearch) (int64, error)
	// SavedSearches returns the searches of client ordered by name; an empty
	// client lists every search.
	SavedSearches(ctx context.Context, client string) ([]model.SavedSearch, error)
	// DeleteSearch removes a search. Returns ErrSearchNotFound if id is unknown.
	DeleteSearch(ctx context.Context, id int64) error

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// Close releases the database handle.
	Close() error
}
