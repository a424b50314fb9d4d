// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/growthdesk/internal/adapters/refcache"
	"github.com/okian/growthdesk/internal/adapters/repository"
	"github.com/okian/growthdesk/internal/domain/dedupe"
	"github.com/okian/growthdesk/internal/domain/engagement"
	"github.com/okian/growthdesk/internal/domain/model"
	"github.com/okian/growthdesk/internal/domain/types"
	"github.com/okian/growthdesk/pkg/logger"
	"github.com/okian/growthdesk/pkg/metrics"
)

// statsTimeout bounds the store calls made by GetStats.
const statsTimeout = 2 * time.Second

// Service implements the API dependencies for outreach de-duplication.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	refs      *refcache.Cache

	// Configuration
	dbPath             string
	busyRetries        int
	referenceTTL       time.Duration
	nameFallback       bool
	maxCandidates      int
	recentDefaultLimit int
	recentMaxLimit     int
	now                func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects a store. The service does not close injected stores.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDatabasePath sets the SQLite file opened on Start when no store is injected.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithBusyRetries sets the write attempts used by the SQLite store.
func WithBusyRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.busyRetries = n
		}
	}
}

// WithReferenceTTL sets how long reference collections stay cached.
// Zero disables caching.
func WithReferenceTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.referenceTTL = ttl
		}
	}
}

// WithNameFallback toggles name matching for candidates without a profile ID.
func WithNameFallback(enabled bool) Option {
	return func(s *Service) {
		s.nameFallback = enabled
	}
}

// WithMaxCandidates caps the size of one filter request.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// WithRecentLimits sets the default and maximum row counts of RecentInvites.
func WithRecentLimits(def, maxLimit int) Option {
	return func(s *Service) {
		if def > 0 && maxLimit >= def {
			s.recentDefaultLimit = def
			s.recentMaxLimit = maxLimit
		}
	}
}

// WithClock sets the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:             "growthdesk.db",
		busyRetries:        3,
		referenceTTL:       30 * time.Second,
		nameFallback:       true,
		maxCandidates:      50_000,
		recentDefaultLimit: 100,
		recentMaxLimit:     1000,
		now:                time.Now,
		logger:             nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and prepares the reference cache.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting growthdesk service...")

	if s.store == nil {
		store, err := repository.NewSQLStore(ctx, s.dbPath,
			repository.WithClock(s.now),
			repository.WithBusyRetries(uint(s.busyRetries)), //nolint:gosec // validated positive
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	refs, err := refcache.New(s.referenceTTL)
	if err != nil {
		return err
	}
	s.refs = refs

	s.started = true
	s.logger.Info(ctx, "growthdesk service started",
		logger.Duration("referenceTTL", s.referenceTTL),
		logger.Bool("nameFallback", s.nameFallback),
		logger.Int("maxCandidates", s.maxCandidates),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping growthdesk service...")

	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "growthdesk service stopped")
}

func (s *Service) deps() (repository.Store, *refcache.Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.refs, nil
}

// Filter removes candidates already invited by or connected to the client.
func (s *Service) Filter(ctx context.Context, req types.FilterRequest) (types.FilterResponse, error) {
	client := strings.TrimSpace(req.Client)
	candidates := make([]model.Profile, len(req.Candidates))
	for i, p := range req.Candidates {
		candidates[i] = toModelProfile(p, client)
	}

	res, err := s.FilterCandidates(ctx, client, candidates)
	if err != nil {
		return types.FilterResponse{}, err
	}
	return toFilterResponse(client, res), nil
}

// FilterCandidates runs the de-duplication filter against the client's references.
func (s *Service) FilterCandidates(ctx context.Context, client string, candidates []model.Profile) (dedupe.Result, error) {
	start := time.Now()
	if client == "" {
		return dedupe.Result{}, ErrMissingClient
	}
	if len(candidates) > s.maxCandidates {
		return dedupe.Result{}, fmt.Errorf("%w: %d > %d", ErrTooManyCandidates, len(candidates), s.maxCandidates)
	}

	refs, err := s.references(ctx, client)
	if err != nil {
		return dedupe.Result{}, err
	}

	res := dedupe.Filter(candidates, refs, dedupe.WithNameFallback(s.nameFallback))

	st := res.Stats
	metrics.RecordFilterRun(st.Original, st.ExcludedInvited, st.ExcludedConnected, st.ExcludedByName, st.Unidentified)
	metrics.RecordFilterLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	s.log().Info(ctx, "filtered candidates",
		logger.String("client", client),
		logger.Int("original", st.Original),
		logger.Int("excludedInvited", st.ExcludedInvited),
		logger.Int("excludedConnected", st.ExcludedConnected),
		logger.Int("excludedByName", st.ExcludedByName),
		logger.Int("final", st.Final),
	)
	if st.Unidentified > 0 {
		s.log().Debug(ctx, "candidates without profile id", logger.Int("count", st.Unidentified))
	}
	return res, nil
}

// references loads the client's invited and connected collections concurrently,
// going through the reference cache.
func (s *Service) references(ctx context.Context, client string) (dedupe.References, error) {
	store, refs, err := s.deps()
	if err != nil {
		return dedupe.References{}, err
	}
	return refs.Get(ctx, client, func(ctx context.Context) (dedupe.References, error) {
		invites, connections, err := loadHistory(ctx, store, client)
		if err != nil {
			return dedupe.References{}, err
		}
		invited := make([]model.Profile, len(invites))
		for i, inv := range invites {
			invited[i] = inv.Profile
		}
		connected := make([]model.Profile, len(connections))
		for i, c := range connections {
			connected[i] = c.Profile
		}
		return dedupe.NewReferences(invited, connected), nil
	})
}

func loadHistory(ctx context.Context, store repository.Store, client string) ([]model.Invite, []model.Connection, error) {
	var (
		invites     []model.Invite
		connections []model.Connection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invites, err = store.Invited(gctx, client)
		return err
	})
	g.Go(func() error {
		var err error
		connections, err = store.Connections(gctx, client)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return invites, connections, nil
}

// LogInvites records a batch of invited profiles and returns its receipt.
func (s *Service) LogInvites(ctx context.Context, req types.InviteRequest) (types.InviteReceipt, error) {
	store, refs, err := s.deps()
	if err != nil {
		return types.InviteReceipt{}, err
	}

	client := strings.TrimSpace(req.Client)
	if client == "" {
		return types.InviteReceipt{}, ErrMissingClient
	}
	if len(req.Profiles) == 0 {
		return types.InviteReceipt{}, ErrEmptyBatch
	}
	batchID, err := normalizeBatchID(req.BatchID)
	if err != nil {
		return types.InviteReceipt{}, err
	}
	collected, err := s.parseDateOrToday(req.DateCollected)
	if err != nil {
		return types.InviteReceipt{}, err
	}

	batch := model.InviteBatch{
		Client:        client,
		Category:      strings.TrimSpace(req.Category),
		GroupName:     strings.TrimSpace(req.GroupName),
		GrowthListURL: strings.TrimSpace(req.GrowthListURL),
		DateCollected: collected,
		Profiles:      make([]model.Profile, len(req.Profiles)),
	}
	for i, p := range req.Profiles {
		batch.Profiles[i] = toModelProfile(p, client)
	}

	n, err := store.LogInvites(ctx, batchID, batch)
	if errors.Is(err, repository.ErrBatchExists) {
		s.log().Info(ctx, "invite batch already logged",
			logger.String("batchID", batchID),
			logger.String("client", client),
			logger.Int("count", n),
		)
		return types.InviteReceipt{
			BatchID:  batchID,
			Count:    n,
			Summary:  Summary(batch.Client, n, batch.Category, batch.DateCollected, batch.GrowthListURL),
			Replayed: true,
		}, nil
	}
	if err != nil {
		return types.InviteReceipt{}, err
	}
	refs.Invalidate(client)
	metrics.RecordInvitesLogged(n)

	receipt := types.InviteReceipt{
		BatchID: batchID,
		Count:   n,
		Summary: Summary(batch.Client, n, batch.Category, batch.DateCollected, batch.GrowthListURL),
	}
	s.log().Info(ctx, "logged invites",
		logger.String("batchID", batchID),
		logger.String("client", client),
		logger.Int("count", n),
		logger.String("summary", receipt.Summary),
	)
	return receipt, nil
}

// normalizeBatchID returns a new batch ID for an empty value, otherwise the
// canonical form of the given UUID.
func normalizeBatchID(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return uuid.NewString(), nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidBatchID, v)
	}
	return id.String(), nil
}

// Summary formats the one-line description of an invite batch.
func Summary(client string, n int, category string, date time.Time, growthListURL string) string {
	return fmt.Sprintf("%s, %d profiles, \"%s\", %s, %s", client, n, category, date.Format(model.DateLayout), growthListURL)
}

// AddConnections records accepted connections for a client.
func (s *Service) AddConnections(ctx context.Context, req types.ConnectionRequest) (types.ConnectionReceipt, error) {
	store, refs, err := s.deps()
	if err != nil {
		return types.ConnectionReceipt{}, err
	}

	client := strings.TrimSpace(req.Client)
	if client == "" {
		return types.ConnectionReceipt{}, ErrMissingClient
	}
	if len(req.Connections) == 0 {
		return types.ConnectionReceipt{}, ErrEmptyBatch
	}

	connections := make([]model.Connection, len(req.Connections))
	for i, c := range req.Connections {
		on, err := parseDate(c.ConnectedOn)
		if err != nil {
			return types.ConnectionReceipt{}, err
		}
		connections[i] = model.Connection{Profile: toModelProfile(c.Profile, client), ConnectedOn: on}
	}

	n, err := store.AddConnections(ctx, client, connections)
	if err != nil {
		return types.ConnectionReceipt{}, err
	}
	refs.Invalidate(client)
	metrics.RecordConnectionsImported(n)

	s.log().Info(ctx, "imported connections", logger.String("client", client), logger.Int("count", n))
	return types.ConnectionReceipt{Client: client, Count: n}, nil
}

// Clients lists every known client.
func (s *Service) Clients(ctx context.Context) ([]string, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	return store.Clients(ctx)
}

// Categories lists the invite categories used for a client.
func (s *Service) Categories(ctx context.Context, client string) ([]string, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	client = strings.TrimSpace(client)
	if client == "" {
		return nil, ErrMissingClient
	}
	return store.Categories(ctx, client)
}

// RecentInvites returns the newest invited rows. Zero selects the default
// limit; larger values are clamped to the maximum.
func (s *Service) RecentInvites(ctx context.Context, limit int) ([]types.Invite, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	case limit == 0:
		limit = s.recentDefaultLimit
	case limit > s.recentMaxLimit:
		limit = s.recentMaxLimit
	}

	invites, err := store.RecentInvites(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Invite, len(invites))
	for i, inv := range invites {
		out[i] = toInvite(inv)
	}
	return out, nil
}

// Overview summarizes the invite history.
func (s *Service) Overview(ctx context.Context) (types.Overview, error) {
	store, _, err := s.deps()
	if err != nil {
		return types.Overview{}, err
	}
	ov, err := store.Overview(ctx, s.now())
	if err != nil {
		return types.Overview{}, err
	}
	metrics.UpdateTotalInvites(ov.TotalInvites)
	metrics.UpdateTotalConnections(ov.TotalConnections)
	return types.Overview{
		TotalInvites:     ov.TotalInvites,
		UniqueClients:    ov.UniqueClients,
		TodayInvites:     ov.TodayInvites,
		TopClient:        ov.TopClient,
		TopClientInvites: ov.TopClientInvites,
		TotalConnections: ov.TotalConnections,
	}, nil
}

// Engagement lists the client's invited profiles that are now connected.
func (s *Service) Engagement(ctx context.Context, q types.EngagementQuery) ([]types.EngagementRow, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	client := strings.TrimSpace(q.Client)
	if client == "" {
		return nil, ErrMissingClient
	}
	query, err := toEngagementQuery(q)
	if err != nil {
		return nil, err
	}

	invites, connections, err := loadHistory(ctx, store, client)
	if err != nil {
		return nil, err
	}
	rows := engagement.Apply(engagement.Accepted(invites, connections), query)

	out := make([]types.EngagementRow, len(rows))
	for i, r := range rows {
		out[i] = toEngagementRow(r)
	}
	return out, nil
}

// SaveSearch stores an engagement query under a name for its client. Saving
// an existing name replaces that search.
func (s *Service) SaveSearch(ctx context.Context, req types.SavedSearchRequest) (types.SavedSearch, error) {
	store, _, err := s.deps()
	if err != nil {
		return types.SavedSearch{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return types.SavedSearch{}, ErrMissingName
	}
	client := strings.TrimSpace(req.Query.Client)
	if client == "" {
		return types.SavedSearch{}, ErrMissingClient
	}
	query, err := toEngagementQuery(req.Query)
	if err != nil {
		return types.SavedSearch{}, err
	}

	search := toModelSearch(name, client, query, s.now().UTC())
	if search.ID, err = store.SaveSearch(ctx, search); err != nil {
		return types.SavedSearch{}, err
	}
	s.log().Info(ctx, "saved search",
		logger.String("client", client),
		logger.String("name", name),
		logger.Int64("id", search.ID),
	)
	return toSavedSearch(search), nil
}

// SavedSearches lists the client's saved searches by name. An empty client
// lists every search.
func (s *Service) SavedSearches(ctx context.Context, client string) ([]types.SavedSearch, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	searches, err := store.SavedSearches(ctx, strings.TrimSpace(client))
	if err != nil {
		return nil, err
	}
	out := make([]types.SavedSearch, len(searches))
	for i, ss := range searches {
		out[i] = toSavedSearch(ss)
	}
	return out, nil
}

// DeleteSearch removes a saved search.
func (s *Service) DeleteSearch(ctx context.Context, id int64) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if err := store.DeleteSearch(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSearchNotFound) {
			return fmt.Errorf("%w: %d", ErrSearchNotFound, id)
		}
		return err
	}
	s.log().Info(ctx, "deleted saved search", logger.Int64("id", id))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"nameFallback":   s.nameFallback,
		"maxCandidates":  s.maxCandidates,
		"referenceTTLMs": s.referenceTTL.Milliseconds(),
	}
	if s.ownsStore || s.store == nil {
		stats["dbPath"] = s.dbPath
	}

	if s.started {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()

		stats["storeReachable"] = s.store.Ping(ctx) == nil
		ov, err := s.store.Overview(ctx, s.now())
		if err == nil {
			stats["totalInvites"] = ov.TotalInvites
			stats["totalConnections"] = ov.TotalConnections
			stats["uniqueClients"] = ov.UniqueClients

			// Update metrics
			metrics.UpdateTotalInvites(ov.TotalInvites)
			metrics.UpdateTotalConnections(ov.TotalConnections)
		}
	}

	return stats
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}

func (s *Service) parseDateOrToday(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		t, _ := time.Parse(model.DateLayout, s.now().UTC().Format(model.DateLayout))
		return t, nil
	}
	return parseDate(v)
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, v)
	}
	return t, nil
}
