package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/mattn/go-sqlite3"

	"github.com/okian/growthdesk/internal/domain/model"
	"github.com/okian/growthdesk/pkg/metrics"
)

const (
	defaultBusyRetries = 3
	defaultRetryDelay  = 50 * time.Millisecond

	// stampLayout is fixed width so created_at sorts correctly as text.
	stampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// schema is applied on every open; statements are idempotent.
var schema = []string{ //nolint:gochecknoglobals // static DDL
	`CREATE TABLE IF NOT EXISTS invited_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		client_name TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		profile_url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		followers INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		group_name TEXT NOT NULL DEFAULT '',
		growth_list_url TEXT NOT NULL DEFAULT '',
		date_collected TEXT NOT NULL,
		attributes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invited_client ON invited_profiles(client_name)`,
	`CREATE INDEX IF NOT EXISTS idx_invited_recent ON invited_profiles(date_collected, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_invited_batch ON invited_profiles(batch_id)`,
	`CREATE TABLE IF NOT EXISTS connections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		profile_url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		followers INTEGER NOT NULL DEFAULT 0,
		connected_on TEXT NOT NULL DEFAULT '',
		attributes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_client ON connections(client_name)`,
	`CREATE TABLE IF NOT EXISTS saved_searches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		search_name TEXT NOT NULL,
		client_name TEXT NOT NULL,
		categories TEXT NOT NULL DEFAULT '',
		title_include TEXT NOT NULL DEFAULT '',
		title_exclude TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL DEFAULT '',
		min_followers INTEGER NOT NULL DEFAULT 0,
		max_followers INTEGER NOT NULL DEFAULT 0,
		connected_from TEXT NOT NULL DEFAULT '',
		connected_to TEXT NOT NULL DEFAULT '',
		invited_from TEXT NOT NULL DEFAULT '',
		invited_to TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE (client_name, search_name)
	)`,
}

const inviteColumns = `id, batch_id, client_name, full_name, profile_url, title, organization, location,
	followers, category, group_name, growth_list_url, date_collected, attributes, created_at`

const connectionColumns = `id, client_name, full_name, profile_url, title, organization, location,
	followers, connected_on, attributes, created_at`

const searchColumns = `id, search_name, client_name, categories, title_include, title_exclude,
	organization, min_followers, max_followers, connected_from, connected_to,
	invited_from, invited_to, created_at`

// SQLStore is a Store backed by a SQLite file.
type SQLStore struct {
	db          *sql.DB
	now         func() time.Time
	busyRetries uint
	retryDelay  time.Duration
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens (creating if needed) the database at path and applies the schema.
func NewSQLStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	if path == "" {
		return nil, ErrMissingPath
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLStore{
		db:          db,
		now:         time.Now,
		busyRetries: defaultBusyRetries,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}
	return s, nil
}

// LogInvites implements Store.
func (s *SQLStore) LogInvites(ctx context.Context, batchID string, batch model.InviteBatch) (int, error) {
	if len(batch.Profiles) == 0 {
		return 0, ErrEmptyBatch
	}
	defer s.observe("log_invites", time.Now())

	created := s.now().UTC().Format(stampLayout)
	collected := batch.DateCollected.Format(model.DateLayout)

	var existing int
	err := s.withTx(ctx, "log_invites", func(tx *sql.Tx) error {
		existing = 0
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM invited_profiles WHERE batch_id = ?`, batchID,
		).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO invited_profiles (batch_id, client_name, full_name, profile_url,
				title, organization, location, followers, category, group_name, growth_list_url,
				date_collected, attributes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range batch.Profiles {
			if _, err := stmt.ExecContext(ctx,
				batchID, batch.Client, p.Name, p.ProfileURL,
				p.Title, p.Organization, p.Location, p.Followers,
				batch.Category, batch.GroupName, batch.GrowthListURL,
				collected, encodeAttributes(p.Attributes), created,
			); err != nil {
				return fmt.Errorf("insert invite %q: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return existing, fmt.Errorf("%w: %s", ErrBatchExists, batchID)
	}
	return len(batch.Profiles), nil
}

// AddConnections implements Store.
func (s *SQLStore) AddConnections(ctx context.Context, client string, connections []model.Connection) (int, error) {
	if len(connections) == 0 {
		return 0, ErrEmptyBatch
	}
	defer s.observe("add_connections", time.Now())

	created := s.now().UTC().Format(stampLayout)

	err := s.withTx(ctx, "add_connections", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO connections (client_name, full_name, profile_url, title,
				organization, location, followers, connected_on, attributes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range connections {
			if _, err := stmt.ExecContext(ctx,
				client, c.Name, c.ProfileURL, c.Title,
				c.Organization, c.Location, c.Followers, formatDate(c.ConnectedOn),
				encodeAttributes(c.Attributes), created,
			); err != nil {
				return fmt.Errorf("insert connection %q: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(connections), nil
}

// Invited implements Store.
func (s *SQLStore) Invited(ctx context.Context, client string) ([]model.Invite, error) {
	defer s.observe("invited", time.Now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM invited_profiles WHERE client_name = ? ORDER BY id`, client)
	if err != nil {
		return nil, s.fail("invited", err)
	}
	return scanInvites(rows)
}

// Connections implements Store.
func (s *SQLStore) Connections(ctx context.Context, client string) ([]model.Connection, error) {
	defer s.observe("connections", time.Now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE client_name = ? ORDER BY id`, client)
	if err != nil {
		return nil, s.fail("connections", err)
	}
	defer rows.Close()

	var out []model.Connection
	for rows.Next() {
		var (
			c                        model.Connection
			connected, attrs, stamp string
		)
		if err := rows.Scan(&c.ID, &c.Client, &c.Name, &c.ProfileURL, &c.Title, &c.Organization,
			&c.Location, &c.Followers, &connected, &attrs, &stamp); err != nil {
			return nil, s.fail("connections", err)
		}
		c.ConnectedOn = parseDate(connected)
		c.CreatedAt = parseStamp(stamp)
		c.Attributes = decodeAttributes(attrs)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("connections", err)
	}
	return out, nil
}

// Clients implements Store.
func (s *SQLStore) Clients(ctx context.Context) ([]string, error) {
	defer s.observe("clients", time.Now())
	return s.queryStrings(ctx, "clients", `
		SELECT client_name FROM invited_profiles
		UNION
		SELECT client_name FROM connections
		ORDER BY 1`)
}

// Categories implements Store.
func (s *SQLStore) Categories(ctx context.Context, client string) ([]string, error) {
	defer s.observe("categories", time.Now())
	return s.queryStrings(ctx, "categories", `
		SELECT DISTINCT category FROM invited_profiles
		WHERE client_name = ? AND category <> ''
		ORDER BY category`, client)
}

// RecentInvites implements Store.
func (s *SQLStore) RecentInvites(ctx context.Context, limit int) ([]model.Invite, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer s.observe("recent_invites", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+inviteColumns+` FROM invited_profiles
		ORDER BY date_collected DESC, created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, s.fail("recent_invites", err)
	}
	return scanInvites(rows)
}

// Overview implements Store.
func (s *SQLStore) Overview(ctx context.Context, now time.Time) (model.InviteOverview, error) {
	defer s.observe("overview", time.Now())

	var ov model.InviteOverview
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT client_name),
			COALESCE(SUM(CASE WHEN substr(created_at, 1, 10) = ? THEN 1 ELSE 0 END), 0)
		FROM invited_profiles`, now.UTC().Format(model.DateLayout),
	).Scan(&ov.TotalInvites, &ov.UniqueClients, &ov.TodayInvites)
	if err != nil {
		return ov, s.fail("overview", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT client_name, COUNT(*) FROM invited_profiles
		GROUP BY client_name
		ORDER BY COUNT(*) DESC, client_name
		LIMIT 1`).Scan(&ov.TopClient, &ov.TopClientInvites)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ov, s.fail("overview", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&ov.TotalConnections); err != nil {
		return ov, s.fail("overview", err)
	}
	return ov, nil
}

// SaveSearch implements Store.
func (s *SQLStore) SaveSearch(ctx context.Context, search model.SavedSearch) (int64, error) {
	defer s.observe("save_search", time.Now())

	created := search.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	var id int64
	err := s.withTx(ctx, "save_search", func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO saved_searches (search_name, client_name, categories, title_include,
				title_exclude, organization, min_followers, max_followers, connected_from,
				connected_to, invited_from, invited_to, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (client_name, search_name) DO UPDATE SET
				categories = excluded.categories,
				title_include = excluded.title_include,
				title_exclude = excluded.title_exclude,
				organization = excluded.organization,
				min_followers = excluded.min_followers,
				max_followers = excluded.max_followers,
				connected_from = excluded.connected_from,
				connected_to = excluded.connected_to,
				invited_from = excluded.invited_from,
				invited_to = excluded.invited_to,
				created_at = excluded.created_at
			RETURNING id`,
			search.Name, search.Client,
			joinList(search.Categories), joinList(search.TitleInclude), joinList(search.TitleExclude),
			search.Organization, search.MinFollowers, search.MaxFollowers,
			formatDate(search.ConnectedFrom), formatDate(search.ConnectedTo),
			formatDate(search.InvitedFrom), formatDate(search.InvitedTo),
			created.UTC().Format(stampLayout),
		).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SavedSearches implements Store.
func (s *SQLStore) SavedSearches(ctx context.Context, client string) ([]model.SavedSearch, error) {
	defer s.observe("saved_searches", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+searchColumns+` FROM saved_searches
		WHERE ? = '' OR client_name = ?
		ORDER BY search_name, client_name`, client, client)
	if err != nil {
		return nil, s.fail("saved_searches", err)
	}
	defer rows.Close()

	out := []model.SavedSearch{}
	for rows.Next() {
		var (
			ss                     model.SavedSearch
			cats, include, exclude string
			dates                  [4]string
			stamp                  string
		)
		if err := rows.Scan(&ss.ID, &ss.Name, &ss.Client, &cats, &include, &exclude,
			&ss.Organization, &ss.MinFollowers, &ss.MaxFollowers, &dates[0], &dates[1],
			&dates[2], &dates[3], &stamp); err != nil {
			return nil, s.fail("saved_searches", err)
		}
		ss.Categories = splitList(cats)
		ss.TitleInclude = splitList(include)
		ss.TitleExclude = splitList(exclude)
		ss.ConnectedFrom, ss.ConnectedTo = parseDate(dates[0]), parseDate(dates[1])
		ss.InvitedFrom, ss.InvitedTo = parseDate(dates[2]), parseDate(dates[3])
		ss.CreatedAt = parseStamp(stamp)
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("saved_searches", err)
	}
	return out, nil
}

// DeleteSearch implements Store.
func (s *SQLStore) DeleteSearch(ctx context.Context, id int64) error {
	defer s.observe("delete_search", time.Now())

	var removed int64
	err := s.withTx(ctx, "delete_search", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = ?`, id)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w: %d", ErrSearchNotFound, id)
	}
	return nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, retrying the whole transaction while SQLite
// reports the database as busy or locked.
func (s *SQLStore) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	err := retry.Do(
		func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()

			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit()
		},
		retry.Context(ctx),
		retry.Attempts(s.busyRetries),
		retry.Delay(s.retryDelay),
		retry.MaxJitter(s.retryDelay),
		retry.RetryIf(isBusy),
		retry.OnRetry(func(uint, error) { metrics.RecordStoreRetry() }),
	)
	if err != nil {
		return s.fail(op, err)
	}
	return nil
}

func (s *SQLStore) queryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, s.fail(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

func (s *SQLStore) observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}

func (s *SQLStore) fail(op string, err error) error {
	metrics.RecordStoreError(op)
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

func scanInvites(rows *sql.Rows) ([]model.Invite, error) {
	defer rows.Close()

	var out []model.Invite
	for rows.Next() {
		var (
			inv                      model.Invite
			collected, attrs, stamp string
		)
		if err := rows.Scan(&inv.ID, &inv.BatchID, &inv.Client, &inv.Name, &inv.ProfileURL,
			&inv.Title, &inv.Organization, &inv.Location, &inv.Followers, &inv.Category,
			&inv.GroupName, &inv.GrowthListURL, &collected, &attrs, &stamp); err != nil {
			return nil, fmt.Errorf("%w: scan invite: %w", ErrStore, err)
		}
		inv.DateCollected = parseDate(collected)
		inv.CreatedAt = parseStamp(stamp)
		inv.Attributes = decodeAttributes(attrs)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan invites: %w", ErrStore, err)
	}
	return out, nil
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseStamp accepts stampLayout and the variable-width RFC 3339 form.
func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// joinList stores a keyword list comma-joined; entries are trimmed and blanks dropped.
func joinList(items []string) string {
	kept := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	return strings.Join(kept, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func encodeAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeAttributes(s string) map[string]string {
	if s == "" {
		return nil
	}
	var attrs map[string]string
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil
	}
	return attrs
}
