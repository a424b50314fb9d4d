// Package engagement lists invited people who have since connected, so the
// team can follow up on their recent activity.
package engagement

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/growthdesk/internal/domain/model"
	"github.com/okian/growthdesk/internal/domain/profileid"
)

// Row is an accepted invite.
type Row struct {
	model.Profile
	ID          string // normalized profile identifier, may be empty
	PostsURL    string
	Category    string
	InvitedOn   time.Time
	ConnectedOn time.Time
}

// Query narrows the accepted list. Zero values disable a criterion.
type Query struct {
	Categories    []string
	TitleInclude  []string // keep rows whose title contains any keyword
	TitleExclude  []string // drop rows whose title contains any keyword
	Organization  string   // substring of the organization
	MinFollowers  int
	MaxFollowers  int // 0 means no upper bound
	InvitedFrom   time.Time
	InvitedTo     time.Time
	ConnectedFrom time.Time
	ConnectedTo   time.Time
}

// Accepted joins invites with connections. Identifiers are the join key;
// names are used when either side has no identifier.
func Accepted(invites []model.Invite, connections []model.Connection) []Row {
	byID := make(map[string]model.Connection, len(connections))
	byName := make(map[string]model.Connection, len(connections))
	unidentified := make(map[string]model.Connection)
	for _, c := range connections {
		if id, ok := profileid.FromURL(c.ProfileURL); ok {
			byID[id] = c
		} else if c.Name != "" {
			unidentified[c.Name] = c
		}
		if c.Name != "" {
			byName[c.Name] = c
		}
	}

	rows := make([]Row, 0, len(invites))
	for _, inv := range invites {
		id, ok := profileid.FromURL(inv.ProfileURL)

		var (
			conn  model.Connection
			found bool
		)
		switch {
		case ok:
			if conn, found = byID[id]; !found && inv.Name != "" {
				conn, found = unidentified[inv.Name]
			}
		case inv.Name != "":
			conn, found = byName[inv.Name]
		}
		if !found {
			continue
		}

		rows = append(rows, Row{
			Profile:     inv.Profile,
			ID:          id,
			PostsURL:    profileid.PostsURL(inv.ProfileURL),
			Category:    inv.Category,
			InvitedOn:   inv.DateCollected,
			ConnectedOn: conn.ConnectedOn,
		})
	}
	return rows
}

// Apply filters rows with q and orders them by most recent connection first.
func Apply(rows []Row, q Query) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConnectedOn.After(out[j].ConnectedOn)
	})
	return out
}

// Match reports whether r satisfies every criterion of q.
func (q Query) Match(r Row) bool {
	if len(q.Categories) > 0 && !containsFold(q.Categories, r.Category) {
		return false
	}
	title := strings.ToLower(r.Title)
	if len(q.TitleInclude) > 0 && !anySubstring(title, q.TitleInclude) {
		return false
	}
	if anySubstring(title, q.TitleExclude) {
		return false
	}
	if q.Organization != "" && !strings.Contains(strings.ToLower(r.Organization), strings.ToLower(q.Organization)) {
		return false
	}
	if r.Followers < q.MinFollowers {
		return false
	}
	if q.MaxFollowers > 0 && r.Followers > q.MaxFollowers {
		return false
	}
	return inRange(r.InvitedOn, q.InvitedFrom, q.InvitedTo) &&
		inRange(r.ConnectedOn, q.ConnectedFrom, q.ConnectedTo)
}

// ParseKeywords splits a comma-separated keyword list, dropping blanks.
func ParseKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func anySubstring(lowered string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(lowered, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// inRange treats bounds as whole days. An unknown date fails any set bound.
func inRange(t, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	day := t.Truncate(24 * time.Hour)
	if !from.IsZero() && day.Before(from.Truncate(24*time.Hour)) {
		return false
	}
	if !to.IsZero() && day.After(to.Truncate(24*time.Hour)) {
		return false
	}
	return true
}
