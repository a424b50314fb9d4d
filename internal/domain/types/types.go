// Package types contains the request and response shapes shared by the HTTP
// API, the service layer and the growthctl client.
package types

import "time"

// Profile is a person record on the wire.
type Profile struct {
	Name         string            `json:"name"`
	ProfileURL   string            `json:"profile_url,omitempty"`
	Title        string            `json:"title,omitempty"`
	Organization string            `json:"organization,omitempty"`
	Location     string            `json:"location,omitempty"`
	Followers    int               `json:"followers,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// FilterRequest asks for a candidate list to be de-duplicated for one client.
type FilterRequest struct {
	Client     string    `json:"client"`
	Candidates []Profile `json:"candidates"`
}

// Excluded is a removed candidate with the identifier that matched and why.
type Excluded struct {
	Profile
	ProfileID string `json:"profile_id,omitempty"`
	Reason    string `json:"reason"`
}

// FilterStats reports what the filter did.
type FilterStats struct {
	Original          int     `json:"original"`
	ExcludedInvited   int     `json:"excluded_invited"`
	ExcludedConnected int     `json:"excluded_connected"`
	ExcludedByName    int     `json:"excluded_by_name"`
	Final             int     `json:"final"`
	Unidentified      int     `json:"unidentified"`
	Duplicates        int     `json:"duplicates"`
	DuplicateRate     float64 `json:"duplicate_rate"`
}

// FilterResponse is the result of a filter run.
type FilterResponse struct {
	Client   string      `json:"client"`
	Clean    []Profile   `json:"clean"`
	Excluded []Excluded  `json:"excluded"`
	Stats    FilterStats `json:"stats"`
}

// InviteRequest logs a batch of invited profiles.
// DateCollected is YYYY-MM-DD; empty means today (UTC). BatchID, when set,
// must be a UUID; resending a logged batch ID stores nothing new.
type InviteRequest struct {
	BatchID       string    `json:"batch_id,omitempty"`
	Client        string    `json:"client"`
	Category      string    `json:"category,omitempty"`
	GroupName     string    `json:"group_name,omitempty"`
	GrowthListURL string    `json:"growth_list_url,omitempty"`
	DateCollected string    `json:"date_collected,omitempty"`
	Profiles      []Profile `json:"profiles"`
}

// InviteReceipt acknowledges a logged batch.
type InviteReceipt struct {
	BatchID  string `json:"batch_id"`
	Count    int    `json:"count"`
	Summary  string `json:"summary"`
	Replayed bool   `json:"replayed,omitempty"`
}

// Invite is a stored invited profile.
type Invite struct {
	Profile
	ID            int64     `json:"id"`
	BatchID       string    `json:"batch_id"`
	Client        string    `json:"client"`
	Category      string    `json:"category,omitempty"`
	GroupName     string    `json:"group_name,omitempty"`
	GrowthListURL string    `json:"growth_list_url,omitempty"`
	DateCollected string    `json:"date_collected"`
	CreatedAt     time.Time `json:"created_at"`
}

// Overview summarizes the invite history.
type Overview struct {
	TotalInvites     int    `json:"total_invites"`
	UniqueClients    int    `json:"unique_clients"`
	TodayInvites     int    `json:"today_invites"`
	TopClient        string `json:"top_client,omitempty"`
	TopClientInvites int    `json:"top_client_invites"`
	TotalConnections int    `json:"total_connections"`
}

// Connection is an accepted invite. ConnectedOn is YYYY-MM-DD or empty.
type Connection struct {
	Profile
	ConnectedOn string `json:"connected_on,omitempty"`
}

// ConnectionRequest imports connections for one client.
type ConnectionRequest struct {
	Client      string       `json:"client"`
	Connections []Connection `json:"connections"`
}

// ConnectionReceipt acknowledges imported connections.
type ConnectionReceipt struct {
	Client string `json:"client"`
	Count  int    `json:"count"`
}

// EngagementQuery selects accepted invites to follow up on.
// Dates are YYYY-MM-DD; zero values disable a criterion.
type EngagementQuery struct {
	Client        string   `json:"client"`
	Categories    []string `json:"categories,omitempty"`
	TitleInclude  []string `json:"title_include,omitempty"`
	TitleExclude  []string `json:"title_exclude,omitempty"`
	Organization  string   `json:"organization,omitempty"`
	MinFollowers  int      `json:"min_followers,omitempty"`
	MaxFollowers  int      `json:"max_followers,omitempty"`
	InvitedFrom   string   `json:"invited_from,omitempty"`
	InvitedTo     string   `json:"invited_to,omitempty"`
	ConnectedFrom string   `json:"connected_from,omitempty"`
	ConnectedTo   string   `json:"connected_to,omitempty"`
}

// SavedSearchRequest stores Query under Name for the query's client.
type SavedSearchRequest struct {
	Name  string          `json:"name"`
	Query EngagementQuery `json:"query"`
}

// SavedSearch is a stored engagement query.
type SavedSearch struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Query     EngagementQuery `json:"query"`
	CreatedAt time.Time       `json:"created_at"`
}

// EngagementRow is an invited profile that is now connected.
type EngagementRow struct {
	Profile
	ProfileID   string `json:"profile_id,omitempty"`
	PostsURL    string `json:"posts_url,omitempty"`
	Category    string `json:"category,omitempty"`
	InvitedOn   string `json:"invited_on,omitempty"`
	ConnectedOn string `json:"connected_on,omitempty"`
}
