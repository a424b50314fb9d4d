// Package model contains domain models passed between layers.
package model

import "time"

// DateLayout is the calendar-date format used for invite and connection dates.
const DateLayout = "2006-01-02"

// Profile is a person record as it appears on a growth list.
// Only Name and ProfileURL take part in matching; the rest passes through.
type Profile struct {
	Name         string            // display name, e.g. "Jane Doe"
	ProfileURL   string            // optional profile link
	Client       string            // tenant the record belongs to
	Title        string            // headline / job title
	Organization string            // current organization
	Location     string            // free-form location
	Followers    int               // follower count
	Attributes   map[string]string // extra spreadsheet columns, untouched
}

// Invite is a profile that received a connection invite on behalf of a client.
type Invite struct {
	Profile
	ID            int64
	BatchID       string    // groups rows logged together
	Category      string    // campaign category, e.g. "CTOs NL"
	GroupName     string    // optional engagement group
	GrowthListURL string    // source list the invites were taken from
	DateCollected time.Time // day the invites were sent
	CreatedAt     time.Time
}

// Connection is a profile that accepted an invite and is now connected.
type Connection struct {
	Profile
	ID          int64
	ConnectedOn time.Time // approximate day the connection was made; zero if unknown
	CreatedAt   time.Time
}

// InviteBatch is one logging action: a list of profiles invited for a client.
type InviteBatch struct {
	Client        string
	Category      string
	GroupName     string
	GrowthListURL string
	DateCollected time.Time
	Profiles      []Profile
}

// InviteOverview summarises the invite table.
type InviteOverview struct {
	TotalInvites     int
	UniqueClients    int
	TodayInvites     int
	TopClient        string
	TopClientInvites int
	TotalConnections int
}

// SavedSearch is a named engagement filter kept for a client.
// Zero values disable a criterion, as in an engagement query.
type SavedSearch struct {
	ID            int64
	Name          string
	Client        string
	Categories    []string
	TitleInclude  []string
	TitleExclude  []string
	Organization  string
	MinFollowers  int
	MaxFollowers  int
	InvitedFrom   time.Time
	InvitedTo     time.Time
	ConnectedFrom time.Time
	ConnectedTo   time.Time
	CreatedAt     time.Time
}
