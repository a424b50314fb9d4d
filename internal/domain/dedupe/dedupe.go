// Package dedupe removes already-contacted people from a candidate growth list.
//
// Matching uses the normalized profile identifier (see package profileid) as
// the join key. Candidates without an identifier fall back to an exact display
// name match. The filter is pure: it performs no I/O and never fails.
package dedupe

import (
	"bitbucket.org/creachadair/stringset"

	"github.com/okian/growthdesk/internal/domain/model"
	"github.com/okian/growthdesk/internal/domain/profileid"
)

// Reason explains why a candidate was excluded.
type Reason string

// Exclusion reasons.
const (
	ReasonInvited   Reason = "invited"   // identifier found among pending invites
	ReasonConnected Reason = "connected" // identifier found among connections
	ReasonName      Reason = "name"      // no identifier; display name matched
)

// References holds the tenant-scoped reference collections.
// Tenant scoping is the caller's job; the filter never looks at Profile.Client.
type References struct {
	InvitedIDs     stringset.Set
	InvitedNames   stringset.Set
	ConnectedIDs   stringset.Set
	ConnectedNames stringset.Set
}

// NewReferences builds reference sets from invited and connected profiles.
// Identifiers are derived from profile URLs; empty names are skipped.
func NewReferences(invited, connected []model.Profile) References {
	invIDs, invNames := collect(invited)
	conIDs, conNames := collect(connected)
	return References{
		InvitedIDs:     stringset.New(invIDs...),
		InvitedNames:   stringset.New(invNames...),
		ConnectedIDs:   stringset.New(conIDs...),
		ConnectedNames: stringset.New(conNames...),
	}
}

func collect(profiles []model.Profile) (ids, names []string) {
	ids = make([]string, 0, len(profiles))
	names = make([]string, 0, len(profiles))
	for _, p := range profiles {
		if id, ok := profileid.FromURL(p.ProfileURL); ok {
			ids = append(ids, id)
		}
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return ids, names
}

// Exclusion records one removed candidate.
type Exclusion struct {
	Profile model.Profile
	ID      string // normalized identifier; empty for name matches
	Reason  Reason
}

// Stats counts what the filter did.
type Stats struct {
	Original          int
	ExcludedInvited   int
	ExcludedConnected int
	ExcludedByName    int
	Final             int
	// Unidentified counts candidates whose URL was missing or malformed.
	Unidentified int
}

// Duplicates is the number of excluded candidates.
func (s Stats) Duplicates() int {
	return s.ExcludedInvited + s.ExcludedConnected + s.ExcludedByName
}

// DuplicateRate is the excluded share of the original list in percent.
func (s Stats) DuplicateRate() float64 {
	if s.Original == 0 {
		return 0
	}
	return float64(s.Duplicates()) / float64(s.Original) * 100
}

// Result is the output of Filter.
type Result struct {
	Clean    []model.Profile
	Excluded []Exclusion
	Stats    Stats
}

// Filter returns the candidates present in neither reference collection.
// Survivors keep their input order. An identifier present in both collections
// counts as connected.
func Filter(candidates []model.Profile, refs References, opts ...Option) Result {
	o := options{nameFallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{
		Clean: make([]model.Profile, 0, len(candidates)),
		Stats: Stats{Original: len(candidates)},
	}

	for _, c := range candidates {
		id, ok := profileid.FromURL(c.ProfileURL)
		if !ok {
			res.Stats.Unidentified++
		}

		reason, excluded := classify(c, id, ok, refs, o.nameFallback)
		if !excluded {
			res.Clean = append(res.Clean, c)
			continue
		}

		res.Excluded = append(res.Excluded, Exclusion{Profile: c, ID: id, Reason: reason})
		switch reason {
		case ReasonConnected:
			res.Stats.ExcludedConnected++
		case ReasonInvited:
			res.Stats.ExcludedInvited++
		case ReasonName:
			res.Stats.ExcludedByName++
		}
	}

	res.Stats.Final = len(res.Clean)
	return res
}

func classify(c model.Profile, id string, identified bool, refs References, nameFallback bool) (Reason, bool) {
	if identified {
		switch {
		case refs.ConnectedIDs.Contains(id):
			return ReasonConnected, true
		case refs.InvitedIDs.Contains(id):
			return ReasonInvited, true
		}
		return "", false
	}
	if !nameFallback || c.Name == "" {
		return "", false
	}
	if refs.InvitedNames.Contains(c.Name) || refs.ConnectedNames.Contains(c.Name) {
		return ReasonName, true
	}
	return "", false
}
