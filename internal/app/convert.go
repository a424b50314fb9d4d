package service

import (
	"strings"
	"time"

	"github.com/okian/growthdesk/internal/domain/dedupe"
	"github.com/okian/growthdesk/internal/domain/engagement"
	"github.com/okian/growthdesk/internal/domain/model"
	"github.com/okian/growthdesk/internal/domain/types"
)

func toModelProfile(p types.Profile, client string) model.Profile {
	return model.Profile{
		Name:         strings.TrimSpace(p.Name),
		ProfileURL:   strings.TrimSpace(p.ProfileURL),
		Client:       client,
		Title:        p.Title,
		Organization: p.Organization,
		Location:     p.Location,
		Followers:    p.Followers,
		Attributes:   p.Attributes,
	}
}

func toProfile(p model.Profile) types.Profile {
	return types.Profile{
		Name:         p.Name,
		ProfileURL:   p.ProfileURL,
		Title:        p.Title,
		Organization: p.Organization,
		Location:     p.Location,
		Followers:    p.Followers,
		Attributes:   p.Attributes,
	}
}

func toFilterResponse(client string, res dedupe.Result) types.FilterResponse {
	out := types.FilterResponse{
		Client:   client,
		Clean:    make([]types.Profile, len(res.Clean)),
		Excluded: make([]types.Excluded, len(res.Excluded)),
		Stats: types.FilterStats{
			Original:          res.Stats.Original,
			ExcludedInvited:   res.Stats.ExcludedInvited,
			ExcludedConnected: res.Stats.ExcludedConnected,
			ExcludedByName:    res.Stats.ExcludedByName,
			Final:             res.Stats.Final,
			Unidentified:      res.Stats.Unidentified,
			Duplicates:        res.Stats.Duplicates(),
			DuplicateRate:     res.Stats.DuplicateRate(),
		},
	}
	for i, p := range res.Clean {
		out.Clean[i] = toProfile(p)
	}
	for i, ex := range res.Excluded {
		out.Excluded[i] = types.Excluded{
			Profile:   toProfile(ex.Profile),
			ProfileID: ex.ID,
			Reason:    string(ex.Reason),
		}
	}
	return out
}

func toInvite(inv model.Invite) types.Invite {
	return types.Invite{
		Profile:       toProfile(inv.Profile),
		ID:            inv.ID,
		BatchID:       inv.BatchID,
		Client:        inv.Client,
		Category:      inv.Category,
		GroupName:     inv.GroupName,
		GrowthListURL: inv.GrowthListURL,
		DateCollected: formatDate(inv.DateCollected),
		CreatedAt:     inv.CreatedAt,
	}
}

func toEngagementQuery(q types.EngagementQuery) (engagement.Query, error) {
	out := engagement.Query{
		Categories:   q.Categories,
		TitleInclude: q.TitleInclude,
		TitleExclude: q.TitleExclude,
		Organization: strings.TrimSpace(q.Organization),
		MinFollowers: q.MinFollowers,
		MaxFollowers: q.MaxFollowers,
	}
	var err error
	if out.InvitedFrom, err = parseDate(q.InvitedFrom); err != nil {
		return out, err
	}
	if out.InvitedTo, err = parseDate(q.InvitedTo); err != nil {
		return out, err
	}
	if out.ConnectedFrom, err = parseDate(q.ConnectedFrom); err != nil {
		return out, err
	}
	if out.ConnectedTo, err = parseDate(q.ConnectedTo); err != nil {
		return out, err
	}
	return out, nil
}

func toModelSearch(name, client string, q engagement.Query, created time.Time) model.SavedSearch {
	return model.SavedSearch{
		Name:          name,
		Client:        client,
		Categories:    cleanList(q.Categories),
		TitleInclude:  cleanList(q.TitleInclude),
		TitleExclude:  cleanList(q.TitleExclude),
		Organization:  q.Organization,
		MinFollowers:  q.MinFollowers,
		MaxFollowers:  q.MaxFollowers,
		InvitedFrom:   q.InvitedFrom,
		InvitedTo:     q.InvitedTo,
		ConnectedFrom: q.ConnectedFrom,
		ConnectedTo:   q.ConnectedTo,
		CreatedAt:     created,
	}
}

func toSavedSearch(ss model.SavedSearch) types.SavedSearch {
	return types.SavedSearch{
		ID:   ss.ID,
		Name: ss.Name,
		Query: types.EngagementQuery{
			Client:        ss.Client,
			Categories:    ss.Categories,
			TitleInclude:  ss.TitleInclude,
			TitleExclude:  ss.TitleExclude,
			Organization:  ss.Organization,
			MinFollowers:  ss.MinFollowers,
			MaxFollowers:  ss.MaxFollowers,
			InvitedFrom:   formatDate(ss.InvitedFrom),
			InvitedTo:     formatDate(ss.InvitedTo),
			ConnectedFrom: formatDate(ss.ConnectedFrom),
			ConnectedTo:   formatDate(ss.ConnectedTo),
		},
		CreatedAt: ss.CreatedAt,
	}
}

// cleanList trims entries and drops blanks; saved lists are stored
// comma-joined so commas inside an entry split it.
func cleanList(items []string) []string {
	var out []string
	for _, it := range items {
		for _, part := range strings.Split(it, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func toEngagementRow(r engagement.Row) types.EngagementRow {
	return types.EngagementRow{
		Profile:     toProfile(r.Profile),
		ProfileID:   r.ID,
		PostsURL:    r.PostsURL,
		Category:    r.Category,
		InvitedOn:   formatDate(r.InvitedOn),
		ConnectedOn: formatDate(r.ConnectedOn),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}
