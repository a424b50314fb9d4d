package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/okian/growthdesk/internal/domain/types"
)

// ExportPart names the slice of a filter result written as CSV.
type ExportPart string

// Export parts.
const (
	ExportClean ExportPart = "clean"
	ExportURLs  ExportPart = "urls"
	ExportStats ExportPart = "stats"
)

var baseColumns = []string{"name", "profile_url", "title", "organization", "location", "followers"}

// Valid reports whether p is a known export part.
func (p ExportPart) Valid() bool {
	switch p {
	case ExportClean, ExportURLs, ExportStats:
		return true
	}
	return false
}

// Filename is the attachment name offered for p.
func (p ExportPart) Filename() string {
	return "filtered_" + string(p) + ".csv"
}

func errInvalidPart(p ExportPart) error {
	return fmt.Errorf("unknown export part %q (want clean, urls or stats)", string(p))
}

// WriteCSV writes part of resp to w.
func WriteCSV(w io.Writer, part ExportPart, resp types.FilterResponse) error {
	cw := csv.NewWriter(w)
	var rows [][]string
	switch part {
	case ExportClean:
		rows = cleanRows(resp.Clean)
	case ExportURLs:
		rows = [][]string{{"profile_url"}}
		for _, p := range resp.Clean {
			if p.ProfileURL != "" {
				rows = append(rows, []string{p.ProfileURL})
			}
		}
	case ExportStats:
		rows = statsRows(resp.Stats)
	default:
		return errInvalidPart(part)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// cleanRows renders profiles with the fixed columns first and every
// attribute key seen, sorted, after them.
func cleanRows(profiles []types.Profile) [][]string {
	keySet := make(map[string]struct{})
	for _, p := range profiles {
		for k := range p.Attributes {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	header := append(append([]string{}, baseColumns...), keys...)
	rows := make([][]string, 0, len(profiles)+1)
	rows = append(rows, header)
	for _, p := range profiles {
		followers := ""
		if p.Followers > 0 {
			followers = strconv.Itoa(p.Followers)
		}
		row := []string{p.Name, p.ProfileURL, p.Title, p.Organization, p.Location, followers}
		for _, k := range keys {
			row = append(row, p.Attributes[k])
		}
		rows = append(rows, row)
	}
	return rows
}

func statsRows(s types.FilterStats) [][]string {
	return [][]string{
		{"metric", "value"},
		{"original", strconv.Itoa(s.Original)},
		{"excluded_invited", strconv.Itoa(s.ExcludedInvited)},
		{"excluded_connected", strconv.Itoa(s.ExcludedConnected)},
		{"excluded_by_name", strconv.Itoa(s.ExcludedByName)},
		{"final", strconv.Itoa(s.Final)},
		{"unidentified", strconv.Itoa(s.Unidentified)},
		{"duplicates", strconv.Itoa(s.Duplicates)},
		{"duplicate_rate", strconv.FormatFloat(s.DuplicateRate, 'f', 2, 64)},
	}
}
