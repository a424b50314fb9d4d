// Package profileid derives the canonical profile identifier used to join
// growth lists against invite and connection records.
package profileid

import (
	"net/url"
	"regexp"
	"strings"
)

const canonicalPrefix = "https://www.linkedin.com/in/"

// marker matches the public identifier segment. Scheme, subdomain, query,
// fragment and trailing path segments are ignored. Spaces stay in the
// segment and are trimmed from its ends after matching.
var marker = regexp.MustCompile(`(?i)linkedin\.com/in/([^/?#]+)`)

// FromURL extracts the normalized identifier from a profile URL.
// ok is false when raw is empty or does not contain a profile path.
func FromURL(raw string) (id string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	m := marker.FindStringSubmatch(raw)
	if len(m) < 2 {
		return "", false
	}
	slug := m[1]
	if strings.Contains(slug, "%") {
		if decoded, err := url.PathUnescape(slug); err == nil {
			slug = decoded
		}
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return "", false
	}
	return slug, true
}

// PostsURL returns the recent-activity page for a profile URL, or "" when the
// URL carries no identifier.
func PostsURL(profileURL string) string {
	id, ok := FromURL(profileURL)
	if !ok {
		return ""
	}
	return canonicalPrefix + id + "/recent-activity/all/"
}
