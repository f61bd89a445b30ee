package wayback

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/linuxgroove/market-trends/internal/types"
)

// URL quality scores. Higher is better; rejected URLs never get selected.
const (
	scoreRejected  = -1
	scoreAny       = 0
	scoreKnownGood = 1
	scoreCanonical = 2
)

// trackingParams are query parameters that mark a URL as a tracked
// navigation rather than a canonical page capture.
var trackingParams = []string{"utm_", "fbclid", "gclid", "msclkid", "mc_cid", "ref"}

// assetExtensions are file extensions that can never be the survey document.
var assetExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".svg": true, ".css": true, ".js": true, ".json": true, ".woff": true,
	".woff2": true, ".ttf": true, ".map": true, ".xml": true,
}

// knownGoodParams are query parameter values that still serve the full
// cross-OS aggregate page.
var knownGoodParams = map[string][]string{
	"platform": {"combined"},
	"language": {"english"},
}

// ScoreURL rates a captured URL's suitability for parsing. Canonical URLs
// with no query string rank above known-good query variants, which rank
// above everything else. Tracking-parameter URLs, non-document assets,
// malformed paths, and single-platform filtered views (which lack the
// cross-OS aggregate the parser needs) are rejected outright.
func ScoreURL(raw string) int {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || strings.Contains(parsed.Path, "//") {
		return scoreRejected
	}

	if assetExtensions[strings.ToLower(path.Ext(parsed.Path))] {
		return scoreRejected
	}

	query := parsed.Query()
	if len(query) == 0 {
		return scoreCanonical
	}

	allKnownGood := true
	for key, values := range query {
		lower := strings.ToLower(key)
		for _, tp := range trackingParams {
			if strings.HasPrefix(lower, tp) {
				return scoreRejected
			}
		}

		good, recognized := knownGoodParams[lower]
		if !recognized {
			allKnownGood = false
			continue
		}
		for _, v := range values {
			if !contains(good, strings.ToLower(v)) {
				// A recognized parameter with an unexpected value, e.g.
				// platform=linux, serves a filtered single-OS view.
				return scoreRejected
			}
		}
	}

	if allKnownGood {
		return scoreKnownGood
	}
	return scoreAny
}

// SelectPerMonth deduplicates snapshots to at most one per calendar month,
// preferring the highest-scoring URL and, at equal score, the latest
// capture in the month (later captures reflect the month's final figures).
func SelectPerMonth(snapshots []Snapshot) map[string]Snapshot {
	selected := make(map[string]Snapshot)
	scores := make(map[string]int)

	for _, s := range snapshots {
		score := ScoreURL(s.Original)
		if score == scoreRejected {
			continue
		}
		m, err := s.Month()
		if err != nil {
			continue
		}
		key := m.Key()

		current, ok := selected[key]
		if !ok || score > scores[key] || (score == scores[key] && s.Timestamp > current.Timestamp) {
			selected[key] = s
			scores[key] = score
		}
	}
	return selected
}

// SortedMonths returns the month keys of a selection in ascending order.
func SortedMonths(selection map[string]Snapshot) []types.Month {
	keys := make([]string, 0, len(selection))
	for k := range selection {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	months := make([]types.Month, 0, len(keys))
	for _, k := range keys {
		m, err := types.MonthOf(k)
		if err != nil {
			continue
		}
		months = append(months, m)
	}
	return months
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
