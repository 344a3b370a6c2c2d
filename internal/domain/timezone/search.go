package timezone

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

//go:embed zones.txt
var zonesFile string

// aliases maps the names people type to the zone they usually mean.
var aliases = map[string]string{
	"eastern":  "America/New_York",
	"est":      "America/New_York",
	"edt":      "America/New_York",
	"central":  "America/Chicago",
	"cst":      "America/Chicago",
	"mountain": "America/Denver",
	"mst":      "America/Denver",
	"pacific":  "America/Los_Angeles",
	"pst":      "America/Los_Angeles",
	"gmt":      "Europe/London",
	"uk":       "Europe/London",
	"cet":      "Europe/Berlin",
	"ist":      "Asia/Kolkata",
	"jst":      "Asia/Tokyo",
	"aest":     "Australia/Sydney",
}

// Match is one zone suggestion.
type Match struct {
	Zone  string
	Label string
}

type zoneSource []string

func (z zoneSource) String(i int) string {
	return strings.ReplaceAll(z[i], "_", " ")
}

func (z zoneSource) Len() int {
	return len(z)
}

var (
	zonesOnce sync.Once
	zones     zoneSource
)

// Zones returns the known canonical zone identifiers.
func Zones() []string {
	zonesOnce.Do(func() {
		for _, line := range strings.Split(zonesFile, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				zones = append(zones, line)
			}
		}
	})
	return zones
}

// Search suggests zones for a partial query, best match first.
func Search(query string, limit int) []Match {
	source := zoneSource(Zones())
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = 25
	}

	var out []Match
	seen := make(map[string]struct{})
	add := func(zone, label string) bool {
		if _, ok := seen[zone]; ok {
			return true
		}
		seen[zone] = struct{}{}
		out = append(out, Match{Zone: zone, Label: label})
		return len(out) < limit
	}

	if query == "" {
		for _, zone := range source {
			if !add(zone, zone) {
				break
			}
		}
		return out
	}

	if zone, ok := aliases[strings.ToLower(query)]; ok {
		if !add(zone, strings.ToUpper(query)+" ("+zone+")") {
			return out
		}
	}

	for _, match := range fuzzy.FindFrom(query, source) {
		zone := source[match.Index]
		if !add(zone, zone) {
			break
		}
	}
	return out
}
