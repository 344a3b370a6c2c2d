// Package timezone converts between users' wall clock input and the UTC
// instants events are stored in.
package timezone

import (
	"fmt"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const defaultCacheSize = 256

// Normalizer resolves zone identifiers and converts times. Loaded locations
// are cached since time.LoadLocation reads the tz database from disk.
type Normalizer struct {
	locations *lru.Cache
}

func NewNormalizer(cacheSize int) (*Normalizer, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create location cache: %w", err)
	}
	return &Normalizer{locations: cache}, nil
}

// Location loads an IANA zone. "Local" and the empty string are rejected so a
// result never depends on the host configuration.
func (n *Normalizer) Location(zone string) (*time.Location, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" || strings.EqualFold(zone, "local") {
		return nil, &InvalidZoneError{Zone: zone}
	}
	if cached, ok := n.locations.Get(zone); ok {
		return cached.(*time.Location), nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &InvalidZoneError{Zone: zone, Err: err}
	}
	n.locations.Add(zone, loc)
	return loc, nil
}

// Validate reports whether zone can be loaded.
func (n *Normalizer) Validate(zone string) error {
	_, err := n.Location(zone)
	return err
}

// ToCanonical converts a wall clock reading in zone to a UTC instant.
//
// A reading skipped by a daylight saving jump fails with
// NonexistentLocalTimeError. A reading that occurs twice returns the earlier
// instant together with an AmbiguousLocalTimeError; callers may keep the
// instant and flag it.
func (n *Normalizer) ToCanonical(local LocalTime, zone string) (time.Time, error) {
	if err := local.Validate(); err != nil {
		return time.Time{}, err
	}
	loc, err := n.Location(zone)
	if err != nil {
		return time.Time{}, err
	}

	candidates := instantsFor(local, loc)
	switch len(candidates) {
	case 0:
		return time.Time{}, &NonexistentLocalTimeError{Local: local, Zone: zone}
	case 1:
		return candidates[0], nil
	default:
		return candidates[0], &AmbiguousLocalTimeError{
			Local:   local,
			Zone:    zone,
			Earlier: candidates[0],
			Later:   candidates[len(candidates)-1],
		}
	}
}

// ToLocal returns the wall clock reading of instant in zone.
func (n *Normalizer) ToLocal(instant time.Time, zone string) (LocalTime, error) {
	loc, err := n.Location(zone)
	if err != nil {
		return LocalTime{}, err
	}
	return LocalTimeOf(instant.In(loc)), nil
}

// instantsFor returns every UTC instant whose reading in loc equals local,
// sorted ascending. Offsets are sampled a day either side of the reading,
// which covers every transition in the tz database.
func instantsFor(local LocalTime, loc *time.Location) []time.Time {
	wall := local.asUTC()

	offsets := make([]int, 0, 3)
	for _, probe := range []time.Time{wall.Add(-24 * time.Hour), wall, wall.Add(24 * time.Hour)} {
		_, offset := probe.In(loc).Zone()
		if !slices.Contains(offsets, offset) {
			offsets = append(offsets, offset)
		}
	}

	var out []time.Time
	for _, offset := range offsets {
		candidate := wall.Add(-time.Duration(offset) * time.Second)
		if LocalTimeOf(candidate.In(loc)) == local && !slices.ContainsFunc(out, candidate.Equal) {
			out = append(out, candidate.UTC())
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}
