// Package cache implements the cross-session unmatched memory: entities that
// repeatedly fail to resolve are recorded once and counted, so the same miss
// is never re-surfaced as new.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/poi-recon/internal/normalize"
	"github.com/poi-recon/internal/similarity"
)

// Two recordings refer to the same real-world entity when identifiers are
// equal, or when they are within proximityM metres with name similarity
// above sameNameSim.
const (
	proximityM  = 100.0
	sameNameSim = 0.85
)

// Entry is one remembered unresolved entity.
type Entry struct {
	NormalizedName    string    `json:"normalized_name"`
	OriginalName      string    `json:"original_name"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	NormalizedAddress string    `json:"normalized_address,omitempty"`
	PlaceID           string    `json:"place_id,omitempty"`
	Source            string    `json:"source"` // which dataset flagged it
	FirstSeenAt       time.Time `json:"first_seen_at"`
	LastSeenAt        time.Time `json:"last_seen_at"`
	SeenCount         int       `json:"seen_count"`
}

// Hit is the result of a cache lookup.
type Hit struct {
	Seen   bool   `json:"seen"`
	Reason string `json:"reason,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// Key identifies an entity for cache purposes.
type Key struct {
	Name    string
	Street  string
	Lat     float64
	Lon     float64
	PlaceID string
}

// Cache is the in-memory working set. Mutations are serialized internally;
// persistence is the caller's concern (see Store).
type Cache struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates a cache seeded with previously persisted entries.
func New(entries []Entry) *Cache {
	c := &Cache{}
	c.entries = append(c.entries, entries...)
	return c
}

// Entries returns a snapshot of the cache contents.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup reports whether the entity has been seen before and why.
func (c *Cache) Lookup(k Key) Hit {
	c.mu.Lock()
	defer c.mu.Unlock()

	normName := normalize.Name(k.Name)
	if i := c.find(normName, k.Lat, k.Lon, k.PlaceID); i >= 0 {
		e := c.entries[i]
		reason := fmt.Sprintf("seen %d time(s) before, last on %s",
			e.SeenCount, e.LastSeenAt.Format("2006-01-02"))
		if k.PlaceID != "" && k.PlaceID == e.PlaceID {
			reason = "identifier " + reason
		}
		return Hit{Seen: true, Reason: reason, Count: e.SeenCount}
	}
	return Hit{}
}

// Record notes that the entity failed to resolve again. An existing entry for
// the same real-world entity is incremented, never duplicated; the count is
// telemetry, not a bug.
func (c *Cache) Record(k Key, source string, now time.Time) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	normName := normalize.Name(k.Name)
	if i := c.find(normName, k.Lat, k.Lon, k.PlaceID); i >= 0 {
		c.entries[i].SeenCount++
		c.entries[i].LastSeenAt = now
		return c.entries[i]
	}

	e := Entry{
		NormalizedName:    normName,
		OriginalName:      k.Name,
		Latitude:          k.Lat,
		Longitude:         k.Lon,
		NormalizedAddress: normalize.Street(k.Street),
		PlaceID:           k.PlaceID,
		Source:            source,
		FirstSeenAt:       now,
		LastSeenAt:        now,
		SeenCount:         1,
	}
	c.entries = append(c.entries, e)
	return e
}

// find locates the entry matching the identity rule; -1 when absent.
func (c *Cache) find(normName string, lat, lon float64, placeID string) int {
	for i, e := range c.entries {
		if placeID != "" && e.PlaceID == placeID {
			return i
		}
		if e.NormalizedName == "" || normName == "" {
			continue
		}
		dist := similarity.Haversine(lat, lon, e.Latitude, e.Longitude)
		if dist <= proximityM && similarity.Dice(normName, e.NormalizedName) > sameNameSim {
			return i
		}
	}
	return -1
}
