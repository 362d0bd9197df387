// Package session holds the job aggregate: one reconciliation run's entire
// mutable state, owned by exactly one caller at a time. There are no
// process-wide singletons; every core function receives the job explicitly.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poi-recon/internal/match"
)

// FlaggedItem is an unresolved entity a reviewer set aside with a reason.
type FlaggedItem struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // "map" or "listing"
	Name      string    `json:"name"`
	EntityID  string    `json:"entity_id"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Job is one reconciliation run: the two ingested datasets, the evolving
// match list, the unmatched pools and the review cursor.
type Job struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"` // in_progress | completed | archived
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Sources  []match.SourceEntity  `json:"sources"`
	Listings []match.ListingEntity `json:"listings"`

	Matches           []match.ResolvedMatch `json:"matches"`
	UnmatchedSource   []match.SourceEntity  `json:"unmatched_source"`
	UnmatchedListings []match.ListingEntity `json:"unmatched_listings"`

	Flagged     []FlaggedItem `json:"flagged_items"`
	ReviewIndex int           `json:"review_index"`
	EnrichedAt  *time.Time    `json:"enriched_at,omitempty"`
}

// NewJob creates an empty in-progress job.
func NewJob(name, description string, now time.Time) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      "in_progress",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetData attaches the two ingested datasets, resetting any previous matching
// state.
func (j *Job) SetData(sources []match.SourceEntity, listings []match.ListingEntity, now time.Time) {
	j.Sources = sources
	j.Listings = listings
	j.Matches = nil
	j.UnmatchedSource = nil
	j.UnmatchedListings = nil
	j.ReviewIndex = 0
	j.touch(now)
}

// SetPartition records an auto-match outcome and resets the review cursor.
func (j *Job) SetPartition(p match.Partition, now time.Time) {
	j.Matches = p.Matches
	j.UnmatchedSource = p.UnmatchedSource
	j.UnmatchedListings = p.UnmatchedListings
	j.ReviewIndex = 0
	j.touch(now)
}

// Link manually pairs an unmatched source with an unmatched listing. The pair
// is re-scored, created confirmed with a review timestamp, and both sides
// leave their unmatched pools so no entity can appear in two matches.
func (j *Job) Link(scorer *match.Scorer, src match.SourceEntity, listing match.ListingEntity, now time.Time) match.ResolvedMatch {
	result := scorer.Score(src, listing)
	t := now
	m := match.ResolvedMatch{
		Source:     src,
		Listing:    listing,
		Score:      result.Value,
		Method:     result.Method,
		Confidence: match.ConfidenceFor(result.Value),
		Status:     match.StatusConfirmed,
		ReviewedAt: &t,
	}
	j.Matches = append(j.Matches, m)

	j.UnmatchedSource = removeSource(j.UnmatchedSource, src.ExternalID)
	j.UnmatchedListings = removeListing(j.UnmatchedListings, listing.ListingID())
	j.touch(now)
	return m
}

// FlagSource sets aside an unmatched source entity with a reason, removing it
// from the pool.
func (j *Job) FlagSource(src match.SourceEntity, reason, notes string, now time.Time) FlaggedItem {
	item := FlaggedItem{
		ID:        uuid.NewString(),
		Source:    "map",
		Name:      src.Name,
		EntityID:  src.ExternalID,
		Reason:    reason,
		Notes:     notes,
		CreatedAt: now,
	}
	j.Flagged = append(j.Flagged, item)
	j.UnmatchedSource = removeSource(j.UnmatchedSource, src.ExternalID)
	j.touch(now)
	return item
}

// FlagListing sets aside an unmatched listing entity with a reason.
func (j *Job) FlagListing(listing match.ListingEntity, reason, notes string, now time.Time) FlaggedItem {
	item := FlaggedItem{
		ID:        uuid.NewString(),
		Source:    "listing",
		Name:      listing.Title,
		EntityID:  listing.ListingID(),
		Reason:    reason,
		Notes:     notes,
		CreatedAt: now,
	}
	j.Flagged = append(j.Flagged, item)
	j.UnmatchedListings = removeListing(j.UnmatchedListings, listing.ListingID())
	j.touch(now)
	return item
}

// FindUnmatchedSource locates an unmatched source entity by external id.
func (j *Job) FindUnmatchedSource(externalID string) (match.SourceEntity, error) {
	for _, s := range j.UnmatchedSource {
		if s.ExternalID == externalID {
			return s, nil
		}
	}
	return match.SourceEntity{}, fmt.Errorf("no unmatched source entity %q", externalID)
}

// FindUnmatchedListing locates an unmatched listing by derived id.
func (j *Job) FindUnmatchedListing(listingID string) (match.ListingEntity, error) {
	for _, l := range j.UnmatchedListings {
		if l.ListingID() == listingID {
			return l, nil
		}
	}
	return match.ListingEntity{}, fmt.Errorf("no unmatched listing %q", listingID)
}

// MarkEnriched stamps the enrichment time.
func (j *Job) MarkEnriched(now time.Time) {
	t := now
	j.EnrichedAt = &t
	j.touch(now)
}

func (j *Job) touch(now time.Time) {
	j.UpdatedAt = now
}

func removeSource(pool []match.SourceEntity, externalID string) []match.SourceEntity {
	out := pool[:0]
	for _, s := range pool {
		if s.ExternalID != externalID {
			out = append(out, s)
		}
	}
	return out
}

func removeListing(pool []match.ListingEntity, listingID string) []match.ListingEntity {
	out := pool[:0]
	for _, l := range pool {
		if l.ListingID() != listingID {
			out = append(out, l)
		}
	}
	return out
}
