// Package suggest ranks candidate listings for a single unresolved source
// entity. Ranking never mutates state; linking is a separate explicit action.
package suggest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/poi-recon/internal/cache"
	"github.com/poi-recon/internal/match"
	"github.com/poi-recon/internal/normalize"
	"github.com/poi-recon/internal/similarity"
)

// Ranking parameters. Gates reject outright; terms weight the composite.
const (
	maxDistanceM     = 150.0 // beyond this the candidate is rejected
	nearDistanceM    = 75.0
	nameWeight       = 0.5
	addressWeight    = 0.2
	nearDistanceTerm = 0.3
	farDistanceTerm  = 0.15
	unknownDistTerm  = 0.15
	idMatchBonus     = 0.2
	nameFloor        = 0.8 // floor when one normalized name contains the other
	minComposite     = 0.4
	maxSuggestions   = 10
)

// Suggestion is one ranked candidate with a human-readable reason.
type Suggestion struct {
	Index      int                 `json:"index"` // position in the candidate pool
	Listing    match.ListingEntity `json:"listing"`
	Confidence float64             `json:"confidence"` // composite score in [0,1]
	Reason     string              `json:"reason"`
	SeenBefore bool                `json:"seen_before"`
	SeenCount  int                 `json:"seen_count,omitempty"`
}

// Suggester proposes candidate listings for an unresolved source entity.
type Suggester interface {
	Suggest(ctx context.Context, src match.SourceEntity, candidates []match.ListingEntity) ([]Suggestion, error)
}

// Deterministic is the fully reproducible ranking suggester. The cache, when
// present, contributes a "seen before" annotation and a tie-break signal.
type Deterministic struct {
	cache *cache.Cache
}

// NewDeterministic creates a deterministic suggester. cache may be nil.
func NewDeterministic(c *cache.Cache) *Deterministic {
	return &Deterministic{cache: c}
}

// Suggest ranks the candidate pool for src. Candidates failing the identifier
// or distance gate are rejected outright; the rest are scored on name,
// distance and address terms and returned sorted descending, capped at ten.
func (d *Deterministic) Suggest(_ context.Context, src match.SourceEntity, candidates []match.ListingEntity) ([]Suggestion, error) {
	normSrc := normalize.Name(src.Name)
	srcStreet := normalize.Street(src.Street)

	var srcHit cache.Hit
	if d.cache != nil {
		srcHit = d.cache.Lookup(cache.Key{
			Name:    src.Name,
			Lat:     src.Latitude,
			Lon:     src.Longitude,
			PlaceID: src.PlaceID,
		})
	}

	var out []Suggestion
	for i, cand := range candidates {
		candID := cand.KnownPlaceID()

		// Identifier gate: conflicting known identifiers are a hard reject.
		if src.PlaceID != "" && candID != "" && src.PlaceID != candID {
			continue
		}

		// Distance gate: only fires when both sides have coordinates.
		dist := similarity.HaversineOpt(src.Latitude, src.Longitude, cand.Latitude, cand.Longitude)
		distKnown := !math.IsInf(dist, 1)
		if distKnown && dist > maxDistanceM {
			continue
		}

		normCand := normalize.Name(cand.Title)
		nameTerm := similarity.Dice(normSrc, normCand)
		contained := normSrc != "" && normCand != "" &&
			(strings.Contains(normSrc, normCand) || strings.Contains(normCand, normSrc))
		if contained && nameTerm < nameFloor {
			nameTerm = nameFloor
		}

		addrTerm := 0.0
		candStreet := normalize.Street(cand.Street)
		if srcStreet != "" && candStreet != "" {
			addrTerm = similarity.Dice(srcStreet, candStreet)
		}

		distTerm := unknownDistTerm
		if distKnown {
			if dist <= nearDistanceM {
				distTerm = nearDistanceTerm
			} else {
				distTerm = farDistanceTerm
			}
		}

		idMatch := src.PlaceID != "" && src.PlaceID == candID

		composite := nameWeight*nameTerm + distTerm + addressWeight*addrTerm
		if idMatch {
			composite = math.Min(1.0, composite+idMatchBonus)
		}
		if composite <= minComposite {
			continue
		}

		// Each candidate gets its own cache lookup; the hit is what the
		// tie-break below keys on.
		var candHit cache.Hit
		if d.cache != nil {
			k := cache.Key{Name: cand.Title, Street: cand.Street, PlaceID: candID}
			if cand.Latitude != nil && cand.Longitude != nil {
				k.Lat = *cand.Latitude
				k.Lon = *cand.Longitude
			}
			candHit = d.cache.Lookup(k)
		}

		s := Suggestion{
			Index:      i,
			Listing:    cand,
			Confidence: composite,
			Reason:     reasonFor(nameTerm, dist, distKnown, idMatch, contained, addrTerm),
			SeenBefore: candHit.Seen,
			SeenCount:  candHit.Count,
		}
		if candHit.Seen {
			s.Reason = fmt.Sprintf("%s (listing %s)", s.Reason, candHit.Reason)
		} else if srcHit.Seen {
			s.Reason = fmt.Sprintf("%s (source %s)", s.Reason, srcHit.Reason)
		}
		out = append(out, s)
	}

	// Descending by composite; cache hits break ties, then pool order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].SeenBefore != out[j].SeenBefore {
			return out[i].SeenBefore
		}
		return out[i].Index < out[j].Index
	})

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out, nil
}

// reasonFor picks the highest-priority explanation that applies.
func reasonFor(nameTerm, dist float64, distKnown, idMatch, contained bool, addrTerm float64) string {
	switch {
	case nameTerm >= 0.9 && distKnown && dist <= nearDistanceM:
		return "strong name match within short distance"
	case idMatch:
		return "identifier match"
	case contained:
		return "name containment match"
	case addrTerm >= 0.8:
		return "address match"
	default:
		return "possible match"
	}
}
