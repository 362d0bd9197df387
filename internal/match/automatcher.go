package match

import "time"

// Partition is the outcome of an auto-match run: three disjoint collections
// whose identifiers together equal the two input collections.
type Partition struct {
	Matches           []ResolvedMatch `json:"matches"`
	UnmatchedSource   []SourceEntity  `json:"unmatched_source"`
	UnmatchedListings []ListingEntity `json:"unmatched_listings"`
}

// Stats summarizes a partition by status and confidence tier.
type Stats struct {
	TotalMatched  int `json:"total_matched"`
	AutoConfirmed int `json:"auto_confirmed"`
	NeedsReview   int `json:"needs_review"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
}

// Stats computes summary counts for the partition.
func (p Partition) Stats() Stats {
	var st Stats
	st.TotalMatched = len(p.Matches)
	for _, m := range p.Matches {
		if m.Status == StatusAutoConfirmed {
			st.AutoConfirmed++
		} else {
			st.NeedsReview++
		}
		switch m.Confidence {
		case ConfidenceHigh:
			st.High++
		case ConfidenceMedium:
			st.Medium++
		default:
			st.Low++
		}
	}
	return st
}

// AutoMatch greedily pairs each source entity with its best-scoring unclaimed
// listing at or above the minimum score. Claimed listings leave the candidate
// pool for subsequent sources, so the pass is O(|A|*|B|) and later sources
// cannot reclaim an earlier assignment. Ties are broken by the first
// encountered candidate in input order; this is a documented tie-break, not
// undefined behaviour.
func AutoMatch(scorer *Scorer, sources []SourceEntity, listings []ListingEntity, settings Settings, now time.Time) Partition {
	p := Partition{
		Matches:           []ResolvedMatch{},
		UnmatchedSource:   []SourceEntity{},
		UnmatchedListings: []ListingEntity{},
	}

	claimed := make(map[int]bool, len(listings))

	for _, src := range sources {
		bestIdx := -1
		var best ScoreResult

		for idx, listing := range listings {
			if claimed[idx] {
				continue
			}
			result := scorer.Score(src, listing)
			if result.Value < settings.MinScore {
				continue
			}
			// Strictly greater keeps the first-encountered candidate on ties.
			if bestIdx == -1 || result.Value > best.Value {
				bestIdx = idx
				best = result
			}
		}

		if bestIdx == -1 {
			p.UnmatchedSource = append(p.UnmatchedSource, src)
			continue
		}

		claimed[bestIdx] = true
		status, reviewedAt := InitialStatus(best.Value, settings.AutoConfirmThreshold, now)
		p.Matches = append(p.Matches, ResolvedMatch{
			Source:     src,
			Listing:    listings[bestIdx],
			Score:      best.Value,
			Method:     best.Method,
			Confidence: ConfidenceFor(best.Value),
			Status:     status,
			ReviewedAt: reviewedAt,
		})
	}

	for idx, listing := range listings {
		if !claimed[idx] {
			p.UnmatchedListings = append(p.UnmatchedListings, listing)
		}
	}

	return p
}
