package match

import (
	"math"
	"strings"

	"github.com/poi-recon/internal/normalize"
	"github.com/poi-recon/internal/similarity"
)

// DefaultOverrides maps source names to listing titles that reviewers have
// verified by hand. An override pair always scores 100 regardless of string
// similarity.
func DefaultOverrides() map[string]string {
	return map[string]string{
		"Joyce's Jerk Joint":      "Joyce's Authentic Caribbean",
		"Soju & Co":               "Soju Hanjan",
		"Patty & Bun":             "Patty&Bun Kingly Street",
		"Ceconi's":                "Cecconi's Pizza Bar",
		"Rudy's Neapolitan Pizza": "Rudy's Pizza Napoletana",
		"Co & Ko":                 "Co&Ko (Jeon's Kitchen)",
		"Senor Cevice":            "Señor Ceviche Peruvian Restaurant Soho",
	}
}

// Scorer computes a 0-100 match score with a provenance method tag for a
// source/listing pair. Deterministic and side-effect free; missing fields are
// treated as empty strings.
type Scorer struct {
	settings  Settings
	overrides map[string]string
}

// NewScorer creates a scorer with the given settings and default overrides.
func NewScorer(settings Settings) *Scorer {
	return &Scorer{settings: settings, overrides: DefaultOverrides()}
}

// NewScorerWithOverrides creates a scorer with a custom manual-override table.
func NewScorerWithOverrides(settings Settings, overrides map[string]string) *Scorer {
	if overrides == nil {
		overrides = map[string]string{}
	}
	return &Scorer{settings: settings, overrides: overrides}
}

// Score computes the match score for a source/listing pair.
func (s *Scorer) Score(src SourceEntity, listing ListingEntity) ScoreResult {
	if s.overrides[src.Name] == listing.Title && listing.Title != "" {
		return ScoreResult{Value: 100, Method: MethodManualVerified}
	}

	normA := normalize.Name(src.Name)
	normB := normalize.Name(listing.Title)
	if normA != "" && normA == normB {
		return ScoreResult{Value: 100, Method: MethodExactCore}
	}

	value := similarity.Dice(normA, normB) * 100
	method := MethodNormalized

	if value < s.settings.SubstringFloor && len(normA) >= 4 && len(normB) >= 4 {
		if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
			value = math.Max(value, s.settings.SubstringFloor)
			method = MethodSubstring
		}
	}

	srcStreet := strings.ToLower(src.Street)
	listStreet := strings.ToLower(listing.Street)
	if srcStreet != "" && listStreet != "" &&
		(strings.Contains(srcStreet, listStreet) || strings.Contains(listStreet, srcStreet)) {
		value = math.Min(100, value+s.settings.StreetBonus)
	}

	return ScoreResult{Value: round2(value), Method: method}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
