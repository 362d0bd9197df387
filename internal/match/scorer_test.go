package match

import (
	"testing"
)

func TestScoreExactCoreAfterNormalization(t *testing.T) {
	scorer := NewScorer(DefaultSettings())

	src := SourceEntity{Name: "Violet's", Street: "Unknown"}
	listing := ListingEntity{Title: "Violet's Soho (Georgian Cuisine)", Street: "Wardour St"}

	got := scorer.Score(src, listing)
	if got.Value != 100 {
		t.Errorf("Score = %v, want 100", got.Value)
	}
	if got.Method != MethodExactCore {
		t.Errorf("Method = %v, want %v", got.Method, MethodExactCore)
	}
}

func TestScoreManualOverride(t *testing.T) {
	scorer := NewScorer(DefaultSettings())

	src := SourceEntity{Name: "Patty & Bun"}
	listing := ListingEntity{Title: "Patty&Bun Kingly Street"}

	got := scorer.Score(src, listing)
	if got.Value != 100 || got.Method != MethodManualVerified {
		t.Errorf("Score = {%v %v}, want {100 manual_verified}", got.Value, got.Method)
	}

	// The override is exact on both sides; a different listing title falls
	// through to the normal path.
	other := scorer.Score(src, ListingEntity{Title: "Patty & Bun Soho"})
	if other.Method == MethodManualVerified {
		t.Errorf("non-override pair scored as manual_verified")
	}
}

func TestScoreSubstringFloor(t *testing.T) {
	scorer := NewScorer(DefaultSettings())

	// "veeraswamy" vs "veeraswamy mayfair dining" after normalization: one
	// contains the other but the bigram score alone is below 85.
	src := SourceEntity{Name: "Veeraswamy"}
	listing := ListingEntity{Title: "Veeraswamy Mayfair Dining"}

	got := scorer.Score(src, listing)
	if got.Value < 85 {
		t.Errorf("Score = %v, want >= 85 via substring floor", got.Value)
	}
	if got.Method != MethodSubstring {
		t.Errorf("Method = %v, want %v", got.Method, MethodSubstring)
	}
}

func TestScoreStreetBonus(t *testing.T) {
	scorer := NewScorer(DefaultSettings())

	base := scorer.Score(
		SourceEntity{Name: "Hoppers"},
		ListingEntity{Title: "Hoppers Sri Lankan"},
	)
	boosted := scorer.Score(
		SourceEntity{Name: "Hoppers", Street: "Frith Street"},
		ListingEntity{Title: "Hoppers Sri Lankan", Street: "49 Frith Street"},
	)

	if boosted.Value <= base.Value {
		t.Errorf("street bonus not applied: base %v, boosted %v", base.Value, boosted.Value)
	}
	if boosted.Method != base.Method {
		t.Errorf("street bonus changed method: %v -> %v", base.Method, boosted.Method)
	}
}

func TestScoreBounds(t *testing.T) {
	scorer := NewScorer(DefaultSettings())

	sources := []SourceEntity{
		{Name: "Violet's", Street: "Wardour St"},
		{Name: ""},
		{Name: "A"},
		{Name: "The", Street: "x"},
	}
	listings := []ListingEntity{
		{Title: "Violet's Soho", Street: "Wardour Street"},
		{Title: ""},
		{Title: "Z"},
		{Title: "Completely Unrelated Noodle House", Street: "x"},
	}

	for _, s := range sources {
		for _, l := range listings {
			got := scorer.Score(s, l)
			if got.Value < 0 || got.Value > 100 {
				t.Errorf("Score(%q,%q) = %v out of [0,100]", s.Name, l.Title, got.Value)
			}
		}
	}
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Confidence
	}{
		{100, ConfidenceHigh},
		{85, ConfidenceHigh},
		{84.99, ConfidenceMedium},
		{70, ConfidenceMedium},
		{69.99, ConfidenceLow},
		{0, ConfidenceLow},
	}

	for _, tt := range tests {
		if got := ConfidenceFor(tt.score); got != tt.want {
			t.Errorf("ConfidenceFor(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

// Higher score never yields a lower tier.
func TestConfidenceMonotonic(t *testing.T) {
	rank := map[Confidence]int{ConfidenceLow: 0, ConfidenceMedium: 1, ConfidenceHigh: 2}

	prev := ConfidenceLow
	for score := 0.0; score <= 100; score += 0.25 {
		cur := ConfidenceFor(score)
		if rank[cur] < rank[prev] {
			t.Fatalf("confidence dropped from %v to %v at score %v", prev, cur, score)
		}
		prev = cur
	}
}
