package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poi-recon/internal/cache"
	"github.com/poi-recon/internal/match"
)

func ptr(v float64) *float64 { return &v }

func TestSuggestDistanceGate(t *testing.T) {
	d := NewDeterministic(nil)

	src := match.SourceEntity{Name: "Violet's", Latitude: 51.513, Longitude: -0.135}
	// Identical normalized name roughly 200m away: the gate fires even at
	// name similarity 1.0.
	far := match.ListingEntity{
		Title:     "Violets",
		Latitude:  ptr(51.5148),
		Longitude: ptr(-0.135),
	}

	got, err := d.Suggest(context.Background(), src, []match.ListingEntity{far})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected distance gate to reject 200m candidate, got %d suggestions", len(got))
	}
}

func TestSuggestUnknownDistanceDoesNotGate(t *testing.T) {
	d := NewDeterministic(nil)

	src := match.SourceEntity{Name: "Violet's", Latitude: 51.513, Longitude: -0.135}
	noCoords := match.ListingEntity{Title: "Violets"}

	got, err := d.Suggest(context.Background(), src, []match.ListingEntity{noCoords})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidate without coordinates must not be distance-gated, got %d", len(got))
	}
	// name 1.0 * 0.5 + unknown-distance 0.15 = 0.65
	if got[0].Confidence < 0.64 || got[0].Confidence > 0.66 {
		t.Errorf("composite = %v, want ~0.65", got[0].Confidence)
	}
}

func TestSuggestIdentifierGate(t *testing.T) {
	d := NewDeterministic(nil)

	src := match.SourceEntity{Name: "Violet's", Latitude: 51.513, Longitude: -0.135, PlaceID: "p-violets"}
	conflicting := match.ListingEntity{
		Title:     "Violets",
		PlaceID:   "p-other",
		Latitude:  ptr(51.513),
		Longitude: ptr(-0.135),
	}

	got, err := d.Suggest(context.Background(), src, []match.ListingEntity{conflicting})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("conflicting identifiers must hard-reject, got %d suggestions", len(got))
	}
}

func TestSuggestIdentifierBonusAndReason(t *testing.T) {
	d := NewDeterministic(nil)

	src := match.SourceEntity{Name: "Bar Bao", Latitude: 51.513, Longitude: -0.135, PlaceID: "p-bao"}
	cands := []match.ListingEntity{
		{Title: "Something Else Entirely", PlaceID: "p-bao", Latitude: ptr(51.5131), Longitude: ptr(-0.1351)},
	}

	got, err := d.Suggest(context.Background(), src, cands)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected identifier-matched candidate to rank, got %d", len(got))
	}
	if got[0].Reason != "identifier match" {
		t.Errorf("reason = %q, want identifier match", got[0].Reason)
	}
}

func TestSuggestRankingAndCap(t *testing.T) {
	d := NewDeterministic(nil)

	src := match.SourceEntity{Name: "Hoppers", Street: "Frith Street", Latitude: 51.513, Longitude: -0.135}

	cands := make([]match.ListingEntity, 0, 14)
	// One strong candidate...
	cands = append(cands, match.ListingEntity{
		Title:     "Hoppers Soho",
		Street:    "Frith Street",
		Latitude:  ptr(51.5131),
		Longitude: ptr(-0.1351),
	})
	// ...and a pile of weaker containment candidates without coordinates.
	for i := 0; i < 13; i++ {
		cands = append(cands, match.ListingEntity{Title: "Hoppers"})
	}

	got, err := d.Suggest(context.Background(), src, cands)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected output capped at 10, got %d", len(got))
	}
	if got[0].Index != 0 {
		t.Errorf("best candidate ranked at index %d, want the strong one first", got[0].Index)
	}
	if got[0].Reason != "strong name match within short distance" {
		t.Errorf("reason = %q, want strong name match within short distance", got[0].Reason)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Errorf("suggestions not sorted descending at %d", i)
		}
	}
}

func TestSuggestSeenBeforeAnnotation(t *testing.T) {
	c := cache.New(nil)
	c.Record(cache.Key{Name: "Quo Vadis Private Members Club", PlaceID: "pid-qv"}, "listing", time.Now())
	d := NewDeterministic(c)

	src := match.SourceEntity{Name: "Quo Vadis", Latitude: 51.5136, Longitude: -0.1321}
	cands := []match.ListingEntity{{Title: "Quo Vadis Private Members Club", PlaceID: "pid-qv"}}

	got, err := d.Suggest(context.Background(), src, cands)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if !got[0].SeenBefore || got[0].SeenCount != 1 {
		t.Errorf("suggestion = %+v, want seen-before annotation", got[0])
	}
	if !strings.Contains(got[0].Reason, "seen 1 time(s) before") {
		t.Errorf("reason = %q, want cache hit suffix", got[0].Reason)
	}
}

func TestSuggestCacheBreaksTies(t *testing.T) {
	// Two candidates with the same normalized name, equidistant from the
	// source, so every composite term is equal. Only the second is in the
	// cache; it must be annotated and ranked first despite pool order.
	cands := []match.ListingEntity{
		{Title: "Hoppers Soho", PlaceID: "pid-1", Latitude: ptr(51.5136), Longitude: ptr(-0.136068)},
		{Title: "Hoppers London", PlaceID: "pid-2", Latitude: ptr(51.5136), Longitude: ptr(-0.133932)},
	}

	c := cache.New(nil)
	c.Record(cache.Key{
		Name:    "Hoppers London",
		Lat:     51.5136,
		Lon:     -0.133932,
		PlaceID: "pid-2",
	}, "listing", time.Now())
	d := NewDeterministic(c)

	src := match.SourceEntity{Name: "Hoppers", Latitude: 51.5136, Longitude: -0.1350}
	got, err := d.Suggest(context.Background(), src, cands)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Confidence != got[1].Confidence {
		t.Fatalf("composites differ (%v vs %v); tie-break not exercised",
			got[0].Confidence, got[1].Confidence)
	}
	if got[0].Listing.PlaceID != "pid-2" || !got[0].SeenBefore {
		t.Errorf("got[0] = %s seen=%v, want cached candidate pid-2 first",
			got[0].Listing.PlaceID, got[0].SeenBefore)
	}
	if got[1].SeenBefore {
		t.Errorf("uncached candidate carries seen-before annotation")
	}
}

type stubAdvisor struct {
	results []Suggestion
	err     error
}

func (s *stubAdvisor) Propose(context.Context, match.SourceEntity, []match.ListingEntity) ([]Suggestion, error) {
	return s.results, s.err
}

func TestAdvisoryFallsBack(t *testing.T) {
	src := match.SourceEntity{Name: "Violet's", Latitude: 51.513, Longitude: -0.135}
	cands := []match.ListingEntity{{Title: "Violets"}}

	tests := []struct {
		name    string
		advisor Advisor
	}{
		{"advisor error", &stubAdvisor{err: errors.New("model unavailable")}},
		{"advisor empty", &stubAdvisor{}},
		{"no advisor", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdvisory(tt.advisor, NewDeterministic(nil), nil)
			got, err := a.Suggest(context.Background(), src, cands)
			if err != nil {
				t.Fatalf("Suggest: %v", err)
			}
			if len(got) != 1 {
				t.Errorf("fallback produced %d suggestions, want 1", len(got))
			}
		})
	}
}

func TestAdvisoryUsesAdvisorResults(t *testing.T) {
	want := []Suggestion{{Index: 3, Confidence: 0.9, Reason: "possible match"}}
	a := NewAdvisory(&stubAdvisor{results: want}, NewDeterministic(nil), nil)

	got, err := a.Suggest(context.Background(), match.SourceEntity{Name: "x"}, nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 || got[0].Index != 3 {
		t.Errorf("got %+v, want advisor results passed through", got)
	}
}
