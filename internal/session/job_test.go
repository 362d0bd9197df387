package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/poi-recon/internal/match"
)

func testJob(t *testing.T) *Job {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	j := NewJob("soho-run", "march import", now)
	j.SetData(
		[]match.SourceEntity{
			{Name: "Violet's", ExternalID: "node/1", Latitude: 51.513, Longitude: -0.135},
			{Name: "Quo Vadis", ExternalID: "node/2", Latitude: 51.5136, Longitude: -0.1321},
		},
		[]match.ListingEntity{
			{Title: "Violet's Soho", PlaceID: "p-violets"},
			{Title: "Quo Vadis", PlaceID: "p-quo"},
		},
		now,
	)
	scorer := match.NewScorer(match.DefaultSettings())
	j.SetPartition(match.AutoMatch(scorer, j.Sources, j.Listings, match.DefaultSettings(), now), now)
	return j
}

func TestLinkRemovesFromPools(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	j := NewJob("run", "", now)
	j.SetData(nil, nil, now)
	j.UnmatchedSource = []match.SourceEntity{{Name: "Bao", ExternalID: "node/9"}}
	j.UnmatchedListings = []match.ListingEntity{{Title: "Bao Soho", PlaceID: "p-bao"}}

	scorer := match.NewScorer(match.DefaultSettings())
	m := j.Link(scorer, j.UnmatchedSource[0], j.UnmatchedListings[0], now)

	if m.Status != match.StatusConfirmed {
		t.Errorf("linked match status = %v, want confirmed", m.Status)
	}
	if m.ReviewedAt == nil {
		t.Error("linked match missing review timestamp")
	}
	if len(j.UnmatchedSource) != 0 || len(j.UnmatchedListings) != 0 {
		t.Errorf("pools not emptied: %d sources, %d listings",
			len(j.UnmatchedSource), len(j.UnmatchedListings))
	}
	if len(j.Matches) != 1 {
		t.Errorf("matches = %d, want 1", len(j.Matches))
	}
}

func TestFlagSourceRemovesFromPool(t *testing.T) {
	now := time.Now()
	j := NewJob("run", "", now)
	j.UnmatchedSource = []match.SourceEntity{{Name: "Mystery Diner", ExternalID: "node/7"}}

	item := j.FlagSource(j.UnmatchedSource[0], "permanently closed", "sign on door", now)

	if item.Reason != "permanently closed" || item.Source != "map" {
		t.Errorf("flag = %+v", item)
	}
	if len(j.UnmatchedSource) != 0 {
		t.Error("flagged entity still in unmatched pool")
	}
	if len(j.Flagged) != 1 {
		t.Errorf("flagged items = %d, want 1", len(j.Flagged))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "jobs.json")
	store := NewStore(path)

	// Missing file loads as empty.
	jobs, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty store, got %d jobs", len(jobs))
	}

	j := testJob(t)
	if err := store.Save([]*Job{j}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d jobs, want 1", len(loaded))
	}

	got := loaded[0]
	if got.ID != j.ID || got.Name != "soho-run" {
		t.Errorf("job identity lost: %+v", got)
	}
	if len(got.Matches) != len(j.Matches) {
		t.Errorf("matches = %d, want %d", len(got.Matches), len(j.Matches))
	}

	if _, err := Find(loaded, "soho-run"); err != nil {
		t.Errorf("Find by name: %v", err)
	}
	if _, err := Find(loaded, j.ID); err != nil {
		t.Errorf("Find by id: %v", err)
	}
	if _, err := Find(loaded, "nope"); err == nil {
		t.Error("Find for unknown job should fail")
	}
}
