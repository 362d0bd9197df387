package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/poi-recon/internal/match"
)

func sampleMatches() []match.ResolvedMatch {
	rating := 4.5
	now := time.Now()
	cover := "https://img/enriched.jpg"
	return []match.ResolvedMatch{
		{
			Source: match.SourceEntity{
				Name: "Violet's", Street: "Wardour St", Postcode: "W1D 4AD",
				Latitude: 51.513, Longitude: -0.135, ExternalID: "node/1",
			},
			Listing: match.ListingEntity{
				Title: "Violet's Soho", Street: "12 Wardour Street",
				Rating: &rating, ReviewsCount: "1,203", PlaceID: "p-violets",
			},
			Score: 100, Method: match.MethodExactCore,
			Confidence: match.ConfidenceHigh,
			Status:     match.StatusAutoConfirmed,
			ReviewedAt: &now,
			Enrichment: match.Enrichment{
				CoverImage: &cover,
				Gallery:    []string{"a.jpg", "b.jpg"},
			},
		},
		{
			Source:  match.SourceEntity{Name: "Rejected Place", ExternalID: "node/2"},
			Listing: match.ListingEntity{Title: "Rejected Listing"},
			Status:  match.StatusRejected,
		},
		{
			Source:  match.SourceEntity{Name: "Pending Place", ExternalID: "node/3"},
			Listing: match.ListingEntity{Title: "Pending Listing"},
			Status:  match.StatusPending,
		},
	}
}

func TestFlattenOnlyConfirmed(t *testing.T) {
	records := Flatten(sampleMatches(), "Soho", "London", "GB")

	if len(records) != 1 {
		t.Fatalf("flattened %d records, want only the confirmed one", len(records))
	}

	r := records[0]
	if r.PlaceID != "p-violets" || r.Name != "Violet's Soho" {
		t.Errorf("identity fields = %q %q", r.PlaceID, r.Name)
	}
	if r.Address != "12 Wardour Street, W1D 4AD" {
		t.Errorf("address = %q", r.Address)
	}
	if r.Rating != 4.5 || r.ReviewsCount != 1203 {
		t.Errorf("rating/reviews = %v/%v", r.Rating, r.ReviewsCount)
	}
	if r.MatchConfidence != "High" || r.MatchScore != 100 || r.MatchMethod != "exact_core" {
		t.Errorf("provenance = %q %v %q", r.MatchConfidence, r.MatchScore, r.MatchMethod)
	}
	// Enriched cover image takes precedence over the listing image.
	if r.CoverImage != "https://img/enriched.jpg" {
		t.Errorf("cover image = %q", r.CoverImage)
	}
	if r.GalleryImages != `["a.jpg","b.jpg"]` {
		t.Errorf("gallery = %q", r.GalleryImages)
	}
	// Absent enrichment exports as empty, meaning null.
	if r.MenuURL != "" || r.OpeningHours != "" {
		t.Errorf("absent fields not empty: %q %q", r.MenuURL, r.OpeningHours)
	}
}

func TestWriteCSVStableHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Flatten(sampleMatches(), "Soho", "London", "GB")); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	cr := csv.NewReader(&buf)
	rows, err := cr.ReadAll()
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1 record", len(rows))
	}

	header := Header()
	if len(rows[0]) != len(header) {
		t.Fatalf("header width %d, want %d", len(rows[0]), len(header))
	}
	for i, want := range header {
		if rows[0][i] != want {
			t.Errorf("header[%d] = %q, want %q (projection must stay stable)", i, rows[0][i], want)
		}
	}
	if len(rows[1]) != len(header) {
		t.Errorf("record width %d, want %d", len(rows[1]), len(header))
	}
}
