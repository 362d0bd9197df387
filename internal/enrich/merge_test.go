package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poi-recon/internal/match"
)

func confirmedMatch() match.ResolvedMatch {
	return match.ResolvedMatch{
		Source:  match.SourceEntity{Name: "Violet's", ExternalID: "node/1"},
		Listing: match.ListingEntity{Title: "Violet's Soho", PlaceID: "p-violets"},
		Score:   100,
		Status:  match.StatusConfirmed,
	}
}

func TestMergeFillsEmptyFields(t *testing.T) {
	m := confirmedMatch()
	Merge(&m, Patch{
		PlaceID:       "p-violets",
		CoverImage:    "https://img.example.com/cover.jpg",
		GalleryImages: `["a.jpg","b.jpg"]`,
		Phone:         "+44 20 7000 0000",
		OpeningHours:  `{"mon":"9-17","tue":"9-17"}`,
	})

	if m.Enrichment.CoverImage == nil || *m.Enrichment.CoverImage != "https://img.example.com/cover.jpg" {
		t.Errorf("cover image not filled: %+v", m.Enrichment.CoverImage)
	}
	if len(m.Enrichment.Gallery) != 2 {
		t.Errorf("gallery = %v, want 2 images", m.Enrichment.Gallery)
	}
	if m.Enrichment.OpeningHours["mon"] != "9-17" {
		t.Errorf("opening hours = %v", m.Enrichment.OpeningHours)
	}
	if m.Enrichment.MenuURL != nil {
		t.Errorf("absent patch field should stay nil, got %v", *m.Enrichment.MenuURL)
	}
}

func TestMergeNeverOverwrites(t *testing.T) {
	existing := "https://img.example.com/original.jpg"
	m := confirmedMatch()
	m.Enrichment.CoverImage = &existing
	m.Enrichment.Gallery = []string{"keep.jpg"}

	Merge(&m, Patch{
		PlaceID:       "p-violets",
		CoverImage:    "https://img.example.com/replacement.jpg",
		GalleryImages: `["new.jpg"]`,
	})

	if *m.Enrichment.CoverImage != existing {
		t.Errorf("existing cover image overwritten: %v", *m.Enrichment.CoverImage)
	}
	if len(m.Enrichment.Gallery) != 1 || m.Enrichment.Gallery[0] != "keep.jpg" {
		t.Errorf("existing gallery overwritten: %v", m.Enrichment.Gallery)
	}
}

func TestMergeIdempotent(t *testing.T) {
	m := confirmedMatch()
	p := Patch{PlaceID: "p-violets", Phone: "+44 20 7000 0000", MenuURL: "https://menu.example.com"}

	Merge(&m, p)
	first := m.Enrichment
	Merge(&m, p)

	if *m.Enrichment.Phone != *first.Phone || *m.Enrichment.MenuURL != *first.MenuURL {
		t.Errorf("repeated merge changed already-filled fields")
	}
}

func TestMergeMalformedFieldKeepsPrior(t *testing.T) {
	m := confirmedMatch()
	m.Enrichment.OpeningHours = map[string]string{"mon": "9-17"}

	Merge(&m, Patch{
		PlaceID:       "p-violets",
		GalleryImages: `{not valid json`,
		OpeningHours:  `also broken`,
		Phone:         "+44 20 7000 0000",
	})

	if m.Enrichment.Gallery != nil {
		t.Errorf("malformed gallery produced %v, want nil", m.Enrichment.Gallery)
	}
	if m.Enrichment.OpeningHours["mon"] != "9-17" {
		t.Errorf("malformed hours clobbered prior value: %v", m.Enrichment.OpeningHours)
	}
	// The rest of the patch still merges.
	if m.Enrichment.Phone == nil {
		t.Error("well-formed field skipped because a sibling was malformed")
	}
}

func TestParseStringList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
		ok    bool
	}{
		{"json list", `["a","b","c"]`, 3, true},
		{"bare string", `"single.jpg"`, 1, true},
		{"empty", "", 0, false},
		{"literal null", "null", 0, false},
		{"malformed", `[broken`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStringList(tt.input)
			if ok != tt.ok || len(got) != tt.want {
				t.Errorf("ParseStringList(%q) = %v,%v want %d items,%v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestProjectAndApply(t *testing.T) {
	matches := []match.ResolvedMatch{
		confirmedMatch(),
		{
			Source:  match.SourceEntity{Name: "Quo Vadis"},
			Listing: match.ListingEntity{Title: "Quo Vadis", PlaceID: "p-quo"},
			Status:  match.StatusRejected,
		},
	}

	rows := Project(matches, "Soho", "London")
	if len(rows) != 1 {
		t.Fatalf("Project included non-confirmed matches: %d rows", len(rows))
	}
	if rows[0].PlaceID != "p-violets" {
		t.Errorf("row place id = %s", rows[0].PlaceID)
	}

	touched := Apply(matches, []Patch{{PlaceID: "p-violets", Phone: "+44 20 7000 0000"}})
	if touched != 1 {
		t.Errorf("Apply touched %d matches, want 1", touched)
	}
	if matches[0].Enrichment.Phone == nil {
		t.Error("patch not merged into match")
	}
}

func TestReadPatchesCSV(t *testing.T) {
	csvText := strings.Join([]string{
		"google_place_id,cover_image,gallery_images,unknown_column,phone",
		`p-violets,https://img/c.jpg,"[""a.jpg""]",ignored,+44 20 7000 0000`,
		",missing-id.jpg,,x,",
		"p-bao,,,,",
	}, "\n")

	patches, skipped, err := ReadPatchesCSV(strings.NewReader(csvText))
	if err != nil {
		t.Fatalf("ReadPatchesCSV: %v", err)
	}
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1 (row without identifier)", skipped)
	}
	if patches[0].Phone != "+44 20 7000 0000" {
		t.Errorf("phone = %q", patches[0].Phone)
	}
	// All-empty columns are legal and mean "not found".
	if patches[1].CoverImage != "" || patches[1].GalleryImages != "" {
		t.Errorf("empty patch row parsed as %+v", patches[1])
	}
}

type scriptedFetcher struct {
	calls   int
	failOn  int // 1-based call number to fail on; 0 = never
	perCall int
}

func (f *scriptedFetcher) Fetch(_ context.Context, rows []Row) ([]Patch, error) {
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return nil, errors.New("collaborator timeout")
	}
	out := make([]Patch, 0, len(rows))
	for _, r := range rows {
		out = append(out, Patch{PlaceID: r.PlaceID, Phone: "+44"})
	}
	return out, nil
}

func testRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{PlaceID: string(rune('a' + i))}
	}
	return rows
}

func TestRunnerCompletes(t *testing.T) {
	r := NewRunner(nil)
	r.Delay = 0

	f := &scriptedFetcher{}
	report := r.Run(context.Background(), testRows(5), f, 0)

	if report.Err != nil {
		t.Fatalf("Run: %v", report.Err)
	}
	if len(report.Patches) != 5 || report.NextOffset != 5 {
		t.Errorf("report = %+v, want 5 patches and offset 5", report)
	}
	// 5 rows at batch size 2 is 3 calls.
	if f.calls != 3 {
		t.Errorf("fetcher called %d times, want 3", f.calls)
	}
}

func TestRunnerPartialFailurePreservesPatches(t *testing.T) {
	r := NewRunner(nil)
	r.Delay = 0

	f := &scriptedFetcher{failOn: 2}
	report := r.Run(context.Background(), testRows(6), f, 0)

	if report.Err == nil {
		t.Fatal("expected batch failure to surface")
	}
	if len(report.Patches) != 2 {
		t.Errorf("patches before failure = %d, want 2 preserved", len(report.Patches))
	}
	if report.NextOffset != 2 {
		t.Errorf("NextOffset = %d, want 2 (start of failed batch)", report.NextOffset)
	}

	// Resume from the surfaced offset with a healthy collaborator.
	f2 := &scriptedFetcher{}
	resumed := r.Run(context.Background(), testRows(6), f2, report.NextOffset)
	if resumed.Err != nil {
		t.Fatalf("resume: %v", resumed.Err)
	}
	if len(report.Patches)+len(resumed.Patches) != 6 {
		t.Errorf("total patches after resume = %d, want 6", len(report.Patches)+len(resumed.Patches))
	}
}
