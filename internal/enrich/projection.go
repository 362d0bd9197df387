package enrich

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/poi-recon/internal/match"
)

// Row is the minimal identifier-bearing projection sent to an enrichment
// collaborator: enough context to look the venue up, nothing more.
type Row struct {
	PlaceID string `json:"google_place_id"`
	Name    string `json:"name"`
	Website string `json:"website"`
	Area    string `json:"area"`
	City    string `json:"city"`
	Address string `json:"address"`
}

// Project builds collaborator rows for every confirmed or auto-confirmed
// match.
func Project(matches []match.ResolvedMatch, area, city string) []Row {
	var rows []Row
	for _, m := range matches {
		if m.Status != match.StatusConfirmed && m.Status != match.StatusAutoConfirmed {
			continue
		}
		rows = append(rows, Row{
			PlaceID: m.Listing.ListingID(),
			Name:    m.Listing.Title,
			Website: m.Listing.Website,
			Area:    area,
			City:    city,
			Address: m.Listing.Street,
		})
	}
	return rows
}

// WriteProjectionCSV writes collaborator rows as header-driven CSV.
func WriteProjectionCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"google_place_id", "name", "website", "area", "city", "address"}); err != nil {
		return fmt.Errorf("failed to write projection header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.PlaceID, r.Name, r.Website, r.Area, r.City, r.Address}); err != nil {
			return fmt.Errorf("failed to write projection row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPatchesCSV parses the collaborator's result CSV. Columns are matched by
// header name; unknown columns are ignored and missing columns mean "not
// found". Rows without an identifier are skipped and counted.
func ReadPatchesCSV(r io.Reader) ([]Patch, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read patch header: %w", err)
	}

	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var patches []Patch
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		p := Patch{
			PlaceID:       field(record, "google_place_id"),
			CoverImage:    field(record, "cover_image"),
			MenuURL:       field(record, "menu_url"),
			MenuPDFURL:    field(record, "menu_pdf_url"),
			GalleryImages: field(record, "gallery_images"),
			Phone:         field(record, "phone"),
			OpeningHours:  field(record, "opening_hours"),
			CuisineType:   field(record, "cuisine_type"),
			PriceRange:    field(record, "price_range"),
			ReviewSite:    field(record, "review_site_url"),
			ReviewNotes:   field(record, "review_site_notes"),
		}
		if p.PlaceID == "" {
			skipped++
			continue
		}
		patches = append(patches, p)
	}

	return patches, skipped, nil
}

// Apply merges a patch list into the match slice by listing identifier.
// Returns how many matches were touched.
func Apply(matches []match.ResolvedMatch, patches []Patch) int {
	byID := make(map[string]Patch, len(patches))
	for _, p := range patches {
		byID[p.PlaceID] = p
	}

	touched := 0
	for i := range matches {
		p, ok := byID[matches[i].Listing.ListingID()]
		if !ok {
			continue
		}
		Merge(&matches[i], p)
		touched++
	}
	return touched
}
