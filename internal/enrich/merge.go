// Package enrich applies external collaborator output to resolved matches
// under a strict null-fill policy: a value already present is never
// overwritten.
package enrich

import (
	"encoding/json"
	"strings"

	"github.com/poi-recon/internal/match"
)

// Patch is one collaborator result row, keyed by the business-listing
// identifier. Serialized fields arrive as text and are parsed defensively;
// empty strings and literal "null" mean "not found", which is legal.
type Patch struct {
	PlaceID       string `json:"google_place_id"`
	CoverImage    string `json:"cover_image"`
	MenuURL       string `json:"menu_url"`
	MenuPDFURL    string `json:"menu_pdf_url"`
	GalleryImages string `json:"gallery_images"` // serialized JSON list
	Phone         string `json:"phone"`
	OpeningHours  string `json:"opening_hours"` // serialized JSON object
	CuisineType   string `json:"cuisine_type"`
	PriceRange    string `json:"price_range"`
	ReviewSite    string `json:"review_site_url"`
	ReviewNotes   string `json:"review_site_notes"`
}

// Merge fills the match's empty enrichment fields from the patch. Fields the
// match already carries are left untouched; malformed serialized fields keep
// the prior value and never abort the merge. Safe to invoke repeatedly and
// incrementally.
func Merge(m *match.ResolvedMatch, p Patch) {
	e := &m.Enrichment

	fillString(&e.CoverImage, p.CoverImage)
	fillString(&e.MenuURL, p.MenuURL)
	fillString(&e.MenuPDFURL, p.MenuPDFURL)
	fillString(&e.Phone, p.Phone)
	fillString(&e.CuisineType, p.CuisineType)
	fillString(&e.PriceRange, p.PriceRange)
	fillString(&e.ReviewSite, p.ReviewSite)
	fillString(&e.ReviewNotes, p.ReviewNotes)

	if len(e.Gallery) == 0 {
		if list, ok := ParseStringList(p.GalleryImages); ok {
			e.Gallery = list
		}
	}
	if len(e.OpeningHours) == 0 {
		if hours, ok := ParseHours(p.OpeningHours); ok {
			e.OpeningHours = hours
		}
	}
}

// fillString sets dst only when it is currently absent and the incoming value
// is a real value.
func fillString(dst **string, val string) {
	if *dst != nil && **dst != "" {
		return
	}
	if isNull(val) {
		return
	}
	v := val
	*dst = &v
}

// isNull reports an absent serialized value.
func isNull(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || strings.EqualFold(t, "null")
}

// ParseStringList parses a serialized JSON string list. Total: on any
// malformation it reports !ok so the caller keeps the prior value. A bare
// string is accepted as a one-element list, matching how collaborators have
// historically emitted single URLs.
func ParseStringList(s string) ([]string, bool) {
	if isNull(s) {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return list, true
	}
	var single string
	if err := json.Unmarshal([]byte(s), &single); err == nil && single != "" {
		return []string{single}, true
	}
	return nil, false
}

// ParseHours parses a serialized JSON day->hours object. Total; !ok on
// malformation.
func ParseHours(s string) (map[string]string, bool) {
	if isNull(s) {
		return nil, false
	}
	var hours map[string]string
	if err := json.Unmarshal([]byte(s), &hours); err != nil {
		return nil, false
	}
	return hours, true
}
