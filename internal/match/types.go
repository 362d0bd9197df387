package match

import (
	"strings"
	"time"
)

// SourceEntity is a point of interest from the geographic-extract source
// (dataset A). Immutable once ingested.
type SourceEntity struct {
	Name       string  `json:"name"`
	Street     string  `json:"street,omitempty"`
	Postcode   string  `json:"postcode,omitempty"`
	Cuisine    string  `json:"cuisine,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ExternalID string  `json:"external_id"`
	PlaceID    string  `json:"place_id,omitempty"` // pre-known listing identifier, if any
}

// ListingEntity is a point of interest from the business-listing source
// (dataset B). Immutable once ingested.
type ListingEntity struct {
	Title        string   `json:"title"`
	Street       string   `json:"street,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewsCount string   `json:"reviews_count,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	Category     string   `json:"category,omitempty"`
	URL          string   `json:"url,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	PlaceID      string   `json:"place_id,omitempty"`
}

// KnownPlaceID returns the business-listing identifier the listing actually
// carries: the explicit place id, else the one embedded in the canonical URL.
// Empty when the listing has none.
func (l ListingEntity) KnownPlaceID() string {
	if l.PlaceID != "" {
		return l.PlaceID
	}
	if l.URL != "" {
		if _, after, found := strings.Cut(l.URL, "query_place_id="); found {
			id, _, _ := strings.Cut(after, "&")
			return id
		}
	}
	return ""
}

// ListingID derives a stable identifier for a listing: the known place id
// when present, else a slug built from the title.
func (l ListingEntity) ListingID() string {
	if id := l.KnownPlaceID(); id != "" {
		return id
	}
	return "g-" + strings.Join(strings.Fields(l.Title), "-")
}

// Confidence is the discrete tier derived from a numeric score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Status is the lifecycle state of a resolved match.
type Status string

const (
	StatusPending       Status = "pending"
	StatusConfirmed     Status = "confirmed"
	StatusAutoConfirmed Status = "auto_confirmed"
	StatusRejected      Status = "rejected"
	StatusSkipped       Status = "skipped"
)

// Method tags record the provenance of a score.
const (
	MethodManualVerified = "manual_verified"
	MethodExactCore      = "exact_core"
	MethodNormalized     = "normalized"
	MethodSubstring      = "substring"
)

// ScoreResult is the outcome of scoring one source/listing pair.
type ScoreResult struct {
	Value  float64 `json:"value"` // 0..100
	Method string  `json:"method"`
}

// Enrichment holds the mutable fields filled in by external collaborators
// after a match is resolved. Nil means "not known yet"; the merge policy only
// ever fills nil fields.
type Enrichment struct {
	CoverImage   *string           `json:"cover_image,omitempty"`
	MenuURL      *string           `json:"menu_url,omitempty"`
	MenuPDFURL   *string           `json:"menu_pdf_url,omitempty"`
	Gallery      []string          `json:"gallery_images,omitempty"`
	Phone        *string           `json:"enriched_phone,omitempty"`
	OpeningHours map[string]string `json:"enriched_opening_hours,omitempty"`
	CuisineType  *string           `json:"cuisine_type,omitempty"`
	PriceRange   *string           `json:"price_range,omitempty"`
	ReviewSite   *string           `json:"review_site_url,omitempty"`
	ReviewNotes  *string           `json:"review_site_notes,omitempty"`
}

// ResolvedMatch is a scored source/listing pair plus its lifecycle state.
// Never destroyed, only re-statused.
type ResolvedMatch struct {
	Source     SourceEntity  `json:"source"`
	Listing    ListingEntity `json:"listing"`
	Score      float64       `json:"score"`
	Method     string        `json:"method"`
	Confidence Confidence    `json:"confidence"`
	Status     Status        `json:"status"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty"`
	Enrichment Enrichment    `json:"enrichment"`
}

// Settings are the only runtime tunables that affect matching behaviour.
// SubstringFloor and StreetBonus are configurable rather than hard-coded;
// the defaults have not been validated against labelled data.
type Settings struct {
	MinScore             float64 // auto-match floor
	AutoConfirmThreshold float64 // score at or above which a match skips review
	SubstringFloor       float64 // floor applied on substring containment
	StreetBonus          float64 // bonus when street strings overlap
}

// DefaultSettings returns the thresholds the system ships with.
func DefaultSettings() Settings {
	return Settings{
		MinScore:             70,
		AutoConfirmThreshold: 95,
		SubstringFloor:       85,
		StreetBonus:          5,
	}
}
