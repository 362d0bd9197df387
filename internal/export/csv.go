// Package export flattens resolved matches into the stable record projection
// other tooling depends on. Field names and nullability must stay stable
// across releases; add columns at the end, never rename.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/poi-recon/internal/match"
)

// Record is one flattened confirmed match.
type Record struct {
	Name            string  `json:"name"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Address         string  `json:"address"`
	City            string  `json:"city"`
	Area            string  `json:"area"`
	Country         string  `json:"country"`
	CoverImage      string  `json:"cover_image"`
	PlaceID         string  `json:"google_place_id"`
	ExternalPlaceID string  `json:"external_place_id"`
	Rating          float64 `json:"rating"`
	ReviewsCount    int     `json:"reviews_count"`
	Phone           string  `json:"phone"`
	Website         string  `json:"website"`
	Category        string  `json:"category"`
	MapsURL         string  `json:"google_maps_url"`
	SourceName      string  `json:"osm_name"`
	Postcode        string  `json:"postcode"`
	Source          string  `json:"source"`
	MatchConfidence string  `json:"match_confidence"`
	MatchScore      float64 `json:"match_score"`
	MatchMethod     string  `json:"match_method"`
	MenuURL         string  `json:"menu_url"`
	MenuPDFURL      string  `json:"menu_pdf_url"`
	GalleryImages   string  `json:"gallery_images"` // serialized JSON list
	EnrichedPhone   string  `json:"enriched_phone"`
	OpeningHours    string  `json:"opening_hours"` // serialized JSON object
	CuisineType     string  `json:"cuisine_type"`
	PriceRange      string  `json:"price_range"`
}

// Flatten projects every confirmed or auto-confirmed match into the export
// shape. Absent enrichment fields export as empty, meaning null downstream.
func Flatten(matches []match.ResolvedMatch, area, city, country string) []Record {
	var out []Record
	for _, m := range matches {
		if m.Status != match.StatusConfirmed && m.Status != match.StatusAutoConfirmed {
			continue
		}

		address := m.Listing.Street
		if m.Source.Postcode != "" {
			if address != "" {
				address += ", "
			}
			address += m.Source.Postcode
		}

		rec := Record{
			Name:            m.Listing.Title,
			Latitude:        m.Source.Latitude,
			Longitude:       m.Source.Longitude,
			Address:         address,
			City:            city,
			Area:            area,
			Country:         country,
			CoverImage:      m.Listing.ImageURL,
			PlaceID:         m.Listing.ListingID(),
			ExternalPlaceID: m.Source.ExternalID,
			Rating:          ratingOf(m.Listing),
			ReviewsCount:    reviewsOf(m.Listing),
			Phone:           m.Listing.Phone,
			Website:         m.Listing.Website,
			Category:        m.Listing.Category,
			MapsURL:         m.Listing.URL,
			SourceName:      m.Source.Name,
			Postcode:        m.Source.Postcode,
			Source:          "map-extract + business-listing",
			MatchConfidence: string(m.Confidence),
			MatchScore:      m.Score,
			MatchMethod:     m.Method,
		}

		e := m.Enrichment
		rec.CoverImage = firstNonEmpty(deref(e.CoverImage), rec.CoverImage)
		rec.MenuURL = deref(e.MenuURL)
		rec.MenuPDFURL = deref(e.MenuPDFURL)
		rec.EnrichedPhone = deref(e.Phone)
		rec.CuisineType = deref(e.CuisineType)
		rec.PriceRange = deref(e.PriceRange)
		if len(e.Gallery) > 0 {
			if b, err := json.Marshal(e.Gallery); err == nil {
				rec.GalleryImages = string(b)
			}
		}
		if len(e.OpeningHours) > 0 {
			if b, err := json.Marshal(e.OpeningHours); err == nil {
				rec.OpeningHours = string(b)
			}
		}

		out = append(out, rec)
	}
	return out
}

// Header returns the stable export column order.
func Header() []string {
	return []string{
		"name", "latitude", "longitude", "address", "city", "area", "country",
		"cover_image", "google_place_id", "external_place_id", "rating",
		"reviews_count", "phone", "website", "category", "google_maps_url",
		"osm_name", "postcode", "source", "match_confidence", "match_score",
		"match_method", "menu_url", "menu_pdf_url", "gallery_images",
		"enriched_phone", "opening_hours", "cuisine_type", "price_range",
	}
}

// WriteCSV writes the flattened records with the stable header.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Name,
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			r.Address, r.City, r.Area, r.Country,
			r.CoverImage, r.PlaceID, r.ExternalPlaceID,
			strconv.FormatFloat(r.Rating, 'f', -1, 64),
			strconv.Itoa(r.ReviewsCount),
			r.Phone, r.Website, r.Category, r.MapsURL,
			r.SourceName, r.Postcode, r.Source,
			r.MatchConfidence,
			strconv.FormatFloat(r.MatchScore, 'f', -1, 64),
			r.MatchMethod,
			r.MenuURL, r.MenuPDFURL, r.GalleryImages,
			r.EnrichedPhone, r.OpeningHours, r.CuisineType, r.PriceRange,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func ratingOf(l match.ListingEntity) float64 {
	if l.Rating == nil {
		return 0
	}
	return *l.Rating
}

// reviewsOf parses counts like "1,203"; unparseable counts export as 0.
func reviewsOf(l match.ListingEntity) int {
	s := strings.ReplaceAll(l.ReviewsCount, ",", "")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
