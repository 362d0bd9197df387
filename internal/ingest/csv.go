// Package ingest deserializes the two header-driven tabular inputs into
// typed entity collections. Unknown columns are ignored; rows missing
// required fields are skipped and counted, never fatal.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/poi-recon/internal/match"
)

// sourceAliases maps accepted header spellings to canonical source fields.
var sourceAliases = map[string]string{
	"name":            "name",
	"latitude":        "latitude",
	"lat":             "latitude",
	"longitude":       "longitude",
	"lon":             "longitude",
	"lng":             "longitude",
	"addr:street":     "street",
	"street":          "street",
	"addr:postcode":   "postcode",
	"postcode":        "postcode",
	"cuisine":         "cuisine",
	"amenity":         "cuisine",
	"@id":             "external_id",
	"id":              "external_id",
	"external_id":     "external_id",
	"google_place_id": "place_id",
	"place_id":        "place_id",
}

// listingAliases maps accepted header spellings to canonical listing fields.
var listingAliases = map[string]string{
	"title":           "title",
	"name":            "title",
	"street":          "street",
	"address":         "street",
	"totalscore":      "rating",
	"rating":          "rating",
	"reviewscount":    "reviews_count",
	"reviews_count":   "reviews_count",
	"phone":           "phone",
	"website":         "website",
	"categoryname":    "category",
	"category":        "category",
	"url":             "url",
	"imageurl":        "image_url",
	"image_url":       "image_url",
	"latitude":        "latitude",
	"lat":             "latitude",
	"longitude":       "longitude",
	"lon":             "longitude",
	"lng":             "longitude",
	"google_place_id": "place_id",
	"place_id":        "place_id",
}

// resolveHeader maps each column index to a canonical field name. Exact alias
// matches win; otherwise a header within edit distance 1 of an alias is
// accepted, which tolerates the typos that show up in hand-exported files.
// Unmapped columns are simply ignored.
func resolveHeader(header []string, aliases map[string]string) map[string]int {
	cols := map[string]int{}
	for i, raw := range header {
		h := strings.ToLower(strings.TrimSpace(raw))
		if h == "" {
			continue
		}
		if canonical, ok := aliases[h]; ok {
			if _, taken := cols[canonical]; !taken {
				cols[canonical] = i
			}
			continue
		}
		// Short headers get no fuzz; one edit on "lat" is too loose.
		if len(h) < 5 {
			continue
		}
		for alias, canonical := range aliases {
			if len(alias) < 5 {
				continue
			}
			if levenshtein.ComputeDistance(h, alias) <= 1 {
				if _, taken := cols[canonical]; !taken {
					cols[canonical] = i
				}
				break
			}
		}
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ReadSources parses the geographic-extract CSV. Rows without a name or with
// unparseable coordinates are skipped and counted.
func ReadSources(r io.Reader) ([]match.SourceEntity, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read source header: %w", err)
	}
	cols := resolveHeader(header, sourceAliases)

	var entities []match.SourceEntity
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

		name := field(record, cols, "name")
		lat, latErr := strconv.ParseFloat(field(record, cols, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(record, cols, "longitude"), 64)
		if name == "" || latErr != nil || lonErr != nil {
			skipped++
			continue
		}

		entities = append(entities, match.SourceEntity{
			Name:       name,
			Street:     field(record, cols, "street"),
			Postcode:   field(record, cols, "postcode"),
			Cuisine:    field(record, cols, "cuisine"),
			Latitude:   lat,
			Longitude:  lon,
			ExternalID: field(record, cols, "external_id"),
			PlaceID:    field(record, cols, "place_id"),
		})
	}

	return entities, skipped, nil
}

// ReadListings parses the business-listing CSV. Only the title is required;
// optional numeric fields that fail to parse are passed through as absent.
func ReadListings(r io.Reader) ([]match.ListingEntity, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read listing header: %w", err)
	}
	cols := resolveHeader(header, listingAliases)

	var entities []match.ListingEntity
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

		title := field(record, cols, "title")
		if title == "" {
			skipped++
			continue
		}

		entities = append(entities, match.ListingEntity{
			Title:        title,
			Street:       field(record, cols, "street"),
			Rating:       parseOptFloat(field(record, cols, "rating")),
			ReviewsCount: field(record, cols, "reviews_count"),
			Phone:        field(record, cols, "phone"),
			Website:      field(record, cols, "website"),
			Category:     field(record, cols, "category"),
			URL:          field(record, cols, "url"),
			ImageURL:     field(record, cols, "image_url"),
			Latitude:     parseOptFloat(field(record, cols, "latitude")),
			Longitude:    parseOptFloat(field(record, cols, "longitude")),
			PlaceID:      field(record, cols, "place_id"),
		})
	}

	return entities, skipped, nil
}

func parseOptFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
