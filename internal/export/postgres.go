package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/poi-recon/internal/config"
)

// Sink upserts flattened records into Postgres, keyed by place id.
type Sink struct {
	db    *sql.DB
	table string
}

// OpenSink connects using the PG* environment variables.
func OpenSink(table string) (*Sink, error) {
	host := config.GetEnv("PGHOST", "localhost")
	port := config.GetEnv("PGPORT", "5432")
	user := config.GetEnv("PGUSER", "postgres")
	password := config.GetEnv("PGPASSWORD", "")
	dbname := config.GetEnv("PGDATABASE", "poi_recon")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if table == "" {
		table = "restaurants"
	}
	return &Sink{db: db, table: table}, nil
}

// Close closes the connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the export table when it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			google_place_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			address TEXT,
			city TEXT,
			area TEXT,
			country TEXT,
			cover_image TEXT,
			external_place_id TEXT,
			rating DOUBLE PRECISION,
			reviews_count INTEGER,
			phone TEXT,
			website TEXT,
			category TEXT,
			google_maps_url TEXT,
			osm_name TEXT,
			postcode TEXT,
			source TEXT,
			match_confidence TEXT,
			match_score DOUBLE PRECISION,
			match_method TEXT,
			menu_url TEXT,
			menu_pdf_url TEXT,
			gallery_images TEXT,
			enriched_phone TEXT,
			opening_hours TEXT,
			cuisine_type TEXT,
			price_range TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, s.table))
	if err != nil {
		return fmt.Errorf("failed to ensure export schema: %w", err)
	}
	return nil
}

// Upsert writes records, replacing any previous row for the same place id.
// Returns the number of rows written.
func (s *Sink) Upsert(ctx context.Context, records []Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin export tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			google_place_id, name, latitude, longitude, address, city, area,
			country, cover_image, external_place_id, rating, reviews_count,
			phone, website, category, google_maps_url, osm_name, postcode,
			source, match_confidence, match_score, match_method, menu_url,
			menu_pdf_url, gallery_images, enriched_phone, opening_hours,
			cuisine_type, price_range, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
		          $17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,now())
		ON CONFLICT (google_place_id) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			area = EXCLUDED.area,
			country = EXCLUDED.country,
			cover_image = EXCLUDED.cover_image,
			external_place_id = EXCLUDED.external_place_id,
			rating = EXCLUDED.rating,
			reviews_count = EXCLUDED.reviews_count,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			category = EXCLUDED.category,
			google_maps_url = EXCLUDED.google_maps_url,
			osm_name = EXCLUDED.osm_name,
			postcode = EXCLUDED.postcode,
			source = EXCLUDED.source,
			match_confidence = EXCLUDED.match_confidence,
			match_score = EXCLUDED.match_score,
			match_method = EXCLUDED.match_method,
			menu_url = EXCLUDED.menu_url,
			menu_pdf_url = EXCLUDED.menu_pdf_url,
			gallery_images = EXCLUDED.gallery_images,
			enriched_phone = EXCLUDED.enriched_phone,
			opening_hours = EXCLUDED.opening_hours,
			cuisine_type = EXCLUDED.cuisine_type,
			price_range = EXCLUDED.price_range,
			updated_at = now()
	`, s.table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.PlaceID, r.Name, r.Latitude, r.Longitude, r.Address, r.City,
			r.Area, r.Country, r.CoverImage, r.ExternalPlaceID, r.Rating,
			r.ReviewsCount, r.Phone, r.Website, r.Category, r.MapsURL,
			r.SourceName, r.Postcode, r.Source, r.MatchConfidence,
			r.MatchScore, r.MatchMethod, r.MenuURL, r.MenuPDFURL,
			r.GalleryImages, r.EnrichedPhone, r.OpeningHours, r.CuisineType,
			r.PriceRange,
		)
		if err != nil {
			return written, fmt.Errorf("failed to upsert %s: %w", r.PlaceID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("failed to commit export: %w", err)
	}
	return written, nil
}
