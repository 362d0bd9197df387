package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/poi-recon/internal/cache"
	"github.com/poi-recon/internal/suggest"
)

// UnmatchedHandler serves suggestions, manual links and flags for the
// unresolved pools
type UnmatchedHandler struct {
	Env       *Env
	Suggester suggest.Suggester
}

// GetSuggestions ranks a job's unmatched listings against one unmatched
// source entity.
func (h *UnmatchedHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, job, err := h.Env.loadJob(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	src, err := job.FindUnmatchedSource(vars["entityId"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	suggestions, err := h.Suggester.Suggest(r.Context(), src, job.UnmatchedListings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "suggestion failed")
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// Link manually pairs an unmatched source with an unmatched listing.
func (h *UnmatchedHandler) Link(w http.ResponseWriter, r *http.Request) {
	if !h.Env.Config.Features.ManualOverrideEnabled {
		writeError(w, http.StatusForbidden, "manual linking is disabled")
		return
	}

	var req struct {
		ExternalID string `json:"external_id"`
		ListingID  string `json:"listing_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExternalID == "" || req.ListingID == "" {
		writeError(w, http.StatusBadRequest, "external_id and listing_id are required")
		return
	}

	jobs, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	src, err := job.FindUnmatchedSource(req.ExternalID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	listing, err := job.FindUnmatchedListing(req.ListingID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	m := job.Link(h.Env.Scorer, src, listing, time.Now().UTC())
	if err := h.Env.Store.Save(jobs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save job")
		return
	}

	h.Env.Log.Info("manual link",
		zap.String("job_id", job.ID),
		zap.String("source", src.Name),
		zap.String("listing", listing.Title),
		zap.Float64("score", m.Score))
	writeJSON(w, http.StatusCreated, m)
}

// Flag sets aside an unresolved entity with a reason and records it in the
// unmatched memory cache.
func (h *UnmatchedHandler) Flag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Side     string `json:"side"` // "map" or "listing"
		EntityID string `json:"entity_id"`
		Reason   string `json:"reason"`
		Notes    string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EntityID == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "entity_id and reason are required")
		return
	}

	jobs, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	now := time.Now().UTC()
	var item interface{}
	var key cache.Key

	switch req.Side {
	case "map":
		src, err := job.FindUnmatchedSource(req.EntityID)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		item = job.FlagSource(src, req.Reason, req.Notes, now)
		key = cache.Key{
			Name:    src.Name,
			Street:  src.Street,
			Lat:     src.Latitude,
			Lon:     src.Longitude,
			PlaceID: src.PlaceID,
		}
	case "listing":
		listing, err := job.FindUnmatchedListing(req.EntityID)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		item = job.FlagListing(listing, req.Reason, req.Notes, now)
		key = cache.Key{
			Name:    listing.Title,
			Street:  listing.Street,
			PlaceID: listing.KnownPlaceID(),
		}
		if listing.Latitude != nil && listing.Longitude != nil {
			key.Lat = *listing.Latitude
			key.Lon = *listing.Longitude
		}
	default:
		writeError(w, http.StatusBadRequest, "side must be map or listing")
		return
	}

	h.Env.Cache.Record(key, req.Side, now)
	if err := h.Env.persistCache(); err != nil {
		h.Env.Log.Warn("cache persist failed", zap.Error(err))
	}

	if err := h.Env.Store.Save(jobs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save job")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}
