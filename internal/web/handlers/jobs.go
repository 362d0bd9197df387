package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/poi-recon/internal/match"
	"github.com/poi-recon/internal/session"
)

// JobsHandler handles job lifecycle and matching endpoints
type JobsHandler struct {
	Env *Env
}

// JobSummary is the list-view projection of a job.
type JobSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SourceCount  int       `json:"source_count"`
	ListingCount int       `json:"listing_count"`
	MatchCount   int       `json:"match_count"`
}

// ListJobs returns summaries of every stored job.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Env.Store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load jobs")
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		summaries = append(summaries, JobSummary{
			ID:           j.ID,
			Name:         j.Name,
			Status:       j.Status,
			CreatedAt:    j.CreatedAt,
			UpdatedAt:    j.UpdatedAt,
			SourceCount:  len(j.Sources),
			ListingCount: len(j.Listings),
			MatchCount:   len(j.Matches),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// CreateJob creates an empty job from {"name": ..., "description": ...}.
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	jobs, err := h.Env.Store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load jobs")
		return
	}

	job := session.NewJob(req.Name, req.Description, time.Now().UTC())
	jobs = append(jobs, job)
	if err := h.Env.Store.Save(jobs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save job")
		return
	}

	h.Env.Log.Info("job created", zap.String("job_id", job.ID), zap.String("name", job.Name))
	writeJSON(w, http.StatusCreated, job)
}

// GetJob returns one full job.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	_, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// SetData attaches the two datasets to a job, resetting prior matching state.
func (h *JobsHandler) SetData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sources  []match.SourceEntity  `json:"sources"`
		Listings []match.ListingEntity `json:"listings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobs, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	job.SetData(req.Sources, req.Listings, time.Now().UTC())
	if err := h.Env.Store.Save(jobs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save job")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"sources":  len(job.Sources),
		"listings": len(job.Listings),
	})
}

// RunMatch runs the auto-matcher over a job's datasets and stores the
// resulting partition.
func (h *JobsHandler) RunMatch(w http.ResponseWriter, r *http.Request) {
	jobs, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if len(job.Sources) == 0 || len(job.Listings) == 0 {
		writeError(w, http.StatusConflict, "job has no data to match")
		return
	}

	now := time.Now().UTC()
	partition := match.AutoMatch(h.Env.Scorer, job.Sources, job.Listings, h.Env.Settings, now)
	job.SetPartition(partition, now)

	if err := h.Env.Store.Save(jobs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save job")
		return
	}

	stats := partition.Stats()
	h.Env.Log.Info("auto-match complete",
		zap.String("job_id", job.ID),
		zap.Int("matched", stats.TotalMatched),
		zap.Int("auto_confirmed", stats.AutoConfirmed),
		zap.Int("unmatched_source", len(partition.UnmatchedSource)),
		zap.Int("unmatched_listings", len(partition.UnmatchedListings)))
	writeJSON(w, http.StatusOK, stats)
}

// ListMatches returns a job's matches, optionally filtered by status.
func (h *JobsHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	_, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		writeJSON(w, http.StatusOK, job.Matches)
		return
	}

	filtered := make([]match.ResolvedMatch, 0)
	for _, m := range job.Matches {
		if string(m.Status) == status {
			filtered = append(filtered, m)
		}
	}
	writeJSON(w, http.StatusOK, filtered)
}

// GetUnmatched returns both unmatched pools and the flagged items.
func (h *JobsHandler) GetUnmatched(w http.ResponseWriter, r *http.Request) {
	_, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":   job.UnmatchedSource,
		"listings": job.UnmatchedListings,
		"flagged":  job.Flagged,
	})
}
