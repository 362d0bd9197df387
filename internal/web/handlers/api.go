package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/poi-recon/internal/match"
)

// APIHandler handles general API endpoints
type APIHandler struct {
	Env *Env
}

// StatsResponse represents overall statistics across every job
type StatsResponse struct {
	Jobs            int            `json:"jobs"`
	TotalMatched    int            `json:"total_matched"`
	UnmatchedSource int            `json:"unmatched_source"`
	UnmatchedListed int            `json:"unmatched_listings"`
	Flagged         int            `json:"flagged"`
	ByStatus        map[string]int `json:"by_status"`
	ByConfidence    map[string]int `json:"by_confidence"`
	ByMethod        map[string]int `json:"by_method"`
	MatchRate       float64        `json:"match_rate"`
}

// GetStats returns aggregate statistics across all stored jobs.
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Env.Store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load jobs")
		return
	}

	stats := StatsResponse{
		ByStatus:     make(map[string]int),
		ByConfidence: make(map[string]int),
		ByMethod:     make(map[string]int),
	}
	totalSources := 0
	for _, j := range jobs {
		stats.Jobs++
		stats.TotalMatched += len(j.Matches)
		stats.UnmatchedSource += len(j.UnmatchedSource)
		stats.UnmatchedListed += len(j.UnmatchedListings)
		stats.Flagged += len(j.Flagged)
		totalSources += len(j.Sources)
		for _, m := range j.Matches {
			stats.ByStatus[string(m.Status)]++
			stats.ByConfidence[string(m.Confidence)]++
			stats.ByMethod[m.Method]++
		}
	}
	if totalSources > 0 {
		stats.MatchRate = float64(stats.TotalMatched) / float64(totalSources)
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetJobStats returns one job's partition statistics.
func (h *APIHandler) GetJobStats(w http.ResponseWriter, r *http.Request) {
	_, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	p := match.Partition{
		Matches:           job.Matches,
		UnmatchedSource:   job.UnmatchedSource,
		UnmatchedListings: job.UnmatchedListings,
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches":            p.Stats(),
		"unmatched_source":   len(p.UnmatchedSource),
		"unmatched_listings": len(p.UnmatchedListings),
		"flagged":            len(job.Flagged),
	})
}

// GetCache returns the unmatched memory cache contents.
func (h *APIHandler) GetCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Env.Cache.Entries())
}
