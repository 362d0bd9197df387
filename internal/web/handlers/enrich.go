package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/poi-recon/internal/enrich"
)

// EnrichHandler serves the enrichment projection and applies returned patches
type EnrichHandler struct {
	Env *Env
}

// GetProjection downloads the minimal CSV sent to the enrichment
// collaborator: one row per confirmed match, identifier first.
func (h *EnrichHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	_, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	q := r.URL.Query()
	rows := enrich.Project(job.Matches, q.Get("area"), q.Get("city"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="enrichment_projection.csv"`)
	if err := enrich.WriteProjectionCSV(w, rows); err != nil {
		h.Env.Log.Error("projection write failed", zap.Error(err))
	}
}

// UploadPatches parses a returned patch CSV and merges it into the job's
// confirmed matches. Rows without an identifier are skipped, malformed
// serialized fields leave the prior value in place.
func (h *EnrichHandler) UploadPatches(w http.ResponseWriter, r *http.Request) {
	jobs, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	patches, skipped, err := enrich.ReadPatchesCSV(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patch csv: "+err.Error())
		return
	}

	applied := enrich.Apply(job.Matches, patches)
	job.MarkEnriched(time.Now().UTC())
	if err := h.Env.Store.Save(jobs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save job")
		return
	}

	h.Env.Log.Info("enrichment patches applied",
		zap.String("job_id", job.ID),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped))
	writeJSON(w, http.StatusOK, map[string]int{
		"patches": len(patches),
		"applied": applied,
		"skipped": skipped,
	})
}
