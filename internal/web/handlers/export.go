package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/poi-recon/internal/export"
)

// ExportHandler freezes confirmed matches into downloadable snapshots
type ExportHandler struct {
	Env *Env
}

// CreateSnapshot flattens a job's confirmed matches and parks them under an
// ephemeral token. The response carries the token and its expiry; the caller
// downloads via GetSnapshot before the token goes stale.
func (h *ExportHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if !h.Env.Config.Features.ExportEnabled {
		writeError(w, http.StatusForbidden, "export is disabled")
		return
	}

	_, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	q := r.URL.Query()
	records := export.Flatten(job.Matches, q.Get("area"), q.Get("city"), q.Get("country"))
	snap := h.Env.Snapshots.Create(job.ID, records, time.Now().UTC())

	h.Env.Log.Info("snapshot created",
		zap.String("job_id", job.ID),
		zap.String("token", snap.Token),
		zap.Int("records", len(records)))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":      snap.Token,
		"records":    len(records),
		"expires_at": snap.ExpiresAt,
	})
}

// GetSnapshot downloads a snapshot as CSV. A stale or unknown token gets
// 410 Gone; the caller must create a new snapshot rather than retry.
func (h *ExportHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Env.Snapshots.Get(mux.Vars(r)["token"], time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusGone, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="reconciled_`+snap.JobID+`.csv"`)
	if err := export.WriteCSV(w, snap.Records); err != nil {
		h.Env.Log.Error("snapshot write failed", zap.Error(err))
	}
}
