package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/poi-recon/internal/match"
	"github.com/poi-recon/internal/review"
)

// ReviewHandler walks and adjudicates a job's pending-match queue
type ReviewHandler struct {
	Env *Env
}

// ReviewItem is the entry under the cursor plus queue position context.
type ReviewItem struct {
	Match    *match.ResolvedMatch `json:"match,omitempty"`
	Index    int                  `json:"index"`
	Pending  int                  `json:"pending"`
	Total    int                  `json:"total"`
	Finished bool                 `json:"finished"`
}

var reviewActions = map[string]match.Status{
	"accept": match.StatusConfirmed,
	"reject": match.StatusRejected,
	"skip":   match.StatusSkipped,
}

// GetCurrent returns the match under the review cursor.
func (h *ReviewHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	_, job, err := h.Env.loadJob(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	q := review.NewQueue(job.Matches, job.ReviewIndex)
	item := ReviewItem{
		Index:   -1,
		Pending: q.PendingCount(),
		Total:   len(job.Matches),
	}
	if m, idx, ok := q.Current(); ok {
		item.Match = &m
		item.Index = idx
	} else {
		item.Finished = true
	}
	writeJSON(w, http.StatusOK, item)
}

// Act applies accept, reject or skip to the match at {index} and advances
// the stored cursor.
func (h *ReviewHandler) Act(w http.ResponseWriter, r *http.Request) {
	if !h.Env.Config.Features.ManualOverrideEnabled {
		writeError(w, http.StatusForbidden, "manual review is disabled")
		return
	}

	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match index")
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target, ok := reviewActions[req.Action]
	if !ok {
		writeError(w, http.StatusBadRequest, "action must be accept, reject or skip")
		return
	}

	jobs, job, err := h.Env.loadJob(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	q := review.NewQueue(job.Matches, job.ReviewIndex)
	cursor, err := q.Apply(index, target, time.Now().UTC())
	switch {
	case errors.Is(err, review.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, review.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job.ReviewIndex = cursor
	if cursor < 0 {
		job.ReviewIndex = 0
	}
	job.UpdatedAt = time.Now().UTC()
	if err := h.Env.Store.Save(jobs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save job")
		return
	}

	h.Env.Log.Info("review action",
		zap.String("job_id", job.ID),
		zap.Int("index", index),
		zap.String("action", req.Action))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  string(target),
		"cursor":  cursor,
		"pending": q.PendingCount(),
	})
}
