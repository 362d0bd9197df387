// Package handlers implements the HTTP API over reconciliation jobs. All
// state lives in the job store; handlers load, mutate and save whole jobs.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/poi-recon/internal/cache"
	"github.com/poi-recon/internal/match"
	"github.com/poi-recon/internal/session"
)

// Config represents the web server configuration (simplified)
type Config struct {
	Features struct {
		ExportEnabled         bool `json:"export_enabled"`
		ManualOverrideEnabled bool `json:"manual_override_enabled"`
	} `json:"features"`
}

// Env bundles the shared dependencies every handler needs.
type Env struct {
	Store     *session.Store
	Cache     *cache.Cache
	CacheDB   *cache.Store
	Scorer    *match.Scorer
	Settings  match.Settings
	Snapshots *SnapshotTable
	Config    *Config
	Log       *zap.Logger
}

// loadJob fetches one job by id or name from the store.
func (e *Env) loadJob(idOrName string) ([]*session.Job, *session.Job, error) {
	jobs, err := e.Store.Load()
	if err != nil {
		return nil, nil, err
	}
	job, err := session.Find(jobs, idOrName)
	if err != nil {
		return nil, nil, err
	}
	return jobs, job, nil
}

// persistCache writes the working cache back to its sqlite store, when one is
// configured.
func (e *Env) persistCache() error {
	if e.CacheDB == nil {
		return nil
	}
	return e.CacheDB.Replace(e.Cache.Entries())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
