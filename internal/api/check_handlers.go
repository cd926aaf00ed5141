package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pingkeep/pingkeep/internal/registry"
	"github.com/pingkeep/pingkeep/internal/scheduler"
	"github.com/pingkeep/pingkeep/internal/storage"
)

const (
	defaultCheckLimit = 50
	maxCheckLimit     = 1000
)

// HandleCheckNow runs one probe immediately for a URL owned by the caller
// and returns the stored record alongside the raw probe result. A probe
// already in flight for the same URL yields 409.
func HandleCheckNow(reg *registry.Service, coordinator *scheduler.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)

		id, err := urlIDParam(r)
		if err != nil {
			http.Error(w, "Invalid URL ID", http.StatusBadRequest)
			return
		}

		u, err := reg.Get(r.Context(), user.ID, id)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		check, result, err := coordinator.CheckNow(r.Context(), u)
		if err != nil {
			if errors.Is(err, scheduler.ErrProbeInFlight) {
				http.Error(w, "A check for this URL is already running", http.StatusConflict)
				return
			}
			http.Error(w, "Failed to record check", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"check":  check,
			"result": result,
		})
	}
}

// HandleGetChecks returns recent check history for a URL owned by the caller
func HandleGetChecks(reg *registry.Service, store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)

		id, err := urlIDParam(r)
		if err != nil {
			http.Error(w, "Invalid URL ID", http.StatusBadRequest)
			return
		}

		if _, err := reg.Get(r.Context(), user.ID, id); err != nil {
			writeRegistryError(w, err)
			return
		}

		limit := defaultCheckLimit
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxCheckLimit {
				limit = l
			}
		}

		checks, err := store.ListRecentChecks(r.Context(), id, limit)
		if err != nil {
			http.Error(w, "Failed to fetch checks", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"checks": checks})
	}
}
