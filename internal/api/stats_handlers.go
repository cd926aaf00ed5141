package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pingkeep/pingkeep/internal/registry"
	"github.com/pingkeep/pingkeep/internal/stats"
)

const defaultWindowHours = 24

// HandleGetStats returns a stats snapshot for a URL owned by the caller.
// The window defaults to 24 hours and must be positive.
func HandleGetStats(reg *registry.Service, calc *stats.Calculator) http.HandlerFunc {
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

		hours := defaultWindowHours
		if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
			h, err := strconv.Atoi(hoursStr)
			if err != nil {
				http.Error(w, "Invalid hours parameter", http.StatusBadRequest)
				return
			}
			hours = h
		}

		snapshot, err := calc.Compute(r.Context(), id, hours)
		if err != nil {
			if errors.Is(err, stats.ErrInvalidWindow) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"stats": snapshot})
	}
}
