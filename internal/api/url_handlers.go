package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/registry"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// currentUser pulls the authenticated user set by AuthMiddleware.
func currentUser(r *http.Request) *models.User {
	return r.Context().Value(userContextKey).(*models.User)
}

func urlIDParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// writeRegistryError maps service errors onto HTTP statuses. Validation
// and authorization failures are reported distinctly so a caller can tell
// "invalid URL" from "not yours".
func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidTarget), errors.Is(err, registry.ErrInvalidInterval):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, registry.ErrNotOwner):
		http.Error(w, "URL belongs to another user", http.StatusForbidden)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "URL not found", http.StatusNotFound)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// HandleGetURLs returns the caller's active URLs, newest first
func HandleGetURLs(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)

		urls, err := reg.ListActive(r.Context(), user.ID)
		if err != nil {
			http.Error(w, "Failed to fetch URLs", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"urls": urls})
	}
}

// HandleCreateURL registers a new monitored URL for the caller
func HandleCreateURL(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)

		var params registry.CreateParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		created, err := reg.Create(r.Context(), user.ID, params)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"url": created})
	}
}

// HandleGetURL returns a single monitored URL owned by the caller
func HandleGetURL(reg *registry.Service) http.HandlerFunc {
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

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"url": u})
	}
}

// HandleUpdateURL updates the mutable fields of a monitored URL
func HandleUpdateURL(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)

		id, err := urlIDParam(r)
		if err != nil {
			http.Error(w, "Invalid URL ID", http.StatusBadRequest)
			return
		}

		var params registry.UpdateParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		updated, err := reg.Update(r.Context(), user.ID, id, params)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"url": updated})
	}
}

// HandleDeleteURL soft-deletes a monitored URL; its check history is kept
func HandleDeleteURL(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)

		id, err := urlIDParam(r)
		if err != nil {
			http.Error(w, "Invalid URL ID", http.StatusBadRequest)
			return
		}

		if err := reg.SoftDelete(r.Context(), user.ID, id); err != nil {
			writeRegistryError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
