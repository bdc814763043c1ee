package incident

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts incident endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/incidents", listIncidentsHandler(store))
	r.Get("/api/incidents/stats", statsHandler(store))
	r.Get("/api/incidents/export", exportHandler(store))
	r.Get("/api/incidents/{id}", getIncidentHandler(store))
	r.Post("/api/incidents/{id}/status", updateStatusHandler(store))
}

func listIncidentsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			Type:   q.Get("type"),
			Status: Status(q.Get("status")),
			Query:  q.Get("q"),
		}
		result, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if result == nil {
			result = []Incident{}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func getIncidentHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		inc, err := store.GetByID(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "incident not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	}
}

// statusRequest is the body of a status update.
type statusRequest struct {
	Status Status `json:"status"`
}

func updateStatusHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		err := store.UpdateStatus(r.Context(), id, req.Status)
		switch {
		case errors.Is(err, ErrBadStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		inc, err := store.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	}
}

func exportHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := store.ExportAll(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if result == nil {
			result = []Incident{}
		}
		w.Header().Set("Content-Disposition", `attachment; filename="incidents.json"`)
		writeJSON(w, http.StatusOK, result)
	}
}

func statsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetStats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
