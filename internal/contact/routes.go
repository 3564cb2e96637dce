package contact

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

// RegisterRoutes mounts the contact endpoints under /api/contact.
func RegisterRoutes(r chi.Router, store *Store, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.Route("/api/contact", func(r chi.Router) {
		r.Post("/", handleSubmit(store, logger))
		r.Get("/", handleList(store))
		r.Get("/{id}", handleGet(store))
	})
}

func handleSubmit(store *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub Submission
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&sub); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		m, err := store.Save(r.Context(), sub, r.RemoteAddr)
		if errors.Is(err, ErrInvalid) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			logger.Error("saving contact message", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		logger.Info("contact message received", "id", m.ID)
		writeJSON(w, http.StatusCreated, map[string]string{"id": m.ID, "status": "received"})
	}
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		msgs, err := store.List(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if msgs == nil {
			msgs = []Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
