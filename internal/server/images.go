package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type imageMeta struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	ContentType string `json:"content_type,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int    `json:"size"`
	Degraded    bool   `json:"degraded"`
}

// handleImage serves an image through the cache. ?meta=1 returns the
// handle's metadata instead of its bytes.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image id is required"})
		return
	}

	h := s.cache.Load(r.Context(), id)
	if r.URL.Query().Get("meta") != "" {
		writeJSON(w, http.StatusOK, imageMeta{
			ID:          h.ID,
			Key:         s.cache.Key(id),
			ContentType: h.ContentType,
			Width:       h.Width,
			Height:      h.Height,
			Size:        h.Size(),
			Degraded:    h.Degraded,
		})
		return
	}
	if h.Degraded {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "image unavailable", "id": id})
		return
	}
	w.Header().Set("Content-Type", h.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(h.Size()))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(h.Bytes())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
