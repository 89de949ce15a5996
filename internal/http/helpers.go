package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// serveCached answers from the response cache when possible, otherwise runs
// build, caches the marshaled result, and serves it. Only successful
// responses are cached.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, build func() (any, error)) {
	key := r.URL.Path + "?" + r.URL.RawQuery

	if body, found := s.responseCache.Get(key); found {
		slog.DebugContext(r.Context(), "Response cache hit", "key", key)
		writeJSON(w, http.StatusOK, body)
		return
	}

	v, err := build()
	if err != nil {
		s.respondBuildError(w, r, err)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal response", "error", err, "key", key)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.responseCache.Set(key, body)
	writeJSON(w, http.StatusOK, body)
}
