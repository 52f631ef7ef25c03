package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/communityportal/backend/internal/repository"
)

// Handler holds the cross-cutting endpoints (health, CORS).
type Handler struct {
	db             repository.DB
	allowedOrigins []string
}

// New creates a Handler. frontendURL may list several origins separated by
// commas.
func New(db repository.DB, frontendURL string) *Handler {
	var origins []string
	for _, o := range strings.Split(frontendURL, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return &Handler{db: db, allowedOrigins: origins}
}

// CORS lets the portal frontend call the API. The API uses no cookies, so
// credentials are not allowed.
func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); origin != "" && slices.Contains(h.allowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key")
			w.Header().Set("Access-Control-Max-Age", "600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
