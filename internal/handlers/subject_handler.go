package handlers

import (
	"context"
	"net/http"
	"time"

	"familypoints/internal/models"
)

// Subjects returns the static subject lookup list
func Subjects(w http.ResponseWriter, r *http.Request) {
	respondOK(w, models.Subjects)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health answers liveness checks, looking at the database when one is given
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, "database unavailable", nil)
				return
			}
		}
		respondOK(w, map[string]string{"status": "ok"})
	}
}
