package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"familypoints/internal/models"
	"familypoints/internal/security"
	"familypoints/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// Authenticator resolves a bearer token to a principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth Authenticator
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(auth Authenticator) *Middleware {
	return &Middleware{auth: auth}
}

// RequireRoles requires a valid bearer token for an account holding one of roles.
// With no roles any authenticated account passes.
func (m *Middleware) RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondError(w, r, service.ErrUnauthorized)
				return
			}

			principal, err := m.auth.Authenticate(r.Context(), token)
			if err != nil {
				respondError(w, r, err)
				return
			}
			if len(roles) > 0 && !principal.HasRole(roles...) {
				respondError(w, r, service.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetPrincipal retrieves the authenticated account from the request context
func GetPrincipal(ctx context.Context) *models.Principal {
	principal, ok := ctx.Value(PrincipalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}

// RateLimit rejects requests from clients that exhausted their bucket
func RateLimit(limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(security.ClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				respondWithError(w, http.StatusTooManyRequests, "too many requests", "", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("HTTP request")
	})
}
