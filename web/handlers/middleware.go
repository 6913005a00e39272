package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/memovo/memovo/internal/config"
	"golang.org/x/time/rate"
)

// RequireAuth enforces bearer-token authentication when the server runs in
// production mode. Development mode passes every request through.
func RequireAuth(next http.Handler, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Security.Mode == "development" {
			next.ServeHTTP(w, r)
			return
		}
		if !tokenMatches(r.Header.Get("Authorization"), cfg.Security.APIToken) {
			respondError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tokenMatches compares the Authorization header against the configured token
// in constant time. An empty configured token matches nothing, so a
// misconfigured production server stays closed rather than open.
func tokenMatches(header, want string) bool {
	if want == "" {
		return false
	}
	got := strings.TrimPrefix(header, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// RateLimiter applies a single server-wide token bucket to incoming requests.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter with the given sustained rate and burst.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst)}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
