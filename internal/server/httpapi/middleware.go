package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/folioforge/folioforge/internal/common"
	"github.com/folioforge/folioforge/internal/server/auth"
	"github.com/folioforge/folioforge/internal/server/ratelimit"
)

type ctxKey int

const claimsKey ctxKey = iota

// claimsFrom returns the verified token claims stored by requireAuth.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// clientKey identifies the caller for throttling. An authenticated identity
// wins so one user cannot dodge a ceiling by rotating addresses; otherwise
// proxy headers are checked so all clients behind one reverse proxy are not
// throttled as one. Requests with no usable address share the "unknown"
// bucket.
func clientKey(r *http.Request) string {
	if claims, ok := claimsFrom(r.Context()); ok {
		return "user:" + claims.UserID
	}
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		first := strings.TrimSpace(strings.Split(v, ",")[0])
		if first != "" {
			return first
		}
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return v
	}
	if v := r.Header.Get("CF-Connecting-IP"); v != "" {
		return v
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return "unknown"
}

// rateLimit throttles a route under cfg, keyed by (route, client). Standard
// X-RateLimit-* headers are set on every response; denials get 429 plus
// Retry-After. A store failure admits the request: the throttle protects
// capacity and must not become an outage of its own.
func (h *Handler) rateLimit(route string, cfg ratelimit.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.limiter.Admit(r.Context(), route, clientKey(r), cfg)
		if err != nil {
			h.log.Warn(r.Context(), "rate limit store unavailable, admitting request", "route", route, "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
			writeJSON(w, http.StatusTooManyRequests, errorBody(common.ErrRateLimitExceeded.Error()))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// smooth layers the token-bucket shaper over a route that cannot tolerate
// window-boundary bursts.
func (h *Handler) smooth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.smoother != nil && !h.smoother.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody(common.ErrRateLimitExceeded.Error()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth verifies the access token from the session cookie or an
// Authorization bearer header. Every failure mode gets the same 401 body so
// responses do not reveal whether a token was absent, expired, or forged.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerOrCookie(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
			return
		}

		claims, err := h.tokens.VerifyAccess(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerOrCookie(r *http.Request) string {
	if c, err := r.Cookie(accessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return ""
}
