package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/rhuss/sandboxagent/pkg/observability"
)

// DefaultBypassEndpoints are served without credentials.
var DefaultBypassEndpoints = []string{"/healthz", "/metrics"}

// Middleware authenticates every request not in bypass with chain, then
// applies limiter when it is non-nil. The caller's Identity is stored in
// the request context for downstream handlers.
func Middleware(chain *AuthChain, limiter RateLimiter, bypass []string) func(http.Handler) http.Handler {
	open := slices.Clone(bypass)
	return func(next http.Handler) http.Handler {
		return &guard{chain: chain, limiter: limiter, open: open, next: next}
	}
}

type guard struct {
	chain   *AuthChain
	limiter RateLimiter
	open    []string
	next    http.Handler
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if slices.Contains(g.open, r.URL.Path) {
		g.next.ServeHTTP(w, r)
		return
	}

	res := g.chain.Authenticate(r.Context(), r)
	id := res.Identity
	switch {
	case res.Decision != Yes || id == nil:
		slog.Warn("request rejected", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", res.Err)
		observability.AuthRejectedTotal.WithLabelValues("unauthenticated").Inc()
		w.Header().Set("WWW-Authenticate", `Bearer realm="sandbox"`)
		writeError(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
		return
	case id.Subject == "":
		// An authenticator bug; never run code for an unnamed caller.
		slog.Error("authenticator accepted a caller without subject", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal authentication error")
		return
	}

	if g.limiter != nil {
		if err := g.limiter.Allow(r.Context(), id); err != nil {
			slog.Warn("caller over rate limit", "subject", id.Subject, "tier", id.ServiceTier)
			observability.AuthRejectedTotal.WithLabelValues("rate_limited").Inc()
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
	}

	slog.Debug("caller authenticated", "subject", id.Subject, "path", r.URL.Path)
	g.next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), id)))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	body.Error.Message = msg
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type identityKey struct{}

// SetIdentity returns ctx carrying the authenticated caller.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by Middleware, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
