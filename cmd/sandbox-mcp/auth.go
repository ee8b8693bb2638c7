package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/sandboxagent/pkg/auth"
	"github.com/rhuss/sandboxagent/pkg/auth/apikey"
	"github.com/rhuss/sandboxagent/pkg/auth/jwt"
	"github.com/rhuss/sandboxagent/pkg/config"
)

// newAuthMiddleware builds the middleware guarding /mcp. With type "none"
// every caller is anonymous, but the rate limit still applies.
func newAuthMiddleware(cfg config.AuthConfig, bypass []string) (func(http.Handler) http.Handler, error) {
	chain := &auth.AuthChain{DefaultDecision: auth.No}

	switch cfg.Type {
	case "", "none":
		chain.DefaultDecision = auth.Yes
		slog.Warn("MCP endpoint is unauthenticated; anyone who can reach it can run code")
	case "apikey":
		chain.Authenticators = append(chain.Authenticators, apikey.New(cfg.APIKeys))
	case "jwt":
		chain.Authenticators = append(chain.Authenticators, jwt.New(cfg.JWT))
	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}

	var limiter auth.RateLimiter
	if cfg.RateLimit.RequestsPerMinute > 0 || len(cfg.RateLimit.Tiers) > 0 {
		limiter = auth.NewInProcessLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Tiers)
	}

	return auth.Middleware(chain, limiter, bypass), nil
}
