// Package jwt validates HMAC-signed bearer tokens. Deployments that front
// the sandbox with a gateway mint short-lived tokens with a shared secret;
// the subject and tier claims become the caller identity.
package jwt

import (
	"context"
	"fmt"
	"net/http"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/sandboxagent/pkg/auth"
	"github.com/rhuss/sandboxagent/pkg/config"
	"github.com/rhuss/sandboxagent/pkg/debug"
)

// Authenticator validates HS256/HS384/HS512 tokens.
type Authenticator struct {
	secret       []byte
	subjectClaim string
	tierClaim    string
	parser       *jwtlib.Parser
}

// New creates an authenticator from config. Issuer and audience are
// checked only when set.
func New(cfg config.JWTConfig) *Authenticator {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwtlib.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	a := &Authenticator{
		secret:       []byte(cfg.Secret),
		subjectClaim: cfg.SubjectClaim,
		tierClaim:    cfg.TierClaim,
		parser:       jwtlib.NewParser(opts...),
	}
	if a.subjectClaim == "" {
		a.subjectClaim = "sub"
	}
	if a.tierClaim == "" {
		a.tierClaim = "tier"
	}
	return a
}

// Authenticate returns Abstain without a bearer token, No for a token that
// fails signature or claim validation, and Yes otherwise.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	tokenStr, ok := auth.BearerToken(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if tokenStr == "" {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		debug.Log("auth", "jwt rejected", "error", err)
		return auth.AuthResult{Decision: auth.No, Err: fmt.Errorf("%w: %w", auth.ErrUnauthenticated, err)}
	}

	subject, _ := claims[a.subjectClaim].(string)
	if subject == "" {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("%w: missing %q claim", auth.ErrUnauthenticated, a.subjectClaim),
		}
	}
	tier, _ := claims[a.tierClaim].(string)

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{Subject: subject, ServiceTier: tier},
	}
}
