package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AuthDecision is an authenticator's vote on a request.
type AuthDecision int

const (
	// Yes accepts the credentials; evaluation stops.
	Yes AuthDecision = iota
	// No rejects credentials that were present but invalid; evaluation stops.
	No
	// Abstain passes the request to the next authenticator.
	Abstain
)

// AuthResult is one vote. Identity is set for Yes, Err for No.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity
	Err      error
}

// Identity is a caller allowed to run code.
type Identity struct {
	Subject     string // never empty for an accepted caller
	ServiceTier string // selects the rate limit
}

// Anonymous is the identity used when the chain accepts by default.
var Anonymous = Identity{Subject: "anonymous", ServiceTier: "default"}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Authenticator inspects request credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// AuthChain asks each authenticator in turn until one votes Yes or No.
type AuthChain struct {
	Authenticators []Authenticator

	// DefaultDecision applies when every authenticator abstains. Yes
	// admits the caller as Anonymous.
	DefaultDecision AuthDecision
}

// Authenticate returns the first decisive vote or the default.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.DefaultDecision != Yes {
		return AuthResult{Decision: No, Err: ErrUnauthenticated}
	}
	anon := Anonymous
	return AuthResult{Decision: Yes, Identity: &anon}
}

// BearerToken returns the token of an "Authorization: Bearer" header. ok
// is false for a missing header or another scheme, which authenticators
// answer with Abstain.
func BearerToken(r *http.Request) (token string, ok bool) {
	rest, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
