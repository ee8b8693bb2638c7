// Package apikey validates bearer tokens against a static key list using
// SHA-256 hashes and constant-time comparison.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/rhuss/sandboxagent/pkg/auth"
	"github.com/rhuss/sandboxagent/pkg/config"
)

type keyEntry struct {
	hash     [32]byte
	identity auth.Identity
}

// Authenticator validates bearer tokens against configured keys.
type Authenticator struct {
	keys []keyEntry
}

// New creates an authenticator from config entries. Keys are hashed
// immediately; plaintext keys are not stored.
func New(entries []config.APIKeyConfig) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		a.keys = append(a.keys, keyEntry{
			hash: sha256.Sum256([]byte(e.Key)),
			identity: auth.Identity{
				Subject:     e.Subject,
				ServiceTier: e.ServiceTier,
			},
		})
	}
	return a
}

// Authenticate returns Yes for a known key, No for an unknown or empty
// bearer token and Abstain when no bearer token is sent.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	token, ok := auth.BearerToken(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if token == "" {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	tokenHash := sha256.Sum256([]byte(token))
	for _, entry := range a.keys {
		if subtle.ConstantTimeCompare(tokenHash[:], entry.hash[:]) == 1 {
			id := entry.identity
			return auth.AuthResult{Decision: auth.Yes, Identity: &id}
		}
	}

	return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
}
