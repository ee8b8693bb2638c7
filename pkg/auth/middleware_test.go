package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler(t *testing.T, wantSubject string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantSubject != "" {
			id := IdentityFromContext(r.Context())
			if id == nil || id.Subject != wantSubject {
				t.Errorf("identity in context = %v, want %q", id, wantSubject)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_BypassEndpoint(t *testing.T) {
	chain := &AuthChain{DefaultDecision: No}
	handler := Middleware(chain, nil, []string{"/healthz"})(okHandler(t, ""))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("bypass endpoint: status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_NoAuth_Rejects(t *testing.T) {
	chain := &AuthChain{DefaultDecision: No}
	handler := Middleware(chain, nil, DefaultBypassEndpoints)(okHandler(t, ""))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no auth: status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q, want Bearer challenge", got)
	}
	if !strings.Contains(rec.Body.String(), "authentication required") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestMiddleware_ValidAuth_Passes(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: "alice"}}},
		},
		DefaultDecision: No,
	}
	handler := Middleware(chain, nil, DefaultBypassEndpoints)(okHandler(t, "alice"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("valid auth: status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_EmptySubject(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{}}},
		},
	}
	handler := Middleware(chain, nil, nil)(okHandler(t, ""))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestMiddleware_RateLimit_Exceeded(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{
				Decision: Yes,
				Identity: &Identity{Subject: "alice", ServiceTier: "limited"},
			}},
		},
		DefaultDecision: No,
	}
	limiter := NewInProcessLimiter(100, map[string]int{"limited": 2})
	handler := Middleware(chain, limiter, DefaultBypassEndpoints)(okHandler(t, ""))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("rate limited request: status = %d, want 429", rec.Code)
	}
}

func TestInProcessLimiter_WindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewInProcessLimiter(1, nil)
	limiter.now = func() time.Time { return now }
	id := &Identity{Subject: "alice"}

	if err := limiter.Allow(context.Background(), id); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := limiter.Allow(context.Background(), id); err != ErrTooManyRequests {
		t.Fatalf("second request = %v, want ErrTooManyRequests", err)
	}

	// Another subject has its own counter.
	if err := limiter.Allow(context.Background(), &Identity{Subject: "bob"}); err != nil {
		t.Errorf("other subject: %v", err)
	}

	now = now.Add(time.Minute)
	if err := limiter.Allow(context.Background(), id); err != nil {
		t.Errorf("after window: %v", err)
	}
}

func TestInProcessLimiter_DropsExpiredWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewInProcessLimiter(5, nil)
	limiter.now = func() time.Time { return now }

	for _, subject := range []string{"alice", "bob", "carol"} {
		if err := limiter.Allow(context.Background(), &Identity{Subject: subject}); err != nil {
			t.Fatalf("%s: %v", subject, err)
		}
	}
	if n := len(limiter.windows); n != 3 {
		t.Fatalf("windows = %d, want 3", n)
	}

	now = now.Add(30 * time.Second)
	if err := limiter.Allow(context.Background(), &Identity{Subject: "dave"}); err != nil {
		t.Fatalf("dave: %v", err)
	}
	if n := len(limiter.windows); n != 4 {
		t.Fatalf("windows before expiry = %d, want 4", n)
	}

	// Only dave's window is still open.
	now = now.Add(45 * time.Second)
	if err := limiter.Allow(context.Background(), &Identity{Subject: "alice"}); err != nil {
		t.Fatalf("alice again: %v", err)
	}
	if n := len(limiter.windows); n != 2 {
		t.Errorf("windows after expiry = %d, want 2 (alice, dave)", n)
	}
}

func TestInProcessLimiter_ZeroIsUnlimited(t *testing.T) {
	limiter := NewInProcessLimiter(0, map[string]int{"batch": 0})
	for i := 0; i < 50; i++ {
		if err := limiter.Allow(context.Background(), &Identity{Subject: "ci", ServiceTier: "batch"}); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
}
