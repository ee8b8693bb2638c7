// Package auth guards the sandbox MCP endpoint.
//
// Authenticators vote Yes (identity found), No (credentials invalid) or
// Abstain (cannot handle the credentials). An AuthChain asks them in order
// and falls back to a default decision when all abstain. Middleware runs
// the chain, applies an optional per-caller rate limit and stores the
// identity in the request context so executions can be attributed.
package auth
