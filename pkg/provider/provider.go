package provider

import "context"

// Provider is the reasoning service an agent talks to. The runner calls
// Complete once per turn and never concurrently for the same run, but a
// Provider may be shared by sub-agents and must tolerate concurrent use.
type Provider interface {
	// Name identifies the backend in logs and metrics, e.g. "openai".
	Name() string

	// Capabilities reports which request features the backend accepts.
	Capabilities() ProviderCapabilities

	// Complete runs one model turn and returns its output items.
	Complete(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// ListModels lists the models the backend serves.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases idle connections.
	Close() error
}
