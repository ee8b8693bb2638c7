// Package provider defines the interface to the reasoning backend that
// drives an agent. Each adapter handles its own wire protocol internally
// and speaks the package's ProviderRequest and ProviderResponse types, so
// the agent runner never sees backend protocol details.
package provider
