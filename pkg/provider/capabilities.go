package provider

import (
	"slices"

	"github.com/rhuss/sandboxagent/pkg/api"
)

// ValidateCapabilities checks whether the given request is compatible with
// the provider's declared capabilities. Returns an APIError identifying
// the specific unsupported feature, or nil if the request is compatible.
func ValidateCapabilities(caps ProviderCapabilities, req *ProviderRequest) *api.APIError {
	if len(req.Tools) > 0 && !caps.ToolCalling {
		return api.NewInvalidRequestError("tools",
			"the configured provider does not support tool calling")
	}

	if len(caps.SupportedModels) > 0 && !slices.Contains(caps.SupportedModels, req.Model) {
		return api.NewInvalidRequestError("model",
			"model "+req.Model+" is not served by the configured provider")
	}

	return nil
}
