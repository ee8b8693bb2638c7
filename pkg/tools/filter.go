package tools

import (
	"sort"
	"strings"
)

// FilterResult holds the outcome of checking tool calls against the tools
// an agent actually offers.
type FilterResult struct {
	// Allowed contains tool calls that name an offered tool.
	Allowed []ToolCall

	// Rejected contains error results for calls naming any other tool,
	// to be fed back to the model.
	Rejected []ToolResult
}

// FilterAvailable splits calls into those naming one of the available
// tools and error results for the rest. Models occasionally invent tool
// names; the rejection message lists the real ones so the model can
// correct itself on the next turn.
func FilterAvailable(calls []ToolCall, available []string) FilterResult {
	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}

	var result FilterResult
	for _, call := range calls {
		if known[call.Name] {
			result.Allowed = append(result.Allowed, call)
			continue
		}
		result.Rejected = append(result.Rejected, ToolResult{
			CallID:  call.ID,
			Output:  unknownToolMessage(call.Name, available),
			IsError: true,
		})
	}
	return result
}

func unknownToolMessage(name string, available []string) string {
	if len(available) == 0 {
		return "unknown tool " + name + ": no tools are available"
	}
	names := append([]string(nil), available...)
	sort.Strings(names)
	return "unknown tool " + name + ": available tools are " + strings.Join(names, ", ")
}
