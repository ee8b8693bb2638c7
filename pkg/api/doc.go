// Package api defines the conversation types shared by the agent runner,
// the provider adapters and the tool layer.
//
// Core types:
//   - [Item]: unit of conversation (message, function_call, function_call_output)
//   - [ToolDefinition]: a function tool offered to the model
//   - [Usage]: token accounting for one or more model turns
//   - [APIError]: structured error returned by the reasoning backend
//
// The package has no external dependencies and performs no I/O.
package api
