// Package mcp lets agents call tools hosted on remote MCP (Model Context
// Protocol) servers. Each configured server becomes one FunctionProvider
// whose tools are discovered when it connects.
//
// The package wraps the official MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
// Pointing an agent at a running sandbox-mcp server gives it the same
// execute_code tool it would get in-process.
package mcp
