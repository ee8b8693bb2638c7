// Package tools defines the contract between the agent runner and the
// tools it can call: ToolCall and ToolResult values and the ToolExecutor
// interface that every tool backend implements.
//
// A ToolResult with IsError set is a recoverable failure that the model
// sees and may react to. A Go error returned from Execute is fatal for the
// agent run.
package tools
