// Package agent runs LLM agents that reason with a remote model and act
// through tools. An Agent is a plain value (name, model, instructions,
// tools); a Runner drives it through the turn loop: the model reasons,
// requests tool calls, sees their results and reasons again until it
// answers without calling a tool.
//
// Tool calls are executed one at a time, in the order the model issued
// them. Agents can be exposed to other agents as tools with AsTool.
package agent
