package main

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/rhuss/sandboxagent/pkg/provider/openaicompat"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

const (
	mockModel   = "mock-model"
	defaultCode = `print("hello from the sandbox")`
)

// fencePattern matches the first fenced code block and its optional tag.
var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z]*)\\s*\\n(.*?)```")

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	resp := respond(&req)
	resp.Model = req.Model
	if resp.Model == "" {
		resp.Model = mockModel
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// respond decides the next turn. After a tool result it answers with that
// result; with tools available it calls the code tool; otherwise it
// replies with plain text.
func respond(req *openaicompat.ChatCompletionRequest) openaicompat.ChatCompletionResponse {
	last := req.Messages[len(req.Messages)-1]
	if last.Role == "tool" {
		return textResponse("The sandbox returned:\n" + openaicompat.ExtractContentString(last.Content))
	}

	tool, ok := pickCodeTool(req.Tools)
	if !ok {
		return textResponse("Hello from the mock model.")
	}

	code, lang := extractCode(lastUserMessage(req))
	args := map[string]string{"code": code}
	if acceptsLanguage(tool) {
		args["language"] = lang
	}
	raw, _ := json.Marshal(args)

	return openaicompat.ChatCompletionResponse{
		ID:     "chatcmpl-mock-tool",
		Object: "chat.completion",
		Choices: []openaicompat.ChatChoice{{
			Message: openaicompat.ChatMessage{
				Role: "assistant",
				ToolCalls: []openaicompat.ChatToolCall{{
					ID:   "call_mock_1",
					Type: "function",
					Function: openaicompat.ChatFunctionCall{
						Name:      tool.Function.Name,
						Arguments: string(raw),
					},
				}},
			},
			FinishReason: "tool_calls",
		}},
		Usage: &openaicompat.ChatUsage{PromptTokens: 20, CompletionTokens: 15, TotalTokens: 35},
	}
}

// pickCodeTool prefers a tool whose name mentions "execute" and falls
// back to the first tool.
func pickCodeTool(tools []openaicompat.ChatTool) (openaicompat.ChatTool, bool) {
	if len(tools) == 0 {
		return openaicompat.ChatTool{}, false
	}
	for _, t := range tools {
		if strings.Contains(t.Function.Name, "execute") {
			return t, true
		}
	}
	return tools[0], true
}

func acceptsLanguage(tool openaicompat.ChatTool) bool {
	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(tool.Function.Parameters, &schema); err != nil {
		return false
	}
	_, ok := schema.Properties["language"]
	return ok
}

// extractCode returns the first fenced block of text and its language.
// Unknown or missing tags fall back to python.
func extractCode(text string) (code, lang string) {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return defaultCode, string(sandbox.Python)
	}
	lang = string(sandbox.Python)
	if l, err := sandbox.ParseLanguage(m[1]); err == nil {
		lang = string(l)
	}
	return strings.TrimSpace(m[2]), lang
}

func lastUserMessage(req *openaicompat.ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return openaicompat.ExtractContentString(req.Messages[i].Content)
		}
	}
	return ""
}

func textResponse(text string) openaicompat.ChatCompletionResponse {
	return openaicompat.ChatCompletionResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Choices: []openaicompat.ChatChoice{{
			Message:      openaicompat.ChatMessage{Role: "assistant", Content: text},
			FinishReason: "stop",
		}},
		Usage: &openaicompat.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openaicompat.ChatModelsResponse{
		Object: "list",
		Data:   []openaicompat.ChatModel{{ID: mockModel, Object: "model", OwnedBy: "sandboxagent-mock"}},
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var body openaicompat.ChatErrorResponse
	body.Error.Message = msg
	body.Error.Type = "invalid_request_error"
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
