package openaicompat

import (
	"github.com/rhuss/sandboxagent/pkg/provider"
)

// TranslateToChat builds the /v1/chat/completions body for req. Only one
// choice is ever requested.
func TranslateToChat(req *provider.ProviderRequest) ChatCompletionRequest {
	out := ChatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]ChatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		N:           1,
		User:        req.User,
		ToolChoice:  toolChoice(req),
	}
	for i := range req.Messages {
		out.Messages = append(out.Messages, chatMessage(&req.Messages[i]))
	}
	if len(req.Tools) == 0 {
		// parallel_tool_calls without tools is a 400 on most backends.
		return out
	}
	out.Tools = make([]ChatTool, len(req.Tools))
	for i, t := range req.Tools {
		out.Tools[i] = ChatTool{Type: t.Type, Function: ChatFunctionDef(t.Function)}
	}
	out.ParallelToolCalls = req.ParallelToolCalls
	return out
}

func chatMessage(m *provider.ProviderMessage) ChatMessage {
	msg := ChatMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]ChatToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = ChatToolCall{ID: tc.ID, Type: tc.Type, Function: ChatFunctionCall(tc.Function)}
		}
	}
	return msg
}

// toolChoice yields either the bare mode string or the named function
// object; the wire field accepts both.
func toolChoice(req *provider.ProviderRequest) any {
	tc := req.ToolChoice
	switch {
	case tc == nil:
		return nil
	case tc.String != "":
		return tc.String
	case tc.Function != nil:
		return tc.Function
	}
	return nil
}
