package openaicompat

import (
	"cmp"
	"strings"

	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/provider"
)

// finishStatus maps finish_reason values that do not mean "completed".
var finishStatus = map[string]api.ResponseStatus{
	"length":         api.ResponseStatusIncomplete,
	"content_filter": api.ResponseStatusFailed,
}

// TranslateResponse turns the first choice of resp into provider items:
// an assistant message when there is text, then one function_call item
// per tool call. A response without choices is failed.
func TranslateResponse(resp *ChatCompletionResponse) *provider.ProviderResponse {
	out := &provider.ProviderResponse{Model: resp.Model, Status: api.ResponseStatusFailed}
	if u := resp.Usage; u != nil {
		out.Usage = api.Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
	}
	if len(resp.Choices) == 0 {
		return out
	}

	first := resp.Choices[0]
	out.Status = MapFinishReason(first.FinishReason)

	msg := first.Message
	if text := cmp.Or(ExtractContentString(msg.Content), msg.Refusal); text != "" {
		out.Items = append(out.Items, api.NewMessageItem(api.RoleAssistant, text))
	}
	for _, call := range msg.ToolCalls {
		out.Items = append(out.Items, functionCallItem(call))
	}
	return out
}

func functionCallItem(call ChatToolCall) api.Item {
	return api.Item{
		ID:     api.NewItemID(),
		Type:   api.ItemTypeFunctionCall,
		Status: api.ItemStatusCompleted,
		FunctionCall: &api.FunctionCallData{
			CallID:    call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		},
	}
}

// MapFinishReason returns the response status for a finish_reason. Unknown
// reasons, "stop" and "tool_calls" count as completed.
func MapFinishReason(reason string) api.ResponseStatus {
	if s, ok := finishStatus[reason]; ok {
		return s
	}
	return api.ResponseStatusCompleted
}

// ExtractContentString returns the text of a message content field, which
// is a string, a list of {"type":"text","text":...} parts, or null.
func ExtractContentString(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var b strings.Builder
		for _, p := range v {
			if part, ok := p.(map[string]any); ok {
				s, _ := part["text"].(string)
				b.WriteString(s)
			}
		}
		return b.String()
	}
	return ""
}
