package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/provider"
	"github.com/rhuss/sandboxagent/pkg/provider/openaicompat"
)

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing APIKey")
	}

	p, err := New(Config{APIKey: "sk"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if p.Name() != "openai" {
		t.Errorf("Name() = %q", p.Name())
	}
	if p.cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", p.cfg.BaseURL, DefaultBaseURL)
	}
	if !p.Capabilities().ToolCalling {
		t.Error("expected tool calling support")
	}
}

func TestNew_CompatibleWithoutKey(t *testing.T) {
	p, err := New(Config{BaseURL: "http://localhost:8000"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "openai-compatible" {
		t.Errorf("Name() = %q, want openai-compatible", p.Name())
	}
}

func TestProvider_Complete_ModelMappingAndOrg(t *testing.T) {
	var gotModel, gotOrg string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaicompat.ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		gotOrg = r.Header.Get("OpenAI-Organization")

		json.NewEncoder(w).Encode(openaicompat.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openaicompat.ChatChoice{{
				FinishReason: "stop",
				Message:      openaicompat.ChatMessage{Role: "assistant", Content: "4"},
			}},
			Usage: &openaicompat.ChatUsage{PromptTokens: 10, CompletionTokens: 1, TotalTokens: 11},
		})
	}))
	defer srv.Close()

	p, err := New(Config{
		APIKey:       "sk",
		BaseURL:      srv.URL,
		Organization: "org-42",
		ModelMapping: map[string]string{"default": "gpt-4o-mini"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		model string
		want  string
	}{
		{"default", "gpt-4o-mini"},
		{"gpt-4o", "gpt-4o"},
	}
	for _, tt := range tests {
		resp, err := p.Complete(context.Background(), &provider.ProviderRequest{
			Model:    tt.model,
			Messages: []provider.ProviderMessage{{Role: "user", Content: "2+2?"}},
		})
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if gotModel != tt.want {
			t.Errorf("model %q sent as %q, want %q", tt.model, gotModel, tt.want)
		}
		if gotOrg != "org-42" {
			t.Errorf("OpenAI-Organization = %q", gotOrg)
		}
		if api.Text(resp.Items) != "4" || resp.Usage.TotalTokens != 11 {
			t.Errorf("resp = %+v", resp)
		}
	}
}
