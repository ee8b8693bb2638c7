package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/sandboxagent/pkg/agent"
	"github.com/rhuss/sandboxagent/pkg/provider/openai"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/sandbox/sandboxtest"
	"github.com/rhuss/sandboxagent/pkg/tools/builtins/codeinterpreter"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

func runAgent(t *testing.T, exec sandbox.Executor, cfg codeinterpreter.Config, prompt string) *agent.Result {
	t.Helper()
	srv := httptest.NewServer(newMux())
	t.Cleanup(srv.Close)

	p, err := openai.New(openai.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("openai.New: %v", err)
	}
	runner, err := agent.NewRunner(p, agent.Config{})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	tool, err := codeinterpreter.New(exec, cfg)
	if err != nil {
		t.Fatalf("codeinterpreter.New: %v", err)
	}

	a := &agent.Agent{Name: "mock", Model: "mock-model", Tools: []registry.FunctionProvider{tool}}
	res, err := runner.Run(context.Background(), a, prompt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestAgentRoundTrip(t *testing.T) {
	exec := &sandboxtest.Executor{Respond: sandboxtest.Stdout("2026-10-18\n")}

	res := runAgent(t, exec, codeinterpreter.Config{}, "Run this:\n```bash\necho $(date -I)\n```")

	reqs := exec.Requests()
	if len(reqs) != 1 {
		t.Fatalf("sandbox calls = %d, want 1", len(reqs))
	}
	if reqs[0].Code != "echo $(date -I)" || reqs[0].Language != sandbox.Bash {
		t.Errorf("request = %+v", reqs[0])
	}
	if res.Turns != 2 {
		t.Errorf("Turns = %d, want 2", res.Turns)
	}
	if !strings.Contains(res.FinalOutput, "2026-10-18") {
		t.Errorf("FinalOutput = %q", res.FinalOutput)
	}
}

func TestAgentDefaultSnippet(t *testing.T) {
	exec := &sandboxtest.Executor{Respond: sandboxtest.Stdout("hello from the sandbox\n")}

	res := runAgent(t, exec, codeinterpreter.Config{
		ToolName:  "execute_python_analysis",
		Languages: []sandbox.Language{sandbox.Python},
	}, "say hello")

	reqs := exec.Requests()
	if len(reqs) != 1 || reqs[0].Code != defaultCode || reqs[0].Language != sandbox.Python {
		t.Fatalf("requests = %+v", reqs)
	}
	if !strings.Contains(res.FinalOutput, sandbox.SuccessPrefix) {
		t.Errorf("FinalOutput = %q, want the formatted tool output", res.FinalOutput)
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		text     string
		wantCode string
		wantLang string
	}{
		{"```python\nprint(2+2)\n```", "print(2+2)", "python"},
		{"try\n```js\nconsole.log(1)\n```\nplease", "console.log(1)", "javascript"},
		{"```\nx = 1\n```", "x = 1", "python"},
		{"```ruby\nputs 1\n```", "puts 1", "python"},
		{"no code here", defaultCode, "python"},
	}
	for _, tt := range tests {
		code, lang := extractCode(tt.text)
		if code != tt.wantCode || lang != tt.wantLang {
			t.Errorf("extractCode(%q) = (%q, %q), want (%q, %q)", tt.text, code, lang, tt.wantCode, tt.wantLang)
		}
	}
}
