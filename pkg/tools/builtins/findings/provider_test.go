package findings

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rhuss/sandboxagent/pkg/tools"
)

func TestProvider_Tools(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"default offers both", Options{}, []string{SaveResultTool, SaveFindingTool}},
		{"results only", Options{SaveResult: true}, []string{SaveResultTool}},
		{"findings only", Options{SaveFinding: true}, []string{SaveFindingTool}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.opts)
			defs := p.Tools()
			if len(defs) != len(tt.want) {
				t.Fatalf("Tools() = %d defs, want %d", len(defs), len(tt.want))
			}
			for i, name := range tt.want {
				if defs[i].Name != name || !p.CanExecute(name) {
					t.Errorf("tool %d = %q, want %q", i, defs[i].Name, name)
				}
			}
		})
	}
}

func TestProvider_Execute(t *testing.T) {
	p := New(Options{})
	before := testutil.ToFloat64(savedTotal.WithLabelValues(SaveResultTool))

	res, err := p.Execute(context.Background(), tools.ToolCall{
		ID:        "c1",
		Name:      SaveResultTool,
		Arguments: `{"filename":"sum.txt","content":"4"}`,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError || !strings.Contains(res.Output, "sum.txt") {
		t.Errorf("result = %+v", res)
	}

	res, err = p.Execute(context.Background(), tools.ToolCall{
		ID:        "c2",
		Name:      SaveFindingTool,
		Arguments: `{"title":"Correlation","finding":"r=0.93"}`,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError || !strings.Contains(res.Output, "Correlation") {
		t.Errorf("result = %+v", res)
	}

	entries := p.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() = %d, want 2", len(entries))
	}
	if entries[0].Kind != KindResult || entries[0].Content != "4" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Kind != KindFinding || entries[1].Title != "Correlation" || entries[1].SavedAt.IsZero() {
		t.Errorf("entry 1 = %+v", entries[1])
	}

	if got := testutil.ToFloat64(savedTotal.WithLabelValues(SaveResultTool)); got != before+1 {
		t.Errorf("saved counter = %v, want %v", got, before+1)
	}
}

func TestProvider_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		call tools.ToolCall
	}{
		{"malformed", Options{}, tools.ToolCall{Name: SaveResultTool, Arguments: `{`}},
		{"missing filename", Options{}, tools.ToolCall{Name: SaveResultTool, Arguments: `{"content":"x"}`}},
		{"missing title", Options{}, tools.ToolCall{Name: SaveFindingTool, Arguments: `{"finding":"x"}`}},
		{"disabled tool", Options{SaveResult: true}, tools.ToolCall{Name: SaveFindingTool, Arguments: `{"title":"a","finding":"b"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.opts)
			res, err := p.Execute(context.Background(), tt.call)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if !res.IsError {
				t.Errorf("expected error result, got %+v", res)
			}
			if len(p.Entries()) != 0 {
				t.Error("nothing should be saved on error")
			}
		})
	}
}
