// Package findings provides note-taking tools an agent uses to record
// results and research findings. Entries live in an in-memory notebook
// owned by the provider for the lifetime of the process.
package findings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/tools"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

const (
	SaveResultTool  = "save_result"
	SaveFindingTool = "save_finding"
)

var (
	saveResultParams  = json.RawMessage(`{"type":"object","properties":{"filename":{"type":"string","description":"Name to save the result under"},"content":{"type":"string","description":"Content to save"}},"required":["filename","content"]}`)
	saveFindingParams = json.RawMessage(`{"type":"object","properties":{"title":{"type":"string","description":"Short title of the finding"},"finding":{"type":"string","description":"The finding itself"}},"required":["title","finding"]}`)
)

var savedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sandboxagent_findings_saved_total",
		Help: "Notebook entries saved by agents",
	},
	[]string{"tool"},
)

// Kind distinguishes the two entry types.
type Kind string

const (
	KindResult  Kind = "result"
	KindFinding Kind = "finding"
)

// Entry is one saved note.
type Entry struct {
	Kind    Kind
	Title   string
	Content string
	SavedAt time.Time
}

// Options selects which tools the provider offers. Both are offered when
// neither is set.
type Options struct {
	SaveResult  bool
	SaveFinding bool
}

// Provider implements registry.FunctionProvider for the notebook tools.
type Provider struct {
	opts Options

	mu      sync.Mutex
	entries []Entry
}

var _ registry.FunctionProvider = (*Provider)(nil)

// New creates a Provider with an empty notebook.
func New(opts Options) *Provider {
	if !opts.SaveResult && !opts.SaveFinding {
		opts = Options{SaveResult: true, SaveFinding: true}
	}
	return &Provider{opts: opts}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "findings" }

// Tools returns the enabled tool definitions.
func (p *Provider) Tools() []api.ToolDefinition {
	var defs []api.ToolDefinition
	if p.opts.SaveResult {
		defs = append(defs, api.ToolDefinition{
			Type:        "function",
			Name:        SaveResultTool,
			Description: "Save a result, such as a computed value or generated report, under a file name.",
			Parameters:  saveResultParams,
		})
	}
	if p.opts.SaveFinding {
		defs = append(defs, api.ToolDefinition{
			Type:        "function",
			Name:        SaveFindingTool,
			Description: "Record a research finding with a short title.",
			Parameters:  saveFindingParams,
		})
	}
	return defs
}

// CanExecute reports whether name is an enabled tool.
func (p *Provider) CanExecute(name string) bool {
	switch name {
	case SaveResultTool:
		return p.opts.SaveResult
	case SaveFindingTool:
		return p.opts.SaveFinding
	}
	return false
}

// Execute saves the entry and confirms it to the model.
func (p *Provider) Execute(_ context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	if !p.CanExecute(call.Name) {
		return tools.ErrorResult(call, "unknown tool %q", call.Name), nil
	}

	var entry Entry
	switch call.Name {
	case SaveResultTool:
		var args struct {
			Filename string `json:"filename"`
			Content  string `json:"content"`
		}
		if err := tools.DecodeArguments(call, &args); err != nil {
			return tools.ErrorResult(call, "%v", err), nil
		}
		if strings.TrimSpace(args.Filename) == "" {
			return tools.ErrorResult(call, "filename is required"), nil
		}
		entry = Entry{Kind: KindResult, Title: args.Filename, Content: args.Content}
	case SaveFindingTool:
		var args struct {
			Title   string `json:"title"`
			Finding string `json:"finding"`
		}
		if err := tools.DecodeArguments(call, &args); err != nil {
			return tools.ErrorResult(call, "%v", err), nil
		}
		if strings.TrimSpace(args.Title) == "" {
			return tools.ErrorResult(call, "title is required"), nil
		}
		entry = Entry{Kind: KindFinding, Title: args.Title, Content: args.Finding}
	}
	entry.SavedAt = time.Now()

	p.mu.Lock()
	p.entries = append(p.entries, entry)
	p.mu.Unlock()

	savedTotal.WithLabelValues(call.Name).Inc()
	slog.Info("notebook entry saved", "kind", entry.Kind, "title", entry.Title, "bytes", len(entry.Content))

	if entry.Kind == KindResult {
		return &tools.ToolResult{CallID: call.ID, Output: fmt.Sprintf("Result saved to %s (%d bytes)", entry.Title, len(entry.Content))}, nil
	}
	return &tools.ToolResult{CallID: call.ID, Output: fmt.Sprintf("Finding saved: %s", entry.Title)}, nil
}

// Entries returns a copy of the saved entries in insertion order.
func (p *Provider) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.entries...)
}

// Collectors returns the notebook counter.
func (p *Provider) Collectors() []prometheus.Collector {
	return []prometheus.Collector{savedTotal}
}

// Close releases resources.
func (p *Provider) Close() error { return nil }
