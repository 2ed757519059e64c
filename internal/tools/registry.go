package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Registry holds the assistant's tools in registration order and routes
// tool calls by name. Registration happens once at startup; afterwards the
// registry is read-only and safe for concurrent use.
type Registry struct {
	// order preserves registration order for the model-facing tool list.
	order []string
	// byName maps tool names to their implementations.
	byName map[string]tool.InvokableTool
}

// invokable is the combined contract a registered tool must satisfy.
type invokable interface {
	AssistantTool
	tool.InvokableTool
}

// NewRegistry constructs a Registry over the given tools.
// Duplicate names are a programming error and rejected.
func NewRegistry(toolList ...invokable) (*Registry, error) {
	r := &Registry{byName: make(map[string]tool.InvokableTool, len(toolList))}
	for _, t := range toolList {
		name := t.Name()
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("tools: duplicate tool name %q", name)
		}
		r.order = append(r.order, name)
		r.byName[name] = t
	}
	return r, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Infos returns the Eino tool metadata for every registered tool, in
// registration order, for binding to a tool-calling chat model.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.byName[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tools: info for %q: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Dispatch runs the named tool with the given JSON arguments and returns
// its formatted output. Like the tools themselves it never returns an
// error to the caller: an unknown tool name or a misbehaving tool is
// reported in the returned string.
func (r *Registry) Dispatch(ctx context.Context, name, argumentsInJSON string) string {
	t, ok := r.byName[name]
	if !ok {
		return fmt.Sprintf("Unknown tool %q. Available tools: %v", name, r.order)
	}

	out, err := t.InvokableRun(ctx, argumentsInJSON)
	if err != nil {
		// Tools are written to fold failures into their output, so this
		// is the backstop for a contract violation.
		return fmt.Sprintf("Tool %q failed: %v", name, err)
	}
	return out
}
