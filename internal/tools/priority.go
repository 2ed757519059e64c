package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// validPriorities is the closed set of priority levels the order service
// understands, in the order they are presented to users.
var validPriorities = []string{"high", "medium", "low", "critical"}

// PriorityTool is an Eino tool that fetches all orders at a given
// priority level from the order service.
type PriorityTool struct {
	// service performs the order lookups.
	service OrderService
}

// priorityInput is the JSON-serialisable input schema for PriorityTool.
type priorityInput struct {
	// Priority is the requested priority level.
	Priority string `json:"priority"`
}

// NewPriorityTool constructs a PriorityTool over the given order service.
func NewPriorityTool(service OrderService) *PriorityTool {
	return &PriorityTool{service: service}
}

// Name returns the tool name registered with the agent.
func (t *PriorityTool) Name() string { return "get_orders_by_priority" }

// Description returns the LLM-facing description of this tool.
func (t *PriorityTool) Description() string {
	return "Fetches all orders with a given priority level. " +
		"Valid priorities are: high, medium, low, critical. " +
		"Use this when the customer asks about orders by urgency " +
		"rather than by customer ID."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *PriorityTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"priority": {
				Type:     schema.String,
				Desc:     "Priority level: 'high', 'medium', 'low', or 'critical'.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun fetches the orders. All failures are reported in the
// returned string; the error result is always nil.
func (t *PriorityTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input priorityInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return fmt.Sprintf("Invalid priority arguments: %v", err), nil
	}

	priority := strings.ToLower(strings.TrimSpace(input.Priority))
	if !isValidPriority(priority) {
		return fmt.Sprintf("Invalid priority %q. Please use one of: %s.",
			input.Priority, strings.Join(validPriorities, ", ")), nil
	}

	result := t.service.OrdersByPriority(ctx, priority)
	if result.Failed() {
		return result.Err, nil
	}
	if len(result.Orders) == 0 {
		return fmt.Sprintf("No orders found with priority: %s", priority), nil
	}

	return formatOrders(fmt.Sprintf("Found %d orders with priority %q:", len(result.Orders), priority), result.Orders), nil
}

// isValidPriority reports whether p is in the closed priority set.
// p must already be lowercased.
func isValidPriority(p string) bool {
	for _, v := range validPriorities {
		if p == v {
			return true
		}
	}
	return false
}
