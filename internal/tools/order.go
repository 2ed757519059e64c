package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// OrderTool is an Eino tool that fetches a customer's orders from the
// order service.
type OrderTool struct {
	// service performs the order lookups.
	service OrderService
}

// orderInput is the JSON-serialisable input schema for OrderTool.
// CustomerID stays raw so both JSON numbers and numeric strings coerce.
type orderInput struct {
	// CustomerID identifies the customer whose orders to fetch.
	CustomerID json.RawMessage `json:"customer_id"`
}

// NewOrderTool constructs an OrderTool over the given order service.
func NewOrderTool(service OrderService) *OrderTool {
	return &OrderTool{service: service}
}

// Name returns the tool name registered with the agent.
func (t *OrderTool) Name() string { return "get_order" }

// Description returns the LLM-facing description of this tool.
func (t *OrderTool) Description() string {
	return "Fetches all orders for a customer by their numeric customer ID. " +
		"Use this when the customer asks about their orders, order status, " +
		"or order history and has provided their customer ID."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *OrderTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"customer_id": {
				Type:     schema.Integer,
				Desc:     "The customer's numeric ID (e.g. 1001).",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun fetches the orders. All failures are reported in the
// returned string; the error result is always nil.
func (t *OrderTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input orderInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return fmt.Sprintf("Invalid order arguments: %v", err), nil
	}

	customerID, ok := coerceCustomerID(input.CustomerID)
	if !ok {
		return "Please provide a valid customer ID number", nil
	}

	result := t.service.OrdersByCustomer(ctx, customerID)
	if result.Failed() {
		return result.Err, nil
	}
	if len(result.Orders) == 0 {
		return fmt.Sprintf("No orders found for customer ID: %d", customerID), nil
	}

	return formatOrders(fmt.Sprintf("Found %d orders for customer ID %d:", len(result.Orders), customerID), result.Orders), nil
}

// coerceCustomerID accepts a JSON number or a numeric string and returns
// the integer customer ID. Models frequently quote numeric arguments.
func coerceCustomerID(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// formatOrders renders raw order objects one per line under a header.
func formatOrders(header string, rawOrders []json.RawMessage) string {
	var b strings.Builder
	b.WriteString(header)
	for _, o := range rawOrders {
		b.WriteString("\n- ")
		b.Write(compactJSON(o))
	}
	return b.String()
}

// compactJSON strips insignificant whitespace; malformed input passes
// through unchanged.
func compactJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
