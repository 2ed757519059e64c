// Package tools defines the AssistantTool interface and the tool
// implementations the agent can invoke during a conversation: semantic
// product search and order lookups. Each tool satisfies both this package's
// interface and Eino's tool.InvokableTool interface so they can be passed
// directly to a tool-calling chat model.
//
// Tools never return Go errors from InvokableRun. Every failure — bad
// arguments, a degraded order service, an empty index — is folded into the
// returned string so the model can relay it conversationally instead of
// killing the turn.
package tools

import (
	"context"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/catalog"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/orders"
)

// AssistantTool is the interface all assistant tools must satisfy.
// It extends the basic Eino tool contract with Name and Description
// accessors so the registry can route and log tool calls by name
// without type assertions.
type AssistantTool interface {
	// Name returns the unique tool name registered with the agent.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// This text is sent to the LLM as part of the tool schema.
	Description() string
}

// ProductSearcher is the interface for semantic catalog search.
// Abstracting this allows tests to inject canned results without an
// embedder or vector store.
type ProductSearcher interface {
	// Search returns up to topK products ranked by relevance to query.
	Search(ctx context.Context, query string, topK int) ([]catalog.Match, error)
}

// OrderService is the interface for order lookups. Both methods follow the
// degraded-error contract of the orders package: failures arrive inside
// the Result, never as a Go error.
type OrderService interface {
	// OrdersByCustomer fetches all orders for the given customer ID.
	OrdersByCustomer(ctx context.Context, customerID int) orders.Result

	// OrdersByPriority fetches all orders with the given priority level.
	OrdersByPriority(ctx context.Context, priority string) orders.Result
}
