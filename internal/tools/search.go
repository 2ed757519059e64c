package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// searchTopK is how many products the search tool returns to the model.
const searchTopK = 5

// SearchTool is an Eino tool that runs semantic queries against the indexed
// product catalog and formats the top matches for the model.
type SearchTool struct {
	// searcher resolves queries to ranked catalog products.
	searcher ProductSearcher
}

// searchInput is the JSON-serialisable input schema for SearchTool.
type searchInput struct {
	// Query is the shopper's natural-language product request.
	Query string `json:"query"`
}

// NewSearchTool constructs a SearchTool over the given searcher.
func NewSearchTool(searcher ProductSearcher) *SearchTool {
	return &SearchTool{searcher: searcher}
}

// Name returns the tool name registered with the agent.
func (t *SearchTool) Name() string { return "search_products" }

// Description returns the LLM-facing description of this tool.
func (t *SearchTool) Description() string {
	return "Searches the product catalog by meaning, not just keywords. " +
		"Use this whenever the customer asks for product recommendations, " +
		"availability, or anything about what the store sells. " +
		"Pass the customer's request as the query."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *SearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Natural-language description of the products the customer wants.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun executes the search. All failures are reported in the
// returned string; the error result is always nil.
func (t *SearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input searchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return fmt.Sprintf("Invalid search arguments: %v", err), nil
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return "Please provide a search query describing the products you are looking for.", nil
	}

	matches, err := t.searcher.Search(ctx, query, searchTopK)
	if err != nil {
		return fmt.Sprintf("Product search failed: %v", err), nil
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No matching products found for: %q", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d products for %q:\n", len(matches), query)
	for i, m := range matches {
		p := m.Product
		rating := "no rating"
		if p.HasRating {
			rating = fmt.Sprintf("%.1f stars", p.Rating)
		}
		price := "price unavailable"
		if p.Price > 0 {
			price = fmt.Sprintf("$%.2f", p.Price)
		}
		fmt.Fprintf(&b, "%d. %s (%s) — %s, %s, relevance %.2f\n",
			i+1, p.Title, p.Category, price, rating, m.Score)
	}
	return b.String(), nil
}
