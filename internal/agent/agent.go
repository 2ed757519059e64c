// Package agent implements the conversational assistant core: a single-tool
// orchestration loop over a tool-calling chat model. Each customer utterance
// runs one model consultation, at most one tool invocation, and one bounded
// follow-up consultation to phrase the tool result conversationally.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/budget"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/logging"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/store"
	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/tools"
)

// SystemPrompt seeds every conversation. It is the first transcript entry
// and survives resets.
const SystemPrompt = `You are an expert e-commerce customer service assistant.
Your goal is to help customers with their e-commerce related questions.

Instructions:
1. Carefully analyze the customer's query and the conversation history.
2. If the query is about products, use the search_products tool to find relevant products.
3. If the query is about order status or details:
   - For a specific customer's orders, use the get_order tool with the customer ID and report all order information.
   - For orders by priority level, use the get_orders_by_priority tool.
4. If no products are found or the results are not satisfactory, suggest alternative search terms or ask for more specific information.
5. For non-product queries, provide helpful and accurate information.
6. Always maintain a professional and friendly tone.
7. Use the conversation history to refer back to earlier questions and products, keep context about preferences, and avoid repeating information.

Guidelines:
- Be clear and concise in your responses.
- If you don't know something, be honest about it.
- Suggest relevant alternatives when appropriate.
- Keep the conversation focused on e-commerce topics.
- When showing order information, present it in a clear and organized way.
- If the customer's query is unclear, ask for more details.
- For priority-based queries, the valid priority levels are: high, medium, low, critical.`

// historyReloadLimit caps how many persisted messages are replayed into the
// transcript when a session is resumed.
const historyReloadLimit = 20

// Config holds the dependencies for constructing an Assistant.
type Config struct {
	// Model is the tool-calling chat model. Required.
	Model model.ToolCallingChatModel

	// Registry supplies the assistant's tools. Required.
	Registry *tools.Registry

	// History optionally persists user/assistant turns across restarts.
	History store.ConversationStore

	// SessionID keys persisted history. Required when History is set.
	SessionID string

	// MaxContextTokens bounds the model input window.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int

	// SystemPrompt overrides the default system prompt when non-empty.
	SystemPrompt string
}

// Assistant is a per-session conversational agent. The transcript is
// append-only while a session lives; Reset re-seeds it. All methods are
// safe for concurrent use, with at most one turn in flight at a time.
type Assistant struct {
	mu sync.Mutex

	// chatModel is the tool-calling model, already bound to the registry's tools.
	chatModel model.ToolCallingChatModel

	// registry dispatches tool calls requested by the model.
	registry *tools.Registry

	// transcript is the full ordered conversation, system turn first.
	transcript []*schema.Message

	// history persists user/assistant turns when non-nil.
	history store.ConversationStore

	// sessionID keys the persisted history.
	sessionID string

	// maxTokens bounds the model input window.
	maxTokens int

	// systemPrompt is the resolved system turn content.
	systemPrompt string
}

// New constructs an Assistant, binds the registry's tools to the model, and
// seeds the transcript with the system turn. When a history store is
// configured, the session's recent turns are replayed into the transcript.
func New(ctx context.Context, cfg *Config) (*Assistant, error) {
	if cfg == nil || cfg.Model == nil {
		return nil, fmt.Errorf("agent: model must not be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent: registry must not be nil")
	}
	if cfg.History != nil && cfg.SessionID == "" {
		return nil, fmt.Errorf("agent: session ID is required when history is enabled")
	}

	infos, err := cfg.Registry.Infos(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent: collect tool infos: %w", err)
	}
	bound, err := cfg.Model.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("agent: bind tools: %w", err)
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = SystemPrompt
	}
	maxTokens := cfg.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxContextTokens
	}

	a := &Assistant{
		chatModel:    bound,
		registry:     cfg.Registry,
		transcript:   []*schema.Message{schema.SystemMessage(prompt)},
		history:      cfg.History,
		sessionID:    cfg.SessionID,
		maxTokens:    maxTokens,
		systemPrompt: prompt,
	}

	if a.history != nil {
		past, err := a.history.Recent(ctx, a.sessionID, historyReloadLimit)
		if err != nil {
			return nil, fmt.Errorf("agent: reload session %s: %w", a.sessionID, err)
		}
		for _, m := range past {
			switch m.Role {
			case store.RoleUser:
				a.transcript = append(a.transcript, schema.UserMessage(m.Content))
			case store.RoleAssistant:
				a.transcript = append(a.transcript, schema.AssistantMessage(m.Content, nil))
			}
		}
	}

	return a, nil
}

// Process handles one customer utterance and returns the assistant's reply.
// It never returns an error: any failure produces an apologetic reply that
// is also recorded in the transcript, so the session stays usable.
func (a *Assistant) Process(ctx context.Context, utterance string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	log := logging.FromContext(ctx)

	a.transcript = append(a.transcript, schema.UserMessage(utterance))
	a.persist(ctx, log, store.RoleUser, utterance)

	reply := a.converse(ctx, log)

	a.transcript = append(a.transcript, schema.AssistantMessage(reply, nil))
	a.persist(ctx, log, store.RoleAssistant, reply)
	return reply
}

// converse runs the single-tool consultation loop for the utterance already
// appended to the transcript. Exactly one tool may run per utterance, and
// exactly one follow-up consultation phrases its result; if the follow-up
// fails or asks for more tools, the tool's formatted output is returned
// verbatim.
func (a *Assistant) converse(ctx context.Context, log *slog.Logger) string {
	resp, err := a.chatModel.Generate(ctx, a.window(1))
	if err != nil {
		log.Error("agent: model consultation failed", slog.String("error", err.Error()))
		return apology(err)
	}

	if len(resp.ToolCalls) == 0 {
		return resp.Content
	}

	// One tool per utterance: execute the first requested call, drop the rest.
	call := resp.ToolCalls[0]
	if len(resp.ToolCalls) > 1 {
		log.Warn("agent: model requested multiple tools, executing first only",
			slog.String("tool", call.Function.Name),
			slog.Int("requested", len(resp.ToolCalls)),
		)
	}

	log.Info("agent: invoking tool", slog.String("tool", call.Function.Name))
	output := a.registry.Dispatch(ctx, call.Function.Name, call.Function.Arguments)

	a.transcript = append(a.transcript,
		schema.AssistantMessage(resp.Content, []schema.ToolCall{call}),
		schema.ToolMessage(output, call.ID, schema.WithToolName(call.Function.Name)),
	)

	followUp, err := a.chatModel.Generate(ctx, a.window(3))
	if err != nil {
		log.Warn("agent: follow-up consultation failed, returning tool output",
			slog.String("error", err.Error()))
		return output
	}
	if len(followUp.ToolCalls) > 0 {
		log.Warn("agent: follow-up requested another tool, returning tool output",
			slog.String("tool", followUp.ToolCalls[0].Function.Name))
		return output
	}
	return followUp.Content
}

// window assembles the model input from the transcript: the system turn and
// the last fixedTail messages are always kept, older turns are trimmed
// oldest-first to fit the token budget.
func (a *Assistant) window(fixedTail int) []*schema.Message {
	if len(a.transcript) <= 1+fixedTail {
		return a.transcript
	}

	system := a.transcript[0]
	tail := a.transcript[len(a.transcript)-fixedTail:]
	middle := a.transcript[1 : len(a.transcript)-fixedTail]

	fixed := append([]*schema.Message{system}, tail...)
	trimmed := budget.TrimHistory(fixed, middle, a.maxTokens)

	// Trimming can orphan a tool response from its requesting turn;
	// a leading tool message without its assistant call confuses providers.
	for len(trimmed) > 0 && trimmed[0].Role == schema.Tool {
		trimmed = trimmed[1:]
	}

	msgs := make([]*schema.Message, 0, 1+len(trimmed)+fixedTail)
	msgs = append(msgs, system)
	msgs = append(msgs, trimmed...)
	msgs = append(msgs, tail...)
	return msgs
}

// persist writes a turn to the history store when one is configured.
// Persistence failures are logged, never surfaced: losing history must not
// break the conversation.
func (a *Assistant) persist(ctx context.Context, log *slog.Logger, role store.Role, content string) {
	if a.history == nil {
		return
	}
	if err := a.history.Append(ctx, a.sessionID, role, content); err != nil {
		log.Warn("agent: could not persist turn",
			slog.String("session", a.sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// Reset re-seeds the transcript to exactly the system turn and clears any
// persisted history for the session. It is idempotent and does not touch
// the catalog index.
func (a *Assistant) Reset(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.transcript = []*schema.Message{schema.SystemMessage(a.systemPrompt)}

	if a.history != nil {
		if err := a.history.Clear(ctx, a.sessionID); err != nil {
			logging.FromContext(ctx).Warn("agent: could not clear persisted session",
				slog.String("session", a.sessionID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Transcript returns a copy of the conversation so far, system turn first.
func (a *Assistant) Transcript() []*schema.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*schema.Message, len(a.transcript))
	copy(out, a.transcript)
	return out
}

// apology formats the degraded reply used when the model cannot be consulted.
func apology(err error) string {
	return fmt.Sprintf("sorry, there was an error processing your query: %v", err)
}
