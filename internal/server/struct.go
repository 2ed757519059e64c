package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must be long enough for a full model round-trip plus one tool call.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics and backs GET /metrics.
	// If nil, a private registry is created.
	Registry *prometheus.Registry
	// NewSession constructs the assistant for a session the first time its
	// sessionId appears in a request. *agent.Assistant satisfies Chatter.
	NewSession func(ctx context.Context, sessionID string) (Chatter, error)
}

// Chatter is the interface handleChat and handleReset call to drive a
// conversation. It mirrors the assistant's degraded-error contract: Process
// always returns a reply string, folding failures into apologetic text.
type Chatter interface {
	// Process runs one conversational turn and returns the assistant's reply.
	Process(ctx context.Context, utterance string) string
	// Reset clears the conversation back to just the system instructions.
	Reset(ctx context.Context)
}

// Server is the HTTP server that exposes the shopping assistant.
type Server struct {
	// cfg holds the resolved server configuration.
	cfg *Config
	// sessions maps sessionId to its live assistant, created on demand.
	sessions *sessionPool
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// sessionPool creates and caches one Chatter per sessionId.
type sessionPool struct {
	// mu protects the byID map.
	mu sync.Mutex
	// byID maps sessionId to its assistant.
	byID map[string]Chatter
	// newFn constructs the assistant for a previously unseen sessionId.
	newFn func(ctx context.Context, sessionID string) (Chatter, error)
}

func newSessionPool(newFn func(ctx context.Context, sessionID string) (Chatter, error)) *sessionPool {
	return &sessionPool{byID: make(map[string]Chatter), newFn: newFn}
}

// get returns the assistant for sessionID, constructing it on first use.
func (p *sessionPool) get(ctx context.Context, sessionID string) (Chatter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.byID[sessionID]; ok {
		return c, nil
	}
	c, err := p.newFn(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p.byID[sessionID] = c
	return c, nil
}

// lookup returns the assistant for sessionID without creating one.
func (p *sessionPool) lookup(sessionID string) (Chatter, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.byID[sessionID]
	return c, ok
}

// size returns the number of live sessions.
func (p *sessionPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// SessionID selects the conversation; "default" if empty.
	SessionID string `json:"sessionId"`
	// Message is the customer's natural language utterance.
	Message string `json:"message"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	// SessionID echoes the conversation the reply belongs to.
	SessionID string `json:"sessionId"`
	// Reply is the assistant's answer for this turn.
	Reply string `json:"reply"`
}

// resetRequest is the JSON body for POST /api/reset.
type resetRequest struct {
	// SessionID selects the conversation to reset; "default" if empty.
	SessionID string `json:"sessionId"`
}
