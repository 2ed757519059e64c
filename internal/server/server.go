// Package server implements the HTTP server that exposes the shopping
// assistant via a JSON API. Conversations are keyed by sessionId; each
// session gets its own assistant the first time the id appears.
// The server is started by the `shopai serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dburckhardt/Ecommerce-Assistant-Challenge/internal/logging"
)

// defaultSessionID is the conversation used when a request omits sessionId.
const defaultSessionID = "default"

// New constructs a Server from the provided config. cfg.NewSession is
// required; everything else has a sensible default.
func New(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.NewSession == nil {
		return nil, fmt.Errorf("server: NewSession factory must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// A turn is at most two model calls plus one tool call.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:      cfg,
		log:      cfg.Logger,
		sessions: newSessionPool(cfg.NewSession),
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.Registry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not set — authentication disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	// Protected routes get the full chain: logging, rate limit, auth, metrics.
	// Probe routes skip rate limiting and auth so orchestrators can always poll.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return requestLogger(s.log,
			rl.middleware(
				authMiddleware(cfg.APIKey,
					s.instrument(name, h))))
	}
	probe := func(name string, h http.HandlerFunc) http.Handler {
		return requestLogger(s.log, s.instrument(name, h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", protected("chat", s.handleChat))
	mux.Handle("POST /api/reset", protected("reset", s.handleReset))
	mux.Handle("GET /api/health", probe("health", s.handleHealth))
	mux.Handle("GET /api/ready", probe("ready", s.handleReady))
	mux.Handle("GET /metrics", requestLogger(s.log,
		promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		fmt.Printf("shopai server listening on http://%s\n", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat. One request is one conversational turn:
// the session's assistant processes the message and the reply comes back as
// JSON. The assistant never surfaces errors — model and tool failures arrive
// as apologetic reply text with HTTP 200.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.chatRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		s.metrics.chatRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	sess, err := s.sessions.get(r.Context(), req.SessionID)
	if err != nil {
		log.Error("session init failed",
			slog.String("session", req.SessionID),
			slog.Any("error", err),
		)
		s.metrics.chatRequestsTotal.WithLabelValues(outcomeError).Inc()
		http.Error(w, "failed to initialize session", http.StatusInternalServerError)
		return
	}
	s.metrics.chatActiveSessions.Set(float64(s.sessions.size()))

	s.metrics.chatInFlight.Inc()
	start := time.Now()
	reply := sess.Process(r.Context(), req.Message)
	elapsed := time.Since(start)
	s.metrics.chatInFlight.Dec()

	s.metrics.chatRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcomeOK).Observe(elapsed.Seconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chatResponse{SessionID: req.SessionID, Reply: reply}); err != nil {
		log.Error("chat encode error", slog.Any("error", err))
	}
}

// handleReset handles POST /api/reset. Resetting a session that does not
// exist yet is a no-op; either way the session ends up holding exactly the
// system instructions, so the response is always 204.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	if sess, ok := s.sessions.lookup(req.SessionID); ok {
		sess.Reset(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
