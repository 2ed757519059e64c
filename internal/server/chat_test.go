package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Fake Chatter and server fixtures
// ---------------------------------------------------------------------------

// fakeChatter implements the Chatter interface for tests. It records every
// utterance it sees and returns a fixed reply.
type fakeChatter struct {
	mu sync.Mutex
	// reply is returned verbatim from every Process call.
	reply string
	// utterances accumulates the messages passed to Process.
	utterances []string
	// resets counts Reset calls.
	resets int
}

func (f *fakeChatter) Process(_ context.Context, utterance string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utterances = append(f.utterances, utterance)
	return f.reply
}

func (f *fakeChatter) Reset(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

// sessionFactory counts NewSession invocations and hands out fakeChatters,
// one per sessionId, so tests can assert on per-session state.
type sessionFactory struct {
	mu sync.Mutex
	// calls counts factory invocations.
	calls int
	// built maps sessionId to the fake handed out for it.
	built map[string]*fakeChatter
	// err, if set, makes every invocation fail.
	err error
}

func newSessionFactory() *sessionFactory {
	return &sessionFactory{built: make(map[string]*fakeChatter)}
}

func (f *sessionFactory) new(_ context.Context, sessionID string) (Chatter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeChatter{reply: "Here are some options for you."}
	f.built[sessionID] = c
	return c, nil
}

// newTestServer builds a fully wired *Server over a fresh Prometheus registry
// so tests never pollute the default registerer.
func newTestServer(t *testing.T, factory *sessionFactory) *Server {
	t.Helper()
	s, err := New(&Config{
		Logger:     slog.Default(),
		Registry:   prometheus.NewRegistry(),
		NewSession: factory.new,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// New — construction
// ---------------------------------------------------------------------------

func TestNew_RequiresSessionFactory(t *testing.T) {
	t.Parallel()

	if _, err := New(&Config{}); err == nil {
		t.Error("expected error when NewSession is nil")
	}
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat — validation error paths
// ---------------------------------------------------------------------------

func TestHandleChat_MissingMessage(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSessionFactory())
	w := postJSON(t, s, "/api/chat", `{"sessionId":"s1"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSessionFactory())
	w := postJSON(t, s, "/api/chat", `not-json`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat — happy path
// ---------------------------------------------------------------------------

func TestHandleChat_Success(t *testing.T) {
	t.Parallel()

	factory := newSessionFactory()
	s := newTestServer(t, factory)

	w := postJSON(t, s, "/api/chat", `{"sessionId":"s1","message":"recommend a lamp"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "s1" {
		t.Errorf("sessionId: expected %q, got %q", "s1", resp.SessionID)
	}
	if resp.Reply != "Here are some options for you." {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}

	fake := factory.built["s1"]
	if fake == nil {
		t.Fatal("session s1 was never created")
	}
	if len(fake.utterances) != 1 || fake.utterances[0] != "recommend a lamp" {
		t.Errorf("unexpected utterances: %v", fake.utterances)
	}
}

// TestHandleChat_DefaultSession verifies that requests without a sessionId
// all land in the "default" conversation.
func TestHandleChat_DefaultSession(t *testing.T) {
	t.Parallel()

	factory := newSessionFactory()
	s := newTestServer(t, factory)

	postJSON(t, s, "/api/chat", `{"message":"hi"}`)
	postJSON(t, s, "/api/chat", `{"message":"hi again"}`)

	if factory.calls != 1 {
		t.Errorf("expected 1 factory call, got %d", factory.calls)
	}
	fake := factory.built[defaultSessionID]
	if fake == nil {
		t.Fatal("default session was never created")
	}
	if len(fake.utterances) != 2 {
		t.Errorf("expected 2 turns in the default session, got %d", len(fake.utterances))
	}
}

// TestHandleChat_SessionIsolation verifies that distinct sessionIds get
// distinct assistants.
func TestHandleChat_SessionIsolation(t *testing.T) {
	t.Parallel()

	factory := newSessionFactory()
	s := newTestServer(t, factory)

	postJSON(t, s, "/api/chat", `{"sessionId":"a","message":"one"}`)
	postJSON(t, s, "/api/chat", `{"sessionId":"b","message":"two"}`)
	postJSON(t, s, "/api/chat", `{"sessionId":"a","message":"three"}`)

	if factory.calls != 2 {
		t.Errorf("expected 2 factory calls, got %d", factory.calls)
	}
	if got := len(factory.built["a"].utterances); got != 2 {
		t.Errorf("session a: expected 2 turns, got %d", got)
	}
	if got := len(factory.built["b"].utterances); got != 1 {
		t.Errorf("session b: expected 1 turn, got %d", got)
	}
}

func TestHandleChat_SessionInitFailure(t *testing.T) {
	t.Parallel()

	factory := newSessionFactory()
	factory.err = fmt.Errorf("model backend unreachable")
	s := newTestServer(t, factory)

	w := postJSON(t, s, "/api/chat", `{"sessionId":"s1","message":"hi"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/reset
// ---------------------------------------------------------------------------

func TestHandleReset_ExistingSession(t *testing.T) {
	t.Parallel()

	factory := newSessionFactory()
	s := newTestServer(t, factory)

	postJSON(t, s, "/api/chat", `{"sessionId":"s1","message":"hi"}`)
	w := postJSON(t, s, "/api/reset", `{"sessionId":"s1"}`)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if factory.built["s1"].resets != 1 {
		t.Errorf("expected 1 reset, got %d", factory.built["s1"].resets)
	}
}

// TestHandleReset_UnknownSession verifies that resetting a session that was
// never started is a quiet no-op, not an error.
func TestHandleReset_UnknownSession(t *testing.T) {
	t.Parallel()

	factory := newSessionFactory()
	s := newTestServer(t, factory)

	w := postJSON(t, s, "/api/reset", `{"sessionId":"ghost"}`)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if factory.calls != 0 {
		t.Errorf("reset must not create sessions, factory called %d times", factory.calls)
	}
}

func TestHandleReset_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSessionFactory())
	w := postJSON(t, s, "/api/reset", `{`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route protection
// ---------------------------------------------------------------------------

// TestRoutes_AuthAppliesToChatOnly verifies that /api/chat requires the token
// while /api/health stays open for orchestrator probes.
func TestRoutes_AuthAppliesToChatOnly(t *testing.T) {
	t.Parallel()

	s, err := New(&Config{
		Logger:     slog.Default(),
		Registry:   prometheus.NewRegistry(),
		APIKey:     "secret",
		NewSession: newSessionFactory().new,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	w := postJSON(t, s, "/api/chat", `{"message":"hi"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("/api/chat without token: expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	hw := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(hw, req)
	if hw.Code != http.StatusOK {
		t.Errorf("/api/health: expected 200 without token, got %d", hw.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hi"}`))
	req2.Header.Set("Authorization", "Bearer secret")
	w2 := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w2, req2)
	if w2.Code != http.StatusOK {
		t.Errorf("/api/chat with token: expected 200, got %d", w2.Code)
	}
}
