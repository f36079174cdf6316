package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
)

// MockClientTransport hands out sessions that only change state when a test
// drives them through Connect, Deliver or Drop.
type MockClientTransport struct {
	mu       sync.Mutex
	sessions []*MockSession
	openErr  error

	// AutoConnect makes Start report OnConnected right away.
	AutoConnect bool
}

func NewMockClientTransport() *MockClientTransport {
	return &MockClientTransport{}
}

// FailOpen makes subsequent Open calls return err.
func (t *MockClientTransport) FailOpen(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

func (t *MockClientTransport) Open(creds Credentials, handler SessionHandler) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.openErr != nil {
		return nil, t.openErr
	}
	s := &MockSession{
		id:          uuid.NewString(),
		Creds:       creds,
		handler:     handler,
		autoConnect: t.AutoConnect,
		alive:       pkg.NewAtomicBool(),
	}
	t.sessions = append(t.sessions, s)
	return s, nil
}

// Sessions returns every session opened so far, oldest first.
func (t *MockClientTransport) Sessions() []*MockSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*MockSession(nil), t.sessions...)
}

func (t *MockClientTransport) Last() *MockSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sessions) == 0 {
		return nil
	}
	return t.sessions[len(t.sessions)-1]
}

type MockSession struct {
	id      string
	Creds   Credentials
	handler SessionHandler

	autoConnect bool

	mu         sync.Mutex
	sent       []Message
	started    bool
	closeCalls int
	closed     bool
	sendErr    error

	alive *pkg.AtomicBool
}

func (s *MockSession) ID() string {
	return s.id
}

func (s *MockSession) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.mu.Unlock()

	if s.autoConnect {
		s.Connect()
	}
	return nil
}

func (s *MockSession) Alive() bool {
	return s.alive.Load()
}

func (s *MockSession) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return pkg.ErrSessionClosed
	}
	if !s.alive.Load() {
		return pkg.ErrSessionNotAlive
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, append(Message(nil), msg...))
	return nil
}

// Close reports OnClosed synchronously, mimicking a transport that tears down immediately.
func (s *MockSession) Close() error {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()

	s.Drop(CloseNormal, "closed by client")
	return nil
}

// Connect flips the session alive and reports OnConnected.
func (s *MockSession) Connect() {
	s.alive.Store(true)
	s.handler.OnConnected()
}

// Deliver feeds an inbound frame to the handler.
func (s *MockSession) Deliver(frame string) {
	s.handler.OnMessage(context.Background(), Message(frame))
}

// Fail reports a transport error without closing.
func (s *MockSession) Fail(msg string, err error) {
	s.handler.OnError(msg, err)
}

// Drop ends the session from the transport side. Only the first call reports OnClosed.
func (s *MockSession) Drop(code uint16, reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.alive.Store(false)
	s.handler.OnClosed(code, reason)
}

func (s *MockSession) FailSends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

func (s *MockSession) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func (s *MockSession) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *MockSession) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
