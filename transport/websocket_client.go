package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
	"github.com/ThinkInAIXYZ/ba-agent/protocol"
)

type WebsocketClientTransportOption func(*websocketClientTransport)

func WithWebsocketClientOptionLogger(log pkg.Logger) WebsocketClientTransportOption {
	return func(t *websocketClientTransport) {
		t.logger = log
	}
}

func WithWebsocketClientOptionOrigin(origin string) WebsocketClientTransportOption {
	return func(t *websocketClientTransport) {
		t.origin = origin
	}
}

func WithWebsocketClientOptionDialTimeout(timeout time.Duration) WebsocketClientTransportOption {
	return func(t *websocketClientTransport) {
		t.dialTimeout = timeout
	}
}

type websocketClientTransport struct {
	endpointTemplate string
	origin           string
	dialTimeout      time.Duration

	logger pkg.Logger
}

// NewWebsocketClientTransport dials endpointTemplate expanded with the server
// identity, see protocol.ExpandEndpoint.
func NewWebsocketClientTransport(endpointTemplate string, opts ...WebsocketClientTransportOption) ClientTransport {
	t := &websocketClientTransport{
		endpointTemplate: endpointTemplate,
		origin:           "http://localhost/",
		dialTimeout:      time.Second * 10,
		logger:           pkg.DefaultLogger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *websocketClientTransport) Open(creds Credentials, handler SessionHandler) (Session, error) {
	endpoint, err := protocol.ExpandEndpoint(t.endpointTemplate, creds.Identity)
	if err != nil {
		return nil, err
	}

	config, err := websocket.NewConfig(endpoint, t.origin)
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket config: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(creds.Identity + ":" + creds.APIKey))
	config.Header.Set("Authorization", "Basic "+auth)
	config.Dialer = &net.Dialer{Timeout: t.dialTimeout}

	ctx, cancel := context.WithCancel(context.Background())
	return &websocketSession{
		id:      uuid.NewString(),
		config:  config,
		handler: handler,
		logger:  t.logger,
		ctx:     ctx,
		cancel:  cancel,
		started: pkg.NewAtomicBool(),
		alive:   pkg.NewAtomicBool(),
		closing: pkg.NewAtomicBool(),
	}, nil
}

type websocketSession struct {
	id      string
	config  *websocket.Config
	handler SessionHandler
	logger  pkg.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *websocket.Conn

	closedOnce sync.Once

	started *pkg.AtomicBool
	alive   *pkg.AtomicBool
	closing *pkg.AtomicBool
}

func (s *websocketSession) ID() string {
	return s.id
}

func (s *websocketSession) Alive() bool {
	return s.alive.Load()
}

func (s *websocketSession) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already started")
	}
	go func() {
		defer pkg.Recover()

		s.run()
	}()
	return nil
}

func (s *websocketSession) run() {
	conn, err := s.config.DialContext(s.ctx)
	if err != nil {
		if s.closing.Load() {
			s.reportClosed(CloseNormal, "closed by client")
			return
		}
		s.handler.OnError("connect failed", err)
		s.reportClosed(CloseAbnormal, err.Error())
		return
	}

	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		_ = conn.Close()
		s.reportClosed(CloseNormal, "closed by client")
		return
	}
	s.conn = conn
	s.alive.Store(true)
	s.mu.Unlock()

	s.handler.OnConnected()
	s.receive(conn)
}

func (s *websocketSession) receive(conn *websocket.Conn) {
	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			s.alive.Store(false)
			switch {
			case s.closing.Load():
				s.reportClosed(CloseNormal, "closed by client")
			case errors.Is(err, io.EOF):
				s.reportClosed(CloseNormal, "closed by server")
			default:
				s.handler.OnError("receive failed", err)
				s.reportClosed(CloseAbnormal, err.Error())
			}
			return
		}
		if len(frame) == 0 {
			s.logger.Debugf("skipping empty message")
			continue
		}
		s.handler.OnMessage(s.ctx, frame)
	}
}

func (s *websocketSession) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing.Load() {
		return pkg.ErrSessionClosed
	}
	if s.conn == nil || !s.alive.Load() {
		return pkg.ErrSessionNotAlive
	}
	if err := websocket.Message.Send(s.conn, string(msg)); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

// Close asks the connection to shut down. OnClosed follows from the receive
// goroutine once the connection is gone.
func (s *websocketSession) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()

	if !s.started.Load() {
		s.reportClosed(CloseNormal, "closed before start")
		return nil
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", err)
	}
	return nil
}

func (s *websocketSession) reportClosed(code uint16, reason string) {
	s.closedOnce.Do(func() {
		s.alive.Store(false)
		s.cancel()
		s.handler.OnClosed(code, reason)
	})
}
