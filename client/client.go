package client

import (
	"context"
	"sync"
	"time"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
	"github.com/ThinkInAIXYZ/ba-agent/protocol"
	"github.com/ThinkInAIXYZ/ba-agent/transport"
)

// DefaultReconnectCooldown suppresses a new connect attempt this soon after the previous one.
const DefaultReconnectCooldown = time.Second * 30

// Environment is what the client reads from the rest of the agent: whether it
// should be connected at all, with which credentials, and the enforcement
// settings to push on connect.
type Environment interface {
	RunConditions() (transport.Credentials, bool)
	Settings() protocol.Settings
}

// DirectiveHandler receives the directives sent by the moderation API.
type DirectiveHandler interface {
	HandleKick(ctx context.Context, directive *protocol.KickDirective)
	HandlePluginLog(ctx context.Context, message string)
}

type Option func(*Client)

func WithLogger(logger pkg.Logger) Option {
	return func(c *Client) {
		c.logger = pkg.Component(logger, "connection")
	}
}

func WithReconnectCooldown(cooldown time.Duration) Option {
	return func(c *Client) {
		c.cooldown = cooldown
	}
}

func WithBufferSize(size int) Option {
	return func(c *Client) {
		c.buffer = NewOutboundBuffer(size)
	}
}

func WithDirectiveHandler(handler DirectiveHandler) Option {
	return func(c *Client) {
		c.directives = handler
	}
}

// Client keeps at most one session to the moderation API alive and buffers
// outbound calls while there is none.
type Client struct {
	transport  transport.ClientTransport
	env        Environment
	directives DirectiveHandler

	// mu guards the session slot and the attempt timestamp, so the
	// presence check and the cooldown check in RestoreState are atomic.
	mu             sync.Mutex
	session        transport.Session
	closeRequested bool
	lastAttempt    time.Time
	connectedAt    time.Time

	// flushMu orders direct sends against draining the buffer.
	flushMu  sync.Mutex
	buffer   *OutboundBuffer
	cooldown time.Duration

	now    func() time.Time
	logger pkg.Logger
}

func NewClient(t transport.ClientTransport, env Environment, opts ...Option) *Client {
	client := &Client{
		transport: t,
		env:       env,
		buffer:    NewOutboundBuffer(DefaultBufferSize),
		cooldown:  DefaultReconnectCooldown,
		now:       time.Now,
		logger:    pkg.Component(pkg.DefaultLogger, "connection"),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.directives == nil {
		client.directives = &logDirectiveHandler{logger: client.logger}
	}
	return client
}

// IsAlive reports whether the transport considers the session connected and
// its connect callback has run.
func (client *Client) IsAlive() bool {
	s := client.currentSession()
	if s == nil || !s.Alive() {
		return false
	}
	return !client.ConnectedAt().IsZero()
}

// ConnectedAt returns when the current session connected, zero if it has not.
func (client *Client) ConnectedAt() time.Time {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.connectedAt
}

// Buffered returns the calls waiting for a session, oldest first.
func (client *Client) Buffered() []*protocol.Call {
	return client.buffer.Snapshot()
}

// Reconcile calls RestoreState every interval until ctx is done, so a quiet
// host still gets reconnected.
func (client *Client) Reconcile(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.RestoreState()
		}
	}
}

func (client *Client) currentSession() transport.Session {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.session
}

type logDirectiveHandler struct {
	logger pkg.Logger
}

func (h *logDirectiveHandler) HandleKick(_ context.Context, d *protocol.KickDirective) {
	h.logger.Warnf("no directive handler, dropping kick for %s", d.Name)
}

func (h *logDirectiveHandler) HandlePluginLog(_ context.Context, message string) {
	h.logger.Infof("%s", message)
}
