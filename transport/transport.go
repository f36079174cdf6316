package transport

import (
	"context"
)

// Message is a single encoded frame exchanged with the moderation API.
type Message []byte

func (msg Message) String() string {
	return string(msg)
}

const (
	CloseNormal   uint16 = 1000
	CloseAbnormal uint16 = 1006
)

// Credentials identify this game server to the moderation API.
type Credentials struct {
	Identity string
	APIKey   string
}

// SessionHandler receives the lifecycle events of one session. Callbacks may
// arrive on any goroutine. OnClosed is reported exactly once per session,
// including when the connect attempt itself fails.
type SessionHandler interface {
	OnConnected()
	OnClosed(code uint16, reason string)
	OnError(msg string, err error)
	OnMessage(ctx context.Context, msg Message)
}

// Session is one connection attempt and, once connected, the live connection.
type Session interface {
	ID() string
	// Start begins connecting in the background and returns immediately.
	Start() error
	Send(ctx context.Context, msg Message) error
	Close() error
	Alive() bool
}

type ClientTransport interface {
	Open(creds Credentials, handler SessionHandler) (Session, error)
}
