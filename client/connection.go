package client

import (
	"context"
	"time"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
	"github.com/ThinkInAIXYZ/ba-agent/transport"
)

// RestoreState reconciles the session with the run conditions. It connects
// when the conditions hold and there is no session, unless the last attempt
// is younger than the cooldown, and closes the session when they no longer
// hold. Calling it redundantly is safe.
func (client *Client) RestoreState() {
	creds, ok := client.env.RunConditions()

	client.mu.Lock()
	switch {
	case ok && client.session == nil:
		if !client.lastAttempt.IsZero() && client.now().Sub(client.lastAttempt) < client.cooldown {
			client.mu.Unlock()
			client.logger.Debugf("last connection attempt less than %s ago, not trying to restore state", client.cooldown)
			return
		}
		client.logger.Infof("API connecting...")
		session := client.connectLocked(creds)
		client.mu.Unlock()
		client.start(session)

	case !ok && client.session != nil:
		session := client.requestCloseLocked()
		client.mu.Unlock()
		if session != nil {
			client.logger.Infof("API stopping...")
			client.close(session)
		}

	default:
		client.mu.Unlock()
	}
}

// Connect opens a new session unless one is already alive.
func (client *Client) Connect() {
	creds, ok := client.env.RunConditions()
	if !ok {
		client.logger.Warnf("run conditions not met, not connecting")
		return
	}

	client.mu.Lock()
	session := client.connectLocked(creds)
	client.mu.Unlock()

	client.start(session)
}

func (client *Client) connectLocked(creds transport.Credentials) transport.Session {
	if client.session != nil && client.session.Alive() {
		client.logger.Infof("API already connected, aborting connect")
		return nil
	}
	if client.session != nil {
		client.logger.Infof("API connect already in progress, aborting connect")
		return nil
	}

	client.lastAttempt = client.now()
	client.logger.Debugf("starting session as %s", creds.Identity)

	handler := &sessionHandler{client: client}
	session, err := client.transport.Open(creds, handler)
	if err != nil {
		client.logger.Errorf("API error: open session: %v", err)
		return nil
	}
	handler.session = session

	client.session = session
	client.closeRequested = false
	client.connectedAt = time.Time{}
	return session
}

func (client *Client) start(session transport.Session) {
	if session == nil {
		return
	}
	if err := session.Start(); err != nil {
		client.logger.Errorf("API error: start session: %v", err)
	}
}

// Close asks the transport to tear the session down. The session slot is
// cleared by the closed callback, not here.
func (client *Client) Close() {
	client.mu.Lock()
	session := client.requestCloseLocked()
	client.mu.Unlock()

	client.close(session)
}

func (client *Client) requestCloseLocked() transport.Session {
	if client.session == nil || client.closeRequested {
		return nil
	}
	client.closeRequested = true
	return client.session
}

func (client *Client) close(session transport.Session) {
	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		client.logger.Errorf("API error: close session: %v", err)
	}
}

// ResetCooldown forgets the last connect attempt.
func (client *Client) ResetCooldown() {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.lastAttempt = time.Time{}
}

// sessionHandler ties transport callbacks to the session they were
// registered for, so late callbacks of a replaced session are ignored.
type sessionHandler struct {
	client  *Client
	session transport.Session
}

func (h *sessionHandler) current() bool {
	h.client.mu.Lock()
	defer h.client.mu.Unlock()
	return h.client.session == h.session
}

func (h *sessionHandler) OnConnected() {
	defer pkg.Recover()

	// The client counts as alive only once connectedAt is set, and that
	// happens under flushMu: direct sends queue up behind push_config and
	// the buffered calls.
	client := h.client
	client.flushMu.Lock()
	defer client.flushMu.Unlock()

	client.mu.Lock()
	if client.session != h.session {
		client.mu.Unlock()
		client.logger.Debugf("ignoring connect of replaced session %s", h.session.ID())
		return
	}
	client.lastAttempt = time.Time{}
	client.connectedAt = client.now()
	client.mu.Unlock()

	client.logger.Infof("Connected to API")

	ctx := context.Background()
	client.PushConfig(ctx)
	client.flushLocked(ctx)
}

func (h *sessionHandler) OnClosed(code uint16, reason string) {
	defer pkg.Recover()

	client := h.client
	client.mu.Lock()
	if client.session != h.session {
		client.mu.Unlock()
		client.logger.Debugf("ignoring close of replaced session %s", h.session.ID())
		return
	}
	client.session = nil
	client.closeRequested = false
	client.connectedAt = time.Time{}
	client.mu.Unlock()

	client.logger.Infof("Connection to API closed: %d (%s)", code, reason)
	if _, ok := client.env.RunConditions(); ok {
		client.logger.Infof("Trying to reconnect in %s", client.cooldown)
	}
}

func (h *sessionHandler) OnError(msg string, err error) {
	h.client.logger.Errorf("API error: %s, cause: %v", msg, err)
}

func (h *sessionHandler) OnMessage(ctx context.Context, msg transport.Message) {
	defer pkg.Recover()

	if !h.current() {
		return
	}
	h.client.receive(ctx, msg)
}
