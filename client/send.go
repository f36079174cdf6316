package client

import (
	"context"
	"fmt"

	"github.com/ThinkInAIXYZ/ba-agent/pkg"
	"github.com/ThinkInAIXYZ/ba-agent/protocol"
)

// Send delivers call on the live session. Failures are logged and returned;
// the transport reports lasting trouble through its callbacks.
func (client *Client) Send(ctx context.Context, call *protocol.Call) error {
	session := client.currentSession()
	if session == nil || !session.Alive() {
		return fmt.Errorf("send %s: %w", call.Method, pkg.ErrSessionNotAlive)
	}

	frame, err := call.Encode()
	if err != nil {
		client.logger.Errorf("%v", err)
		return err
	}

	client.logger.Debugf("sending %s", call.Method)
	if err = session.Send(ctx, frame); err != nil {
		client.logger.Warnf("send %s: %v", call.Method, err)
		return fmt.Errorf("send %s: %w", call.Method, err)
	}
	return nil
}

// SendQueued sends call if the session is alive and nothing older is waiting,
// and buffers it otherwise.
func (client *Client) SendQueued(ctx context.Context, call *protocol.Call) {
	if client.IsAlive() && client.sendInOrder(ctx, call) {
		return
	}

	client.logger.Debugf("queuing message: %s", call.Method)
	if evicted := client.buffer.Push(call); evicted > 0 {
		client.logger.Debugf("outbound buffer full, evicted %d oldest message(s)", evicted)
	}

	// a session may have connected and flushed between the check and the push
	if client.IsAlive() {
		client.flush(ctx)
	}
}

// sendInOrder sends call directly unless buffered calls are still waiting for
// a flush, in which case it reports false and call must be queued behind them.
func (client *Client) sendInOrder(ctx context.Context, call *protocol.Call) bool {
	client.flushMu.Lock()
	defer client.flushMu.Unlock()

	if client.buffer.Len() > 0 {
		return false
	}
	return client.Send(ctx, call) == nil
}

// PushConfig sends the current enforcement settings if connected.
func (client *Client) PushConfig(ctx context.Context) {
	if !client.IsAlive() {
		return
	}
	if err := client.Send(ctx, protocol.NewPushConfig(client.env.Settings())); err != nil {
		client.logger.Warnf("push config: %v", err)
	}
}

// flush drains the buffer in enqueue order. A call that cannot be delivered
// goes back to the head and the rest wait for the next session.
func (client *Client) flush(ctx context.Context) {
	client.flushMu.Lock()
	defer client.flushMu.Unlock()

	client.flushLocked(ctx)
}

func (client *Client) flushLocked(ctx context.Context) {
	for {
		call, ok := client.buffer.Pop()
		if !ok {
			return
		}
		client.logger.Debugf("sending queued message: %s", call.Method)
		if err := client.Send(ctx, call); err != nil {
			if !client.buffer.Unshift(call) {
				client.logger.Warnf("dropping queued %s, outbound buffer is full", call.Method)
			}
			return
		}
	}
}
