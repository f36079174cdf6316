package enforcement

import (
	"context"
)

// run reasserts the ban every interval. A ban only blocks the next
// reconnect, so it has to be repeated until the player is seen leaving or
// the attempts run out.
func (c *Coordinator) run(ctx context.Context, e *entry, guid, reason string) {
	defer c.release(e)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if e.cancelled() {
			return
		}

		c.logger.Debugf("kicking '%s' (%s): attempt %d", e.target, guid, attempt)
		if err := c.banner.Ban(ctx, guid, c.banSeconds, reason); err != nil {
			c.logger.Warnf("ban '%s' (%s): %v", e.target, guid, err)
		}
		e.attempts.Store(int32(attempt))

		if attempt == c.maxAttempts {
			c.logger.Debugf("giving up on '%s' after %d attempts", e.target, attempt)
			return
		}

		select {
		case <-e.done:
			return
		case <-c.stop:
			return
		case <-c.after(c.interval):
		}
	}
}

// release drops the entry only if it still belongs to this task, a newer
// cycle for the same target keeps its own.
func (c *Coordinator) release(e *entry) {
	c.entries.RemoveCb(e.target, func(_ string, v *entry, exists bool) bool {
		return exists && v == e
	})
	e.cancel()
}
