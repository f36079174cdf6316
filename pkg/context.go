package pkg

import (
	"context"
	"time"
)

// CancelShieldContext keeps the values of the wrapped context but never
// reports cancellation or a deadline. Kick-retry tasks started from an
// inbound message keep running after the message handler returns.
type CancelShieldContext struct {
	context.Context
}

func ShieldCancel(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return CancelShieldContext{Context: ctx}
}

func (v CancelShieldContext) Deadline() (deadline time.Time, ok bool) {
	return
}

func (v CancelShieldContext) Done() <-chan struct{} {
	return nil
}

func (v CancelShieldContext) Err() error {
	return nil
}
