package client

import (
	"sync"

	"github.com/ThinkInAIXYZ/ba-agent/protocol"
)

// DefaultBufferSize is how many calls are kept while the session is down.
const DefaultBufferSize = 9

// OutboundBuffer is a bounded FIFO of calls generated while disconnected.
// When full, the oldest call is evicted to make room.
type OutboundBuffer struct {
	mu       sync.Mutex
	items    []*protocol.Call
	capacity int
}

func NewOutboundBuffer(capacity int) *OutboundBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &OutboundBuffer{
		items:    make([]*protocol.Call, 0, capacity),
		capacity: capacity,
	}
}

// Push appends call and returns how many old calls were evicted.
func (b *OutboundBuffer) Push(call *protocol.Call) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	evicted := 0
	for len(b.items) >= b.capacity {
		b.items[0] = nil
		b.items = b.items[1:]
		evicted++
	}
	b.items = append(b.items, call)
	return evicted
}

// Unshift puts call back at the head, for a call that was popped but could
// not be delivered. It reports false if the buffer is full, in which case
// call is the oldest and is the one dropped.
func (b *OutboundBuffer) Unshift(call *protocol.Call) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) >= b.capacity {
		return false
	}
	b.items = append([]*protocol.Call{call}, b.items...)
	return true
}

func (b *OutboundBuffer) Pop() (*protocol.Call, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil, false
	}
	call := b.items[0]
	b.items[0] = nil
	b.items = b.items[1:]
	return call, true
}

func (b *OutboundBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *OutboundBuffer) Cap() int {
	return b.capacity
}

// Snapshot returns the buffered calls, oldest first.
func (b *OutboundBuffer) Snapshot() []*protocol.Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*protocol.Call(nil), b.items...)
}
