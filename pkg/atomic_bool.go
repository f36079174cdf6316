package pkg

import "sync/atomic"

type AtomicBool struct {
	b atomic.Bool
}

func NewAtomicBool() *AtomicBool {
	return &AtomicBool{}
}

func (b *AtomicBool) Store(value bool) {
	b.b.Store(value)
}

func (b *AtomicBool) Load() bool {
	return b.b.Load()
}

// CompareAndSwap reports whether the flag was flipped from old to new.
func (b *AtomicBool) CompareAndSwap(old, new bool) bool {
	return b.b.CompareAndSwap(old, new)
}
