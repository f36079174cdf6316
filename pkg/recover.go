package pkg

import (
	"runtime/debug"
)

// Recover logs a panic in a background goroutine instead of crashing the host process.
func Recover() {
	if r := recover(); r != nil {
		DefaultLogger.Errorf("panic: %v\n%s", r, debug.Stack())
	}
}

