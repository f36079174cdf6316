package agency

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const kickLogTimeLayout = "02/01/2006 15:04:05"

// kickLog appends enforced kicks to a file, one line per kick.
type kickLog struct {
	mu sync.Mutex
}

func (l *kickLog) Write(path, serverIP string, serverPort int, reason string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create kick log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open kick log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] [%s:%d] %s\n", at.UTC().Format(kickLogTimeLayout), serverIP, serverPort, reason)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write kick log: %w", err)
	}
	return nil
}
