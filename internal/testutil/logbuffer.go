package testutil

import (
	"strings"
	"sync"
	"testing"
)

// LogBuffer collects log output and mirrors it to t.Log.
type LogBuffer struct {
	t  testing.TB
	mu sync.Mutex
	sb strings.Builder
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.t.Log(string(p))
	return b.sb.Write(p)
}

// String returns everything written so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// Contains reports whether the collected output contains s.
func (b *LogBuffer) Contains(s string) bool {
	return strings.Contains(b.String(), s)
}
