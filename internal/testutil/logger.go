package testutil

import (
	"fmt"
	"sync"
)

// RecordingLogger captures warnings for assertions
type RecordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

// Warnf records a formatted warning
func (l *RecordingLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the recorded warnings in order
func (l *RecordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.warnings...)
}
