// Package startup collects non-fatal messages logged while the service is
// initializing (bad alias entries, unknown weight names, unresolvable author
// aliases, ...). The frontend polls them once after startup, so they are kept
// in memory and also mirrored to the structured log.
package startup

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Severity levels for startup messages.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Messages accumulates startup messages by severity.
type Messages struct {
	mu   sync.Mutex
	log  *zap.Logger
	msgs map[string][]string
}

// New returns an empty message collector. The logger may be nil.
func New(log *zap.Logger) *Messages {
	if log == nil {
		log = zap.NewNop()
	}
	return &Messages{
		log: log,
		msgs: map[string][]string{
			LevelInfo:    {},
			LevelWarning: {},
			LevelError:   {},
		},
	}
}

// Info records an informational startup message.
func (m *Messages) Info(format string, args ...any) { m.add(LevelInfo, format, args...) }

// Warning records a non-fatal problem found during startup.
func (m *Messages) Warning(format string, args ...any) { m.add(LevelWarning, format, args...) }

// Error records a startup failure. The service keeps running so the message
// can be reported, but the affected feature is disabled.
func (m *Messages) Error(format string, args ...any) { m.add(LevelError, format, args...) }

func (m *Messages) add(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	m.mu.Lock()
	m.msgs[level] = append(m.msgs[level], msg)
	m.mu.Unlock()

	switch level {
	case LevelWarning:
		m.log.Warn(msg)
	case LevelError:
		m.log.Error(msg)
	default:
		m.log.Info(msg)
	}
}

// Snapshot returns a copy of all messages, keyed by severity. Every severity
// key is always present so the JSON shape is stable.
func (m *Messages) Snapshot() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.msgs))
	for level, msgs := range m.msgs {
		out[level] = append([]string{}, msgs...)
	}
	return out
}
