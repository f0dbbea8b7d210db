// Package clipboard copies codes to the system clipboard and clears them
// again after a delay, but only if nothing else was copied in between.
package clipboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxClipboardSize is the maximum size of data we'll copy to clipboard (for safety)
const MaxClipboardSize = 1024 * 1024 // 1MB

// Manager handles clipboard operations with auto-clear functionality
type Manager struct {
	mu         sync.Mutex
	backend    Backend
	logger     *logrus.Logger
	clearDelay time.Duration
	clearTimer *time.Timer
	pending    chan struct{}
	generation uint64
	lastCopy   string
}

// NewManager creates a clipboard manager. A zero clearDelay disables clearing.
func NewManager(backend Backend, clearDelay time.Duration, logger *logrus.Logger) *Manager {
	if backend == nil {
		backend = SystemBackend{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		backend:    backend,
		logger:     logger,
		clearDelay: clearDelay,
	}
}

// ClearDelay returns the auto-clear delay
func (m *Manager) ClearDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearDelay
}

// Copy copies text to the clipboard and schedules the clear
func (m *Manager) Copy(text string) error {
	if len(text) > MaxClipboardSize {
		return fmt.Errorf("clipboard content too large: %d bytes (max %d)", len(text), MaxClipboardSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Cancel any existing clear timer
	m.stopTimerLocked()

	if err := m.backend.Write(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}

	// Store the text we copied for verification during clear
	m.lastCopy = text

	if m.clearDelay > 0 {
		done := make(chan struct{})
		generation := m.generation
		m.pending = done
		m.clearTimer = time.AfterFunc(m.clearDelay, func() {
			defer close(done)
			if err := m.clearScheduled(generation); err != nil {
				// Background operation: warn and move on
				m.logger.WithError(err).Warn("failed to auto-clear clipboard")
			}
		})
	}
	return nil
}

// Pending reports whether an auto-clear is scheduled
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// WaitForClear blocks until the scheduled clear has run or ctx is done. It
// returns immediately when nothing is scheduled.
func (m *Manager) WaitForClear(ctx context.Context) error {
	m.mu.Lock()
	done := m.pending
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear immediately clears the clipboard if it still holds our last copy
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	return m.clearLocked()
}

// stopTimerLocked cancels a pending clear. Callers hold m.mu.
func (m *Manager) stopTimerLocked() {
	// A callback that already fired sees a newer generation and does nothing
	m.generation++
	if m.clearTimer != nil && m.clearTimer.Stop() {
		// The callback will never run, so release waiters here
		close(m.pending)
	}
	m.clearTimer = nil
	m.pending = nil
}

// clearScheduled runs from the timer
func (m *Manager) clearScheduled(generation uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if generation != m.generation {
		return nil
	}
	m.clearTimer = nil
	m.pending = nil
	return m.clearLocked()
}

// clearLocked clears the clipboard only if it still contains our last copied
// text. Callers hold m.mu.
func (m *Manager) clearLocked() error {
	if m.lastCopy == "" {
		return nil // Nothing to clear
	}

	current, err := m.backend.Read()
	if err != nil {
		// If we can't read clipboard, err on the side of caution and don't clear
		return fmt.Errorf("cannot verify clipboard content: %w", err)
	}

	last := m.lastCopy
	m.lastCopy = ""

	// Clipboard content has changed - user has copied something else
	if current != last {
		m.logger.Debug("clipboard changed since copy, leaving it alone")
		return nil
	}

	if err := m.backend.Write(""); err != nil {
		return fmt.Errorf("failed to clear clipboard: %w", err)
	}
	m.logger.Debug("clipboard cleared")
	return nil
}

// Status describes the clipboard manager for status output
type Status struct {
	Supported  bool
	Backend    string
	ClearDelay time.Duration
	AutoClear  bool
	Pending    bool
}

// GetStatus returns information about the clipboard manager state
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Supported:  IsSupported(),
		Backend:    m.backend.Name(),
		ClearDelay: m.clearDelay,
		AutoClear:  m.clearDelay > 0,
		Pending:    m.pending != nil,
	}
}
