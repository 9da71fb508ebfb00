// Package channel exposes the graph engine to clients: an HTTP/SSE server
// and an interactive terminal.
package channel

import (
	"context"
	"errors"
	"sort"

	"github.com/linanwx/notebot/logger"
)

// Channel is a transport that runs until stopped.
type Channel interface {
	// Name returns the channel name (e.g., "web", "cli").
	Name() string

	// Start begins serving. It returns once the channel is ready.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop() error
}

// Manager manages multiple channels as a pure registry.
type Manager struct {
	channels map[string]Channel
}

// NewManager creates a new channel manager.
func NewManager() *Manager {
	return &Manager{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the manager and logs it. Nil is silently ignored.
func (m *Manager) Register(ch Channel) {
	if ch == nil {
		return
	}
	m.channels[ch.Name()] = ch
	logger.Info("channel registered", "channel", ch.Name())
}

// Get returns a channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	ch, ok := m.channels[name]
	return ch, ok
}

// Names returns registered channel names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts all registered channels in name order.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, name := range m.Names() {
		if err := m.channels[name].Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops all registered channels and joins their errors.
func (m *Manager) StopAll() error {
	var errs []error
	for _, name := range m.Names() {
		if err := m.channels[name].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
