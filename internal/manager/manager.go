package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"modelgw/internal/backend"
	"modelgw/internal/registry"
	"modelgw/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	registry     *registry.Registry
	adapter      backend.Adapter
	backendName  string
	defaultModel string
	instances    map[string]*instance
	draining     bool
	lastErr      string

	pub EventPublisher
	log zerolog.Logger

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration

	startTime   time.Time
	generations atomic.Uint64
	genErrors   atomic.Uint64
}

// Ready reports whether the manager can accept generations: at least one
// model is registered and the manager is not draining.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.draining && m.registry.Len() > 0
}

// ListModels returns the registered models sorted by id.
func (m *Manager) ListModels() []types.Model {
	return m.registry.Models()
}

// Model returns the model registered under id.
func (m *Manager) Model(id string) (types.Model, error) {
	e, ok := m.registry.Lookup(id)
	if !ok {
		return types.Model{}, modelNotFoundError{id: id}
	}
	return e.Model, nil
}

// ResolveModel is Model with the default model substituted for an empty id.
func (m *Manager) ResolveModel(id string) (types.Model, error) {
	e, err := m.resolve(id)
	if err != nil {
		return types.Model{}, err
	}
	return e.Model, nil
}

func (m *Manager) resolve(id string) (registry.Entry, error) {
	if id == "" {
		id = m.defaultModel
		if id == "" {
			// No model specified and no default configured
			return registry.Entry{}, modelNotFoundError{id: "(unspecified)"}
		}
	}
	e, ok := m.registry.Lookup(id)
	if !ok {
		return registry.Entry{}, modelNotFoundError{id: id}
	}
	return e, nil
}

// Drain stops admitting new generations. In-flight and already queued
// generations are unaffected.
func (m *Manager) Drain() {
	m.mu.Lock()
	m.draining = true
	m.mu.Unlock()
	m.publish(Event{Name: EventDrainStart})
}

// SetEventPublisher replaces the event publisher; nil restores the no-op one.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.pub = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.pub
	m.mu.RUnlock()
	p.Publish(e)
}
