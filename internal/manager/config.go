package manager

import (
	"time"

	"github.com/rs/zerolog"

	"modelgw/internal/backend"
	"modelgw/internal/registry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry *registry.Registry
	Adapter  backend.Adapter
	// BackendName is reported by Status.
	BackendName   string
	DefaultModel  string
	MaxQueueDepth int
	MaxWait       time.Duration
	Publisher     EventPublisher
	Logger        *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		registry:     cfg.Registry,
		adapter:      cfg.Adapter,
		backendName:  cfg.BackendName,
		defaultModel: cfg.DefaultModel,
		instances:    make(map[string]*instance),
		pub:          cfg.Publisher,
		log:          zerolog.Nop(),
		startTime:    time.Now(),
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if m.pub == nil {
		m.pub = noopPublisher{}
	}
	if m.adapter == nil {
		m.adapter = backend.Echo{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	for _, mdl := range m.registry.Models() {
		m.instances[mdl.ID] = newInstance(mdl.ID, m.maxQueueDepth)
	}
	return m
}
