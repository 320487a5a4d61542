package manager

import (
	"time"

	"modelgw/internal/backend"
	"modelgw/internal/prompt"
)

// Request is one generation request addressed to a model.
type Request struct {
	// Model id; empty selects the configured default model.
	Model  string
	Prompt prompt.Prompt
	Params backend.Params
}

// instance holds the admission state of one model.
type instance struct {
	ID       string
	LastUsed time.Time
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
}

func newInstance(id string, depth int) *instance {
	return &instance{
		ID:      id,
		genCh:   make(chan struct{}, 1),
		queueCh: make(chan struct{}, depth),
	}
}
