package manager

import "github.com/rs/zerolog"

// Event names published by the manager.
const (
	EventGenerationStart    = "generation_start"
	EventGenerationDone     = "generation_done"
	EventGenerationRejected = "generation_rejected"
	EventDrainStart         = "drain_start"
)

// Event is one generation lifecycle event. Fields carries optional details
// such as chunks, duration_ms, queue_wait_ms, finish_reason and error.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Publish is called on the
// request goroutine and must not block.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes every event to a zerolog logger at debug level.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug().Str("event", e.Name)
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	ev.Fields(e.Fields).Msg("manager event")
}
