package manager

import (
	"context"
	"time"

	"modelgw/internal/backend"
	"modelgw/internal/generation"
)

// Stream renders req's prompt with the model's template, waits for
// admission and forwards every Result the backend produces to emit, in
// order. Errors raised before generation starts (unknown model, invalid
// prompt, too busy, worker unavailable) are returned; backend failures after
// that arrive in-band as a Result with Error set.
func (m *Manager) Stream(ctx context.Context, req Request, emit func(generation.Result) error) error {
	entry, err := m.resolve(req.Model)
	if err != nil {
		return err
	}
	id := entry.Model.ID
	text, err := entry.Template.Render(req.Prompt)
	if err != nil {
		return err
	}

	queued := time.Now()
	release, err := m.beginGeneration(ctx, id)
	if err != nil {
		if IsTooBusy(err) {
			m.publish(Event{Name: EventGenerationRejected, ModelID: id, Fields: map[string]any{"queue_wait_ms": time.Since(queued).Milliseconds()}})
		}
		return err
	}
	defer release()

	m.generations.Add(1)
	start := time.Now()
	m.publish(Event{Name: EventGenerationStart, ModelID: id, Fields: map[string]any{"queue_wait_ms": start.Sub(queued).Milliseconds()}})
	m.log.Debug().Str("model", id).Int("prompt_chars", len(text)).Msg("generation start")

	var (
		chunks int
		finish *generation.FinishReason
		failed *generation.ErrorInfo
	)
	err = m.adapter.Generate(ctx, entry.Model.BackendName(), text, req.Params, func(r generation.Result) error {
		chunks++
		finish = r.FinishReason
		if r.Error != nil {
			failed = r.Error
		}
		return emit(r)
	})
	if err != nil && backend.IsUnavailable(err) {
		err = ErrDependencyUnavailable(err.Error())
	}

	fields := map[string]any{"chunks": chunks, "duration_ms": time.Since(start).Milliseconds()}
	if finish != nil {
		fields["finish_reason"] = finish.String()
	}
	switch {
	case err != nil:
		m.recordError(err.Error())
		fields["error"] = err.Error()
	case failed != nil:
		m.recordError(failed.Error())
		fields["error"] = failed.Error()
	}
	m.publish(Event{Name: EventGenerationDone, ModelID: id, Fields: fields})
	if err != nil {
		m.log.Warn().Err(err).Str("model", id).Msg("generation failed")
	}
	return err
}

// Complete runs Stream and merges the produced Results into one.
func (m *Manager) Complete(ctx context.Context, req Request) (generation.Result, error) {
	var acc generation.Accumulator
	if err := m.Stream(ctx, req, func(r generation.Result) error {
		acc.Add(r)
		return nil
	}); err != nil {
		return generation.Result{}, err
	}
	return acc.Result()
}

func (m *Manager) recordError(msg string) {
	m.genErrors.Add(1)
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
}
