package manager

import (
	"context"
	"testing"
	"time"

	"modelgw/internal/backend"
	"modelgw/internal/generation"
	"modelgw/internal/prompt"
	"modelgw/internal/registry"
	"modelgw/pkg/types"
)

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	err       error
	results   []generation.Result
	block     chan struct{}
	gotModel  string
	gotPrompt string
	gotParams backend.Params
}

func (f *fakeAdapter) Generate(ctx context.Context, model, p string, params backend.Params, emit func(generation.Result) error) error {
	f.gotModel, f.gotPrompt, f.gotParams = model, p, params
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	for _, r := range f.results {
		if err := emit(r); err != nil {
			return err
		}
	}
	return nil
}

func chunk(text string, finish *generation.FinishReason) generation.Result {
	return generation.Result{GeneratedText: generation.Ptr(text), NumGeneratedTokens: generation.Ptr(1), FinishReason: finish, Timestamp: 1}
}

var testTemplate = prompt.MustTemplate(prompt.TemplateConfig{
	System:            "<s>{instruction}</s>",
	User:              "[U]{instruction}",
	Assistant:         "[A]{instruction}",
	TrailingAssistant: "[A]",
})

func testRegistry(ids ...string) *registry.Registry {
	entries := make([]registry.Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, registry.Entry{Model: types.Model{ID: id, WorkerModel: "worker/" + id}, Template: testTemplate})
	}
	return registry.New(entries...)
}

func newTestManager(t *testing.T, a backend.Adapter, maxQueue int, maxWait time.Duration) *Manager {
	t.Helper()
	return NewWithConfig(ManagerConfig{
		Registry:      testRegistry("m", "other"),
		Adapter:       a,
		BackendName:   "fake",
		DefaultModel:  "m",
		MaxQueueDepth: maxQueue,
		MaxWait:       maxWait,
	})
}
