package backend

import (
	"context"
	"strings"
	"time"

	"modelgw/internal/generation"
)

// Echo is an in-process adapter that repeats the last line of the prompt
// back one word per Result. It needs no worker and is deterministic, which
// makes it useful for development and tests.
type Echo struct {
	// Delay is slept before each word.
	Delay time.Duration
}

// Generate implements Adapter. MaxTokens > 0 truncates the echo and finishes
// with reason "length".
func (e Echo) Generate(ctx context.Context, model, prompt string, params Params, emit func(generation.Result) error) error {
	lines := strings.Split(strings.TrimRight(prompt, "\n"), "\n")
	words := strings.Fields(lines[len(lines)-1])
	finish := generation.FinishStop
	if params.MaxTokens > 0 && len(words) > params.MaxTokens {
		words = words[:params.MaxTokens]
		finish = generation.FinishLength
	}
	inputTokens := len(strings.Fields(prompt))

	if len(words) == 0 {
		return emit(generation.Result{
			GeneratedText:  generation.Ptr(""),
			NumInputTokens: generation.Ptr(inputTokens),
			FinishReason:   generation.Ptr(finish),
			Timestamp:      generation.Now(),
		})
	}
	for i, w := range words {
		if e.Delay > 0 {
			t := time.NewTimer(e.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return emit(cancelled())
			case <-t.C:
			}
		}
		if ctx.Err() != nil {
			return emit(cancelled())
		}
		text := w
		if i > 0 {
			text = " " + w
		}
		r := generation.Result{
			GeneratedText:      generation.Ptr(text),
			NumGeneratedTokens: generation.Ptr(1),
			GenerationTime:     generation.Ptr(e.Delay.Seconds()),
			Timestamp:          generation.Now(),
		}
		if i == 0 {
			r.NumInputTokens = generation.Ptr(inputTokens)
			r.PreprocessingTime = generation.Ptr(0.0)
		}
		if i == len(words)-1 {
			r.FinishReason = generation.Ptr(finish)
		}
		if err := emit(r); err != nil {
			return err
		}
	}
	return nil
}
