// Package backend talks to the workers that actually run models. An Adapter
// turns one rendered prompt into a stream of generation.Results.
package backend

import (
	"context"

	"modelgw/internal/generation"
)

// Adapter generates text for a rendered prompt. Implementations call emit
// once per produced Result, in order, and return when generation ends, the
// context is done, or emit returns an error (which is returned as is).
//
// Failures that happen before any output is produced are returned as errors;
// failures after that are reported in-band as a Result carrying Error and
// finish reason "error", and Generate returns nil.
type Adapter interface {
	Generate(ctx context.Context, model, prompt string, params Params, emit func(generation.Result) error) error
}

// Params are the sampling parameters forwarded to the worker. Nil pointers
// leave the worker's own defaults in place.
type Params struct {
	MaxTokens        int
	Temperature      *float64
	TopP             *float64
	TopK             *int
	Stop             []string
	PresencePenalty  *float64
	FrequencyPenalty *float64
	LogitBias        map[string]float64
	User             string
}

// unavailableError signals that the worker could not be reached or refused
// the request before streaming started.
type unavailableError struct {
	msg string
	err error
}

func (e unavailableError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e unavailableError) Unwrap() error { return e.err }

// ErrUnavailable wraps err as a worker availability failure.
func ErrUnavailable(msg string, err error) error { return unavailableError{msg: msg, err: err} }

// IsUnavailable reports whether err indicates the worker was unavailable.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}

func cancelled() generation.Result {
	return generation.Result{
		FinishReason: generation.Ptr(generation.FinishCancelled),
		Timestamp:    generation.Now(),
	}
}

func failed(info generation.ErrorInfo) generation.Result {
	return generation.Result{
		Error:        &info,
		FinishReason: generation.Ptr(generation.FinishError),
		Timestamp:    generation.Now(),
	}
}
