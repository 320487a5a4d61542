// Package generation models the output of a model backend: single results,
// streamed chunks, and the rules for folding a chunk stream into one result.
package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyResult is returned when a Result carries neither text, an error,
// nor a finish reason.
var ErrEmptyResult = errors.New("either 'generated_text' or 'error' or 'finish_reason' must be set")

// ErrorInfo describes a backend failure. InternalMessage is meant for logs
// and is never part of a client-facing payload.
type ErrorInfo struct {
	Message         string         `json:"message"`
	InternalMessage string         `json:"internal_message"`
	Type            string         `json:"type"`
	Params          map[string]any `json:"param"`
	Code            int            `json:"code"`
}

func (e *ErrorInfo) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Result is one unit of model output, either a streamed chunk or a complete
// generation. Nil pointer fields are absent.
type Result struct {
	GeneratedText           *string       `json:"generated_text"`
	NumInputTokens          *int          `json:"num_input_tokens"`
	NumInputTokensBatch     *int          `json:"num_input_tokens_batch"`
	NumGeneratedTokens      *int          `json:"num_generated_tokens"`
	NumGeneratedTokensBatch *int          `json:"num_generated_tokens_batch"`
	PreprocessingTime       *float64      `json:"preprocessing_time"`
	GenerationTime          *float64      `json:"generation_time"`
	Timestamp               float64       `json:"timestamp"`
	FinishReason            *FinishReason `json:"finish_reason"`
	Error                   *ErrorInfo    `json:"error"`
}

// New validates r and stamps it with the current time when Timestamp is unset.
func New(r Result) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	if r.Timestamp == 0 {
		r.Timestamp = Now()
	}
	return r, nil
}

// Validate checks that r is not empty.
func (r Result) Validate() error {
	if r.GeneratedText == nil && r.Error == nil && r.FinishReason == nil {
		return ErrEmptyResult
	}
	return nil
}

// Text returns the generated text, or "" when absent.
func (r Result) Text() string {
	if r.GeneratedText == nil {
		return ""
	}
	return *r.GeneratedText
}

// TotalTime is preprocessing plus generation time; nil when both are absent.
func (r Result) TotalTime() *float64 {
	if r.PreprocessingTime == nil && r.GenerationTime == nil {
		return nil
	}
	total := deref(r.PreprocessingTime) + deref(r.GenerationTime)
	return &total
}

// NumTotalTokens is input plus generated tokens, absent counts read as 0.
func (r Result) NumTotalTokens() int {
	return deref(r.NumInputTokens) + deref(r.NumGeneratedTokens)
}

// NumTotalTokensBatch is the batch-level counterpart of NumTotalTokens.
func (r Result) NumTotalTokensBatch() int {
	return deref(r.NumInputTokensBatch) + deref(r.NumGeneratedTokensBatch)
}

// MarshalJSON emits the stored fields plus the derived totals.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		TotalTime           *float64 `json:"total_time"`
		NumTotalTokens      int      `json:"num_total_tokens"`
		NumTotalTokensBatch int      `json:"num_total_tokens_batch"`
	}{
		plain:               plain(r),
		TotalTime:           r.TotalTime(),
		NumTotalTokens:      r.NumTotalTokens(),
		NumTotalTokensBatch: r.NumTotalTokensBatch(),
	})
}

// Now returns the current time as fractional unix seconds.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Ptr returns a pointer to v, for populating optional fields.
func Ptr[T any](v T) *T { return &v }

func deref[T int | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}
