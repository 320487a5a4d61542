package generation

import (
	"errors"
	"strings"
)

// ErrEmptyMerge is returned when Merge is called without any results.
var ErrEmptyMerge = errors.New("merge: no results to merge")

// Merge folds an ordered stream of results into one. Text is concatenated;
// generated token counts and generation time are summed; input token counts
// and preprocessing time take the maximum; timestamp and finish reason come
// from the last result; the error is the most recent one reported.
//
// A single result is returned unchanged.
func Merge(results ...Result) (Result, error) {
	switch len(results) {
	case 0:
		return Result{}, ErrEmptyMerge
	case 1:
		return results[0], nil
	}
	var acc Accumulator
	for _, r := range results {
		acc.Add(r)
	}
	return acc.Result()
}

// Accumulator applies the Merge rules incrementally, so a stream can be
// reduced while it is being forwarded. The zero value is ready to use.
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	n     int
	first Result
	text  strings.Builder

	numInputTokens          *int
	numInputTokensBatch     *int
	numGeneratedTokens      *int
	numGeneratedTokensBatch *int
	preprocessingTime       *float64
	generationTime          *float64

	timestamp    float64
	finishReason *FinishReason
	err          *ErrorInfo
}

// Add folds r into the accumulated state.
func (a *Accumulator) Add(r Result) {
	if a.n == 0 {
		a.first = r
	}
	a.n++
	if r.GeneratedText != nil {
		a.text.WriteString(*r.GeneratedText)
	}
	a.numInputTokens = maxOf(a.numInputTokens, r.NumInputTokens)
	a.numInputTokensBatch = maxOf(a.numInputTokensBatch, r.NumInputTokensBatch)
	a.preprocessingTime = maxOf(a.preprocessingTime, r.PreprocessingTime)
	a.numGeneratedTokens = sumOf(a.numGeneratedTokens, r.NumGeneratedTokens)
	a.numGeneratedTokensBatch = sumOf(a.numGeneratedTokensBatch, r.NumGeneratedTokensBatch)
	a.generationTime = sumOf(a.generationTime, r.GenerationTime)
	a.timestamp = r.Timestamp
	a.finishReason = r.FinishReason
	if r.Error != nil {
		a.err = r.Error
	}
}

// Len reports how many results have been added.
func (a *Accumulator) Len() int { return a.n }

// Result returns the merged result for everything added so far.
func (a *Accumulator) Result() (Result, error) {
	switch a.n {
	case 0:
		return Result{}, ErrEmptyMerge
	case 1:
		return a.first, nil
	}
	text := a.text.String()
	out := Result{
		GeneratedText:           &text,
		NumInputTokens:          a.numInputTokens,
		NumInputTokensBatch:     a.numInputTokensBatch,
		NumGeneratedTokens:      a.numGeneratedTokens,
		NumGeneratedTokensBatch: a.numGeneratedTokensBatch,
		PreprocessingTime:       a.preprocessingTime,
		GenerationTime:          a.generationTime,
		Timestamp:               a.timestamp,
		FinishReason:            a.finishReason,
		Error:                   a.err,
	}
	if err := out.Validate(); err != nil {
		return Result{}, err
	}
	return out, nil
}

func maxOf[T int | float64](acc, v *T) *T {
	if v == nil {
		return acc
	}
	if acc == nil || *v > *acc {
		x := *v
		return &x
	}
	return acc
}

func sumOf[T int | float64](acc, v *T) *T {
	if v == nil {
		return acc
	}
	x := *v
	if acc != nil {
		x += *acc
	}
	return &x
}
