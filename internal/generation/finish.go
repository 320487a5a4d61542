package generation

// FinishReason is the normalized termination cause of a generation.
type FinishReason string

const (
	FinishLength    FinishReason = "length"
	FinishStop      FinishReason = "stop"
	FinishError     FinishReason = "error"
	FinishCancelled FinishReason = "cancelled"
)

func (f FinishReason) String() string { return string(f) }

// backendFinishReasons maps the vocabulary of vLLM-style workers.
var backendFinishReasons = map[string]FinishReason{
	"stop":   FinishStop,
	"length": FinishLength,
	"abort":  FinishCancelled,
}

// FinishReasonFromBackend normalizes a backend termination signal. An empty
// signal stays absent; anything not in the table maps to FinishStop.
func FinishReasonFromBackend(reason string) *FinishReason {
	if reason == "" {
		return nil
	}
	if f, ok := backendFinishReasons[reason]; ok {
		return &f
	}
	f := FinishStop
	return &f
}
