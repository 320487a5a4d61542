// Package wire translates generation results, messages and registry models
// into the OpenAI-compatible shapes defined in pkg/types.
package wire

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"modelgw/internal/generation"
	"modelgw/internal/prompt"
	"modelgw/pkg/types"
)

// NewID returns a fresh response id.
func NewID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

var now = func() time.Time { return time.Now() }

// Usage derives token accounting from r; absent counts read as 0.
func Usage(r generation.Result) types.UsageInfo {
	in := intOrZero(r.NumInputTokens)
	out := intOrZero(r.NumGeneratedTokens)
	return types.UsageInfo{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
}

// FinishReasonString renders an optional finish reason for the wire.
func FinishReasonString(f *generation.FinishReason) *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

// NewCompletion builds a non-streaming text completion from a merged result.
func NewCompletion(model string, r generation.Result) types.CompletionResponse {
	usage := Usage(r)
	return types.CompletionResponse{
		ID:      NewID(),
		Object:  types.ObjectTextCompletion,
		Created: now().Unix(),
		Model:   model,
		Choices: []types.CompletionChoice{{
			Index:        0,
			Text:         r.Text(),
			FinishReason: FinishReasonString(r.FinishReason),
		}},
		Usage: &usage,
	}
}

// NewChatCompletion builds a non-streaming chat completion from a merged result.
func NewChatCompletion(model string, r generation.Result) types.ChatCompletion {
	usage := Usage(r)
	return types.ChatCompletion{
		ID:      NewID(),
		Object:  types.ObjectChatCompletion,
		Created: now().Unix(),
		Model:   model,
		Choices: []types.MessageChoice{{
			Message:      types.ChatMessage{Role: string(prompt.RoleAssistant), Content: r.Text()},
			Index:        0,
			FinishReason: FinishReasonString(r.FinishReason),
		}},
		Usage: &usage,
	}
}

// Messages converts wire messages into prompt messages, validating roles.
func Messages(in []types.ChatMessage) ([]prompt.Message, error) {
	out := make([]prompt.Message, 0, len(in))
	for _, m := range in {
		pm, err := prompt.NewMessage(m.Role, m.Content)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, nil
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
