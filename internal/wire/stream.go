package wire

import (
	"modelgw/internal/generation"
	"modelgw/internal/prompt"
	"modelgw/pkg/types"
)

// ChatStream produces the chunks of one streaming chat completion. All
// chunks share an id, creation time and model. The first chunk announces
// the role, each result with text becomes a content chunk, and Final closes
// the stream with an empty delta carrying the finish reason.
type ChatStream struct {
	id      string
	created int64
	model   string
	started bool
}

// NewChatStream starts a chat stream for model.
func NewChatStream(model string) *ChatStream {
	return &ChatStream{id: NewID(), created: now().Unix(), model: model}
}

// ID returns the id shared by every chunk.
func (s *ChatStream) ID() string { return s.id }

// Chunks returns the chunks to emit for r. The role announcement is
// prepended on the first call. Results without text produce no content
// chunk.
func (s *ChatStream) Chunks(r generation.Result) []types.ChatCompletionChunk {
	var out []types.ChatCompletionChunk
	if !s.started {
		s.started = true
		out = append(out, s.chunk(types.DeltaRole{Role: string(prompt.RoleAssistant)}, nil, nil))
	}
	if text := r.Text(); text != "" {
		out = append(out, s.chunk(types.DeltaContent{Content: text}, nil, nil))
	}
	return out
}

// Final returns the terminal chunk. finish is normally the finish reason of
// the merged stream; usage may be nil.
func (s *ChatStream) Final(finish *generation.FinishReason, usage *types.UsageInfo) types.ChatCompletionChunk {
	return s.chunk(types.DeltaEOS{}, FinishReasonString(finish), usage)
}

func (s *ChatStream) chunk(d types.Delta, finish *string, usage *types.UsageInfo) types.ChatCompletionChunk {
	return types.ChatCompletionChunk{
		ID:      s.id,
		Object:  types.ObjectChatCompletionChunk,
		Created: s.created,
		Model:   s.model,
		Choices: []types.DeltaChoice{{Delta: d, Index: 0, FinishReason: finish}},
		Usage:   usage,
	}
}

// CompletionStream produces the chunks of one streaming text completion.
type CompletionStream struct {
	id      string
	created int64
	model   string
}

// NewCompletionStream starts a completion stream for model.
func NewCompletionStream(model string) *CompletionStream {
	return &CompletionStream{id: NewID(), created: now().Unix(), model: model}
}

// ID returns the id shared by every chunk.
func (s *CompletionStream) ID() string { return s.id }

// Chunk converts one streamed result. The finish reason is carried only by
// the chunk that reports it; usage is attached when non-nil.
func (s *CompletionStream) Chunk(r generation.Result, usage *types.UsageInfo) types.CompletionResponse {
	return types.CompletionResponse{
		ID:      s.id,
		Object:  types.ObjectTextCompletion,
		Created: s.created,
		Model:   s.model,
		Choices: []types.CompletionChoice{{
			Index:        0,
			Text:         r.Text(),
			FinishReason: FinishReasonString(r.FinishReason),
		}},
		Usage: usage,
	}
}
