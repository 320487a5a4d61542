package types

import (
	"encoding/json"
	"fmt"
)

// Object tags used in OpenAI-compatible payloads.
const (
	ObjectModel               = "model"
	ObjectList                = "list"
	ObjectTextCompletion      = "text_completion"
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	ObjectError               = "error"

	// DefaultOwnedBy is reported for models whose description omits owned_by.
	DefaultOwnedBy = "llmonray"
)

// StopSequences accepts either a single string or a list of strings.
type StopSequences []string

func (s *StopSequences) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*s = nil
		} else {
			*s = StopSequences{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings")
	}
	*s = many
	return nil
}

// CompletionRequest is the body of POST /v1/completions.
type CompletionRequest struct {
	// example: llama-2-7b-chat-hf
	Model string `json:"model" example:"llama-2-7b-chat-hf"`
	// example: Write a haiku about the ocean.
	Prompt           string             `json:"prompt" example:"Write a haiku about the ocean."`
	Suffix           *string            `json:"suffix,omitempty"`
	Stream           bool               `json:"stream,omitempty"`
	Echo             bool               `json:"echo,omitempty"`
	User             string             `json:"user,omitempty"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	TopK             *int               `json:"top_k,omitempty"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	N                int                `json:"n,omitempty"`
	Logprobs         *int               `json:"logprobs,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	Stop             StopSequences      `json:"stop,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	BestOf           int                `json:"best_of,omitempty"`
}

// DefaultCompletionMaxTokens applies when a completion request omits max_tokens.
const DefaultCompletionMaxTokens = 16

// ApplyDefaults fills the fields the API defines defaults for.
func (r *CompletionRequest) ApplyDefaults() {
	if r.MaxTokens == nil {
		n := DefaultCompletionMaxTokens
		r.MaxTokens = &n
	}
	if r.N == 0 {
		r.N = 1
	}
	if r.BestOf == 0 {
		r.BestOf = 1
	}
}

// ChatMessage is a conversation turn on the wire.
type ChatMessage struct {
	// example: user
	Role string `json:"role" example:"user"`
	// example: Hello!
	Content string `json:"content" example:"Hello!"`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	Model            string             `json:"model"`
	Messages         []ChatMessage      `json:"messages"`
	Stream           bool               `json:"stream,omitempty"`
	Echo             bool               `json:"echo,omitempty"`
	User             string             `json:"user,omitempty"`
	TopK             *int               `json:"top_k,omitempty"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	N                int                `json:"n,omitempty"`
	Logprobs         *int               `json:"logprobs,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	Stop             StopSequences      `json:"stop,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	BestOf           int                `json:"best_of,omitempty"`
}

// ApplyDefaults fills the fields the API defines defaults for.
func (r *ChatCompletionRequest) ApplyDefaults() {
	if r.N == 0 {
		r.N = 1
	}
	if r.BestOf == 0 {
		r.BestOf = 1
	}
}

// UsageInfo reports token accounting for a response.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	TotalTokens      int `json:"total_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// CompletionChoice is one choice of a text completion.
type CompletionChoice struct {
	Index        int     `json:"index"`
	Text         string  `json:"text"`
	Logprobs     *int    `json:"logprobs"`
	FinishReason *string `json:"finish_reason"`
}

// CompletionResponse is returned by POST /v1/completions, and is also the
// shape of each streamed completion chunk.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *UsageInfo         `json:"usage"`
}

// MessageChoice is one choice of a non-streaming chat completion.
type MessageChoice struct {
	Message      ChatMessage `json:"message"`
	Index        int         `json:"index"`
	FinishReason *string     `json:"finish_reason"`
}

// ChatCompletion is returned by POST /v1/chat/completions.
type ChatCompletion struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Created int64           `json:"created"`
	Model   string          `json:"model"`
	Choices []MessageChoice `json:"choices"`
	Usage   *UsageInfo      `json:"usage"`
}

// ChatCompletionChunk is one event of a streaming chat completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []DeltaChoice `json:"choices"`
	Usage   *UsageInfo    `json:"usage"`
}

// ModelCard describes one model in GET /v1/models.
type ModelCard struct {
	ID         string   `json:"id"`
	Object     string   `json:"object"`
	Created    int64    `json:"created"`
	OwnedBy    string   `json:"owned_by"`
	Root       *string  `json:"root"`
	Parent     *string  `json:"parent"`
	Permission []string `json:"permission"`
}

// ModelList is returned by GET /v1/models.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelCard `json:"data"`
}

// ErrorResponse is the client-facing error envelope. InternalMessage is
// kept for logging and never serialized.
type ErrorResponse struct {
	Object          string         `json:"object"`
	Message         string         `json:"message"`
	InternalMessage string         `json:"-"`
	Type            string         `json:"type"`
	Param           map[string]any `json:"param"`
	Code            int            `json:"code"`
}

// ModelStatus summarizes admission state for one model in /status.
type ModelStatus struct {
	// example: llama-2-7b-chat-hf
	ModelID string `json:"model_id" example:"llama-2-7b-chat-hf"`
	// Current queue length for incoming requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight generations.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Last time this model served a request (unix seconds).
	LastUsed int64 `json:"last_used_unix,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Models []ModelStatus `json:"models"`
	// Backend adapter in use (e.g., openai, echo).
	// example: openai
	Backend string `json:"backend" example:"openai"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
	// Total generations started.
	GenerationsTotal uint64 `json:"generations_total"`
	// Total generations that ended with a backend error.
	GenerationErrorsTotal uint64 `json:"generation_errors_total"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
}
