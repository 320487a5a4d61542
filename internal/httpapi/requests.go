package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"modelgw/internal/backend"
	"modelgw/internal/manager"
	"modelgw/internal/prompt"
	"modelgw/internal/wire"
	"modelgw/pkg/types"
)

// decodeJSON enforces the content type and body limit, then decodes into v.
// Decoder details go to the log only.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return requestError{status: http.StatusUnsupportedMediaType, msg: "Content-Type must be application/json", internal: "content-type: " + ct}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large", internal: err.Error()}
		}
		return requestError{status: http.StatusBadRequest, msg: "request body is not valid JSON", internal: err.Error()}
	}
	return nil
}

func checkChoices(n, bestOf int) error {
	if n != 1 {
		return badRequest("only n=1 is supported")
	}
	if bestOf != 1 {
		return badRequest("only best_of=1 is supported")
	}
	return nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// completionRequest maps a text completion onto a manager request. The
// prompt is sent as is, without the model's prompt format.
func completionRequest(req types.CompletionRequest) (manager.Request, error) {
	req.ApplyDefaults()
	if err := checkChoices(req.N, req.BestOf); err != nil {
		return manager.Request{}, err
	}
	return manager.Request{
		Model:  req.Model,
		Prompt: prompt.TextPrompt(req.Prompt, false),
		Params: backend.Params{
			MaxTokens:        derefInt(req.MaxTokens),
			Temperature:      req.Temperature,
			TopP:             req.TopP,
			TopK:             req.TopK,
			Stop:             req.Stop,
			PresencePenalty:  req.PresencePenalty,
			FrequencyPenalty: req.FrequencyPenalty,
			LogitBias:        req.LogitBias,
			User:             req.User,
		},
	}, nil
}

// chatRequest maps a chat completion onto a manager request rendered through
// the model's prompt format.
func chatRequest(req types.ChatCompletionRequest) (manager.Request, error) {
	req.ApplyDefaults()
	if err := checkChoices(req.N, req.BestOf); err != nil {
		return manager.Request{}, err
	}
	if len(req.Messages) == 0 {
		return manager.Request{}, badRequest("messages must not be empty")
	}
	msgs, err := wire.Messages(req.Messages)
	if err != nil {
		return manager.Request{}, badRequest(err.Error())
	}
	return manager.Request{
		Model:  req.Model,
		Prompt: prompt.ChatPrompt(msgs),
		Params: backend.Params{
			MaxTokens:        derefInt(req.MaxTokens),
			Temperature:      req.Temperature,
			TopP:             req.TopP,
			TopK:             req.TopK,
			Stop:             req.Stop,
			PresencePenalty:  req.PresencePenalty,
			FrequencyPenalty: req.FrequencyPenalty,
			LogitBias:        req.LogitBias,
			User:             req.User,
		},
	}, nil
}
