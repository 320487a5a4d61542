package backend

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"modelgw/internal/generation"
)

// OpenAIWorkerConfig configures an OpenAIWorker.
type OpenAIWorkerConfig struct {
	// BaseURL of the worker's OpenAI-compatible API, including /v1.
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	// HTTPClient overrides the default client built from ConnectTimeout.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// OpenAIWorker streams completions from an OpenAI-compatible worker such as
// vLLM or llama.cpp server.
type OpenAIWorker struct {
	client     *openai.Client
	reqTimeout time.Duration
	log        zerolog.Logger
}

// NewOpenAIWorker constructs a worker-backed adapter.
func NewOpenAIWorker(cfg OpenAIWorkerConfig) *OpenAIWorker {
	cli := cfg.HTTPClient
	if cli == nil {
		connect := cfg.ConnectTimeout
		if connect <= 0 {
			connect = 10 * time.Second
		}
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connect,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Deadlines come from the request context.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = cli
	lg := zerolog.Nop()
	if cfg.Logger != nil {
		lg = *cfg.Logger
	}
	return &OpenAIWorker{
		client:     openai.NewClientWithConfig(oc),
		reqTimeout: cfg.RequestTimeout,
		log:        lg.With().Str("adapter", "openai_worker").Logger(),
	}
}

func completionRequest(model, prompt string, p Params) openai.CompletionRequest {
	req := openai.CompletionRequest{
		Model:     model,
		Prompt:    prompt,
		MaxTokens: p.MaxTokens,
		Stop:      p.Stop,
		User:      p.User,
		Stream:    true,
	}
	if p.Temperature != nil {
		req.Temperature = float32(*p.Temperature)
	}
	if p.TopP != nil {
		req.TopP = float32(*p.TopP)
	}
	if p.PresencePenalty != nil {
		req.PresencePenalty = float32(*p.PresencePenalty)
	}
	if p.FrequencyPenalty != nil {
		req.FrequencyPenalty = float32(*p.FrequencyPenalty)
	}
	if len(p.LogitBias) > 0 {
		req.LogitBias = make(map[string]int, len(p.LogitBias))
		for k, v := range p.LogitBias {
			req.LogitBias[k] = int(math.Round(v))
		}
	}
	return req
}

// Generate streams one completion. Each text chunk counts as one generated
// token; the time to the first chunk is reported as preprocessing time and
// the gap between chunks as generation time.
func (w *OpenAIWorker) Generate(ctx context.Context, model, prompt string, params Params, emit func(generation.Result) error) error {
	parent := ctx
	if w.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.reqTimeout)
		defer cancel()
	}

	start := time.Now()
	stream, err := w.client.CreateCompletionStream(ctx, completionRequest(model, prompt, params))
	if err != nil {
		if parent.Err() != nil {
			return parent.Err()
		}
		w.log.Debug().Err(err).Str("model", model).Msg("worker request failed")
		return ErrUnavailable("worker request failed", err)
	}
	defer stream.Close()

	last := start
	started := false
	var lastFinish *generation.FinishReason
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			switch {
			case errors.Is(parent.Err(), context.Canceled):
				return emit(cancelled())
			case ctx.Err() != nil:
				return emit(failed(generation.ErrorInfo{
					Message:         "generation timed out",
					InternalMessage: err.Error(),
					Type:            "TimeoutError",
					Code:            http.StatusGatewayTimeout,
				}))
			}
			w.log.Warn().Err(err).Str("model", model).Msg("worker stream failed")
			return emit(failed(generation.ErrorInfo{
				Message:         "worker stream failed",
				InternalMessage: err.Error(),
				Type:            "WorkerError",
				Code:            http.StatusInternalServerError,
			}))
		}

		now := time.Now()
		r := generation.Result{Timestamp: generation.Now()}
		if resp.Usage.PromptTokens > 0 {
			r.NumInputTokens = generation.Ptr(resp.Usage.PromptTokens)
		}
		if len(resp.Choices) > 0 {
			c := resp.Choices[0]
			r.GeneratedText = generation.Ptr(c.Text)
			if c.Text != "" {
				r.NumGeneratedTokens = generation.Ptr(1)
			}
			r.FinishReason = generation.FinishReasonFromBackend(c.FinishReason)
		}
		if r.Validate() != nil {
			continue
		}
		if !started {
			started = true
			r.PreprocessingTime = generation.Ptr(now.Sub(start).Seconds())
		} else {
			r.GenerationTime = generation.Ptr(now.Sub(last).Seconds())
		}
		last = now
		lastFinish = r.FinishReason
		if err := emit(r); err != nil {
			return err
		}
	}
	if lastFinish == nil {
		return emit(generation.Result{
			FinishReason: generation.Ptr(generation.FinishStop),
			Timestamp:    generation.Now(),
		})
	}
	return nil
}
