package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"modelgw/internal/generation"
	"modelgw/internal/manager"
	"modelgw/internal/wire"
	"modelgw/pkg/types"
)

type handlers struct {
	svc Service
}

func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wire.ModelList(h.svc.ListModels()))
}

func (h *handlers) getModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Model(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.ModelCard(m))
}

func (h *handlers) completions(w http.ResponseWriter, r *http.Request) {
	var body types.CompletionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		reject(w, r, body.Model, err)
		return
	}
	req, err := completionRequest(body)
	if err != nil {
		reject(w, r, body.Model, err)
		return
	}
	h.run(w, r, req, body.Stream, completionFormat{})
}

func (h *handlers) chatCompletions(w http.ResponseWriter, r *http.Request) {
	var body types.ChatCompletionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		reject(w, r, body.Model, err)
		return
	}
	req, err := chatRequest(body)
	if err != nil {
		reject(w, r, body.Model, err)
		return
	}
	h.run(w, r, req, body.Stream, chatFormat{})
}

// reject answers a request that failed before generation and logs why.
func reject(w http.ResponseWriter, r *http.Request, model string, err error) {
	lg := newReqLog(r, model)
	lg.end(writeError(w, err), err)
}

// format shapes results for one endpoint.
type format interface {
	response(model string, merged generation.Result) any
	stream(model string) streamFormat
}

// streamFormat turns results into SSE payloads for one streamed response.
type streamFormat interface {
	// chunks returns the payloads for r; acc already includes r.
	chunks(r generation.Result, acc *generation.Accumulator) []any
	// final returns the payloads written before [DONE].
	final(acc *generation.Accumulator) []any
}

type completionFormat struct{}

func (completionFormat) response(model string, merged generation.Result) any {
	return wire.NewCompletion(model, merged)
}

func (completionFormat) stream(model string) streamFormat {
	return &completionStream{s: wire.NewCompletionStream(model)}
}

type completionStream struct {
	s *wire.CompletionStream
}

func (c *completionStream) chunks(r generation.Result, acc *generation.Accumulator) []any {
	if r.Text() == "" && r.FinishReason == nil {
		return nil
	}
	var usage *types.UsageInfo
	if r.FinishReason != nil {
		if merged, err := acc.Result(); err == nil {
			u := wire.Usage(merged)
			usage = &u
		}
	}
	return []any{c.s.Chunk(r, usage)}
}

func (c *completionStream) final(*generation.Accumulator) []any { return nil }

type chatFormat struct{}

func (chatFormat) response(model string, merged generation.Result) any {
	return wire.NewChatCompletion(model, merged)
}

func (chatFormat) stream(model string) streamFormat {
	return &chatStream{s: wire.NewChatStream(model)}
}

type chatStream struct {
	s *wire.ChatStream
}

func (c *chatStream) chunks(r generation.Result, _ *generation.Accumulator) []any {
	cs := c.s.Chunks(r)
	out := make([]any, 0, len(cs))
	for _, ch := range cs {
		out = append(out, ch)
	}
	return out
}

// final closes the stream. The role is announced first if no result did so.
func (c *chatStream) final(acc *generation.Accumulator) []any {
	out := c.chunks(generation.Result{}, acc)
	merged, err := acc.Result()
	if err != nil {
		return append(out, c.s.Final(generation.Ptr(generation.FinishStop), nil))
	}
	u := wire.Usage(merged)
	return append(out, c.s.Final(merged.FinishReason, &u))
}

// run executes req and writes either one JSON response or an SSE stream.
func (h *handlers) run(w http.ResponseWriter, r *http.Request, req manager.Request, stream bool, f format) {
	mdl, err := h.svc.ResolveModel(req.Model)
	if err != nil {
		writeError(w, err)
		return
	}
	req.Model = mdl.ID
	lg := newReqLog(r, mdl.ID)
	lg.begin(stream)

	ctx, cancel := generationContext(r)
	defer cancel()

	if !stream {
		merged, err := h.svc.Complete(ctx, req)
		if err != nil {
			lg.end(writeError(w, err), err)
			return
		}
		observeGeneration(mdl.ID, merged)
		if merged.Error != nil {
			status, body := resultError(*merged.Error)
			writeJSON(w, status, body)
			lg.end(status, merged.Error)
			return
		}
		writeJSON(w, http.StatusOK, f.response(mdl.ID, merged))
		lg.end(http.StatusOK, nil)
		return
	}

	sse := newSSEWriter(w, lg)
	sf := f.stream(mdl.ID)
	var acc generation.Accumulator
	err = h.svc.Stream(ctx, req, func(res generation.Result) error {
		acc.Add(res)
		for _, p := range sf.chunks(res, &acc) {
			if err := sse.Data(p); err != nil {
				return err
			}
		}
		if res.Error != nil {
			lg.backendError(res.Error)
			_, body := resultError(*res.Error)
			return sse.Data(map[string]any{"error": body})
		}
		return nil
	})
	if err != nil && !sse.Started() {
		lg.end(writeError(w, err), err)
		return
	}
	if merged, mErr := acc.Result(); mErr == nil {
		observeGeneration(mdl.ID, merged)
	}
	if err != nil {
		// Headers are gone; report in-band unless the client left.
		if r.Context().Err() == nil {
			_, body := errorFor(err)
			_ = sse.Data(map[string]any{"error": body})
			_ = sse.Done()
		}
		lg.end(http.StatusOK, err)
		return
	}
	for _, p := range sf.final(&acc) {
		if err := sse.Data(p); err != nil {
			lg.end(http.StatusOK, err)
			return
		}
	}
	_ = sse.Done()
	lg.end(http.StatusOK, nil)
}
