package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"modelgw/internal/generation"
	"modelgw/internal/manager"
	"modelgw/pkg/types"
)

type mockService struct {
	models    []types.Model
	status    types.StatusResponse
	ready     bool
	results   []generation.Result
	streamErr error
	// errAfter > 0 fails the stream after that many results
	errAfter int
	got      manager.Request
}

func (m *mockService) ListModels() []types.Model { return append([]types.Model(nil), m.models...) }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool { return m.ready }

func (m *mockService) Model(id string) (types.Model, error) {
	for _, mdl := range m.models {
		if mdl.ID == id {
			return mdl, nil
		}
	}
	return types.Model{}, manager.ErrModelNotFound(id)
}

func (m *mockService) ResolveModel(id string) (types.Model, error) {
	if id == "" && len(m.models) > 0 {
		return m.models[0], nil
	}
	return m.Model(id)
}

func (m *mockService) Stream(ctx context.Context, req manager.Request, emit func(generation.Result) error) error {
	m.got = req
	if m.streamErr != nil && m.errAfter == 0 {
		return m.streamErr
	}
	for i, r := range m.results {
		if m.streamErr != nil && i == m.errAfter {
			return m.streamErr
		}
		if err := emit(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockService) Complete(ctx context.Context, req manager.Request) (generation.Result, error) {
	var acc generation.Accumulator
	if err := m.Stream(ctx, req, func(r generation.Result) error { acc.Add(r); return nil }); err != nil {
		return generation.Result{}, err
	}
	return acc.Result()
}

func helloResults() []generation.Result {
	return []generation.Result{
		{GeneratedText: generation.Ptr("Hel"), NumInputTokens: generation.Ptr(4), NumGeneratedTokens: generation.Ptr(1), Timestamp: 1},
		{GeneratedText: generation.Ptr("lo"), NumGeneratedTokens: generation.Ptr(1), Timestamp: 2},
		{GeneratedText: generation.Ptr(""), FinishReason: generation.Ptr(generation.FinishStop), Timestamp: 3},
	}
}

func newMockService() *mockService {
	return &mockService{models: []types.Model{{ID: "m1", OwnedBy: "acme"}, {ID: "m2"}}, ready: true, results: helloResults()}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// sseData returns the payload of every "data:" line.
func sseData(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

func TestModelsHandler(t *testing.T) {
	r := NewMux(newMockService())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") { t.Fatalf("content-type=%s", ct) }
	var body types.ModelList
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Object != "list" || len(body.Data) != 2 || body.Data[0].OwnedBy != "acme" || body.Data[1].OwnedBy != "llmonray" {
		t.Fatalf("body=%+v", body)
	}
}

func TestModelHandler(t *testing.T) {
	r := NewMux(newMockService())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models/m2", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"m2"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models/missing", nil))
	if w.Code != http.StatusNotFound { t.Fatalf("status=%d", w.Code) }
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil { t.Fatalf("json: %v", err) }
	if e.Object != "error" || e.Type != "NotFoundError" || e.Code != http.StatusNotFound {
		t.Fatalf("envelope=%+v", e)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := newMockService()
	svc.status = types.StatusResponse{Backend: "echo", GenerationsTotal: 3}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Backend != "echo" || body.GenerationsTotal != 3 { t.Fatalf("unexpected body: %+v", body) }
}

func TestHealthAndReady(t *testing.T) {
	svc := newMockService()
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK { t.Fatalf("healthz=%d", w.Code) }
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK { t.Fatalf("readyz=%d", w.Code) }
	svc.ready = false
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable { t.Fatalf("readyz=%d", w.Code) }
}

func TestCompletions_JSON(t *testing.T) {
	svc := newMockService()
	w := postJSON(t, NewMux(svc), "/v1/completions", `{"model":"m2","prompt":"Say {instruction}","stop":"\n","temperature":0.2}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	var body types.CompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Object != "text_completion" || body.Model != "m2" || body.Choices[0].Text != "Hello" || *body.Choices[0].FinishReason != "stop" {
		t.Fatalf("body=%+v", body)
	}
	if body.Usage == nil || body.Usage.PromptTokens != 4 || body.Usage.CompletionTokens != 2 || body.Usage.TotalTokens != 6 {
		t.Fatalf("usage=%+v", body.Usage)
	}
	if svc.got.Prompt.UseTemplate || svc.got.Prompt.Text != "Say {instruction}" || svc.got.Prompt.IsChat() {
		t.Fatalf("completions must send the raw prompt: %+v", svc.got.Prompt)
	}
	if svc.got.Params.MaxTokens != types.DefaultCompletionMaxTokens || len(svc.got.Params.Stop) != 1 || *svc.got.Params.Temperature != 0.2 {
		t.Fatalf("params=%+v", svc.got.Params)
	}
}

func TestChatCompletions_JSON(t *testing.T) {
	svc := newMockService()
	w := postJSON(t, NewMux(svc), "/v1/chat/completions", `{"messages":[{"role":"system","content":"s"},{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	var body types.ChatCompletion
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Object != "chat.completion" || body.Model != "m1" || body.Choices[0].Message.Content != "Hello" || body.Choices[0].Message.Role != "assistant" {
		t.Fatalf("body=%+v", body)
	}
	if !svc.got.Prompt.IsChat() || len(svc.got.Prompt.Messages) != 2 || svc.got.Model != "m1" {
		t.Fatalf("request=%+v", svc.got)
	}
	if svc.got.Params.MaxTokens != 0 {
		t.Fatalf("chat leaves max_tokens to the worker: %d", svc.got.Params.MaxTokens)
	}
}

func TestChatCompletions_Stream(t *testing.T) {
	w := postJSON(t, NewMux(newMockService()), "/v1/chat/completions", `{"model":"m1","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" { t.Fatalf("content-type=%s", ct) }
	data := sseData(t, w.Body.String())
	// role, "Hel", "lo", final, [DONE]
	if len(data) != 5 || data[4] != "[DONE]" {
		t.Fatalf("events=%v", data)
	}
	var chunks []types.ChatCompletionChunk
	for _, d := range data[:4] {
		var c types.ChatCompletionChunk
		if err := json.Unmarshal([]byte(d), &c); err != nil { t.Fatalf("chunk %s: %v", d, err) }
		chunks = append(chunks, c)
	}
	if _, ok := chunks[0].Choices[0].Delta.(types.DeltaRole); !ok {
		t.Fatalf("first delta=%#v", chunks[0].Choices[0].Delta)
	}
	var text strings.Builder
	for _, c := range chunks[1:3] {
		text.WriteString(c.Choices[0].Delta.(types.DeltaContent).Content)
		if c.ID != chunks[0].ID || c.Object != "chat.completion.chunk" {
			t.Fatalf("chunk envelope=%+v", c)
		}
	}
	if text.String() != "Hello" { t.Fatalf("text=%q", text.String()) }
	last := chunks[3].Choices[0]
	if _, ok := last.Delta.(types.DeltaEOS); !ok || last.FinishReason == nil || *last.FinishReason != "stop" {
		t.Fatalf("final=%+v", last)
	}
	if !strings.Contains(data[3], `"delta":{}`) { t.Fatalf("final chunk json=%s", data[3]) }
}

func TestCompletions_Stream(t *testing.T) {
	w := postJSON(t, NewMux(newMockService()), "/v1/completions", `{"model":"m1","prompt":"p","stream":true}`)
	data := sseData(t, w.Body.String())
	// "Hel", "lo", finish chunk, [DONE]
	if len(data) != 4 || data[3] != "[DONE]" {
		t.Fatalf("events=%v", data)
	}
	var last types.CompletionResponse
	if err := json.Unmarshal([]byte(data[2]), &last); err != nil { t.Fatalf("json: %v", err) }
	if *last.Choices[0].FinishReason != "stop" || last.Usage == nil || last.Usage.CompletionTokens != 2 {
		t.Fatalf("last=%+v", last)
	}
	var first types.CompletionResponse
	_ = json.Unmarshal([]byte(data[0]), &first)
	if first.Choices[0].Text != "Hel" || first.Choices[0].FinishReason != nil || first.Usage != nil {
		t.Fatalf("first=%+v", first)
	}
}

func TestRequestValidation(t *testing.T) {
	r := NewMux(newMockService())
	cases := []struct {
		path, body string
		want       int
	}{
		{"/v1/completions", "not-json", http.StatusBadRequest},
		{"/v1/completions", `{"prompt":"p","n":2}`, http.StatusBadRequest},
		{"/v1/completions", `{"prompt":"p","best_of":3}`, http.StatusBadRequest},
		{"/v1/completions", `{"prompt":"p","stop":5}`, http.StatusBadRequest},
		{"/v1/chat/completions", `{"messages":[]}`, http.StatusBadRequest},
		{"/v1/chat/completions", `{"messages":[{"role":"tool","content":"x"}]}`, http.StatusBadRequest},
		{"/v1/chat/completions", `{"model":"nope","messages":[{"role":"user","content":"x"}]}`, http.StatusNotFound},
	}
	for _, c := range cases {
		w := postJSON(t, r, c.path, c.body)
		if w.Code != c.want {
			t.Fatalf("%s %s: status=%d want %d body=%s", c.path, c.body, w.Code, c.want, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"object":"error"`) {
			t.Fatalf("error envelope missing: %s", w.Body.String())
		}
	}
}

func TestUnsupportedMediaType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/completions", bytes.NewBufferString(`{"prompt":"p"}`))
	w := httptest.NewRecorder()
	NewMux(newMockService()).ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(w.Body.String(), `"type":"UnsupportedMediaTypeError"`) { t.Fatalf("body=%s", w.Body.String()) }
}

func TestBodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	w := postJSON(t, NewMux(newMockService()), "/v1/completions", `{"prompt":"this body is longer than sixteen bytes"}`)
	if w.Code != http.StatusRequestEntityTooLarge { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(w.Body.String(), `"type":"RequestTooLargeError"`) { t.Fatalf("body=%s", w.Body.String()) }
}

func TestUnknownRoute(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(newMockService()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v2/nothing", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"type":"NotFoundError"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestErrorTypes(t *testing.T) {
	cases := map[int]string{
		http.StatusBadRequest:          "InvalidRequestError",
		http.StatusMethodNotAllowed:    "MethodNotAllowedError",
		http.StatusTooManyRequests:     "TooManyRequestsError",
		http.StatusServiceUnavailable:  "ServiceUnavailableError",
		http.StatusGatewayTimeout:      "TimeoutError",
		http.StatusInternalServerError: "InternalServerError",
	}
	for status, want := range cases {
		if got := errorType(status); got != want {
			t.Fatalf("errorType(%d)=%s want %s", status, got, want)
		}
	}
	w := postJSON(t, NewMux(newMockService()), "/v1/completions", `{"prompt":"p","n":2}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"type":"InvalidRequestError"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestChatStreamWithoutResultsAnnouncesRole(t *testing.T) {
	svc := newMockService()
	svc.results = nil
	w := postJSON(t, NewMux(svc), "/v1/chat/completions", `{"messages":[{"role":"user","content":"hi"}],"stream":true}`)
	data := sseData(t, w.Body.String())
	if len(data) != 3 || data[2] != "[DONE]" {
		t.Fatalf("events=%v", data)
	}
	if !strings.Contains(data[0], `"delta":{"role":"assistant"}`) {
		t.Fatalf("first chunk must announce the role: %s", data[0])
	}
	if !strings.Contains(data[1], `"delta":{}`) || !strings.Contains(data[1], `"finish_reason":"stop"`) {
		t.Fatalf("final chunk=%s", data[1])
	}
}
