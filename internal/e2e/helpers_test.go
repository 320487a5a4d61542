package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"modelgw/internal/backend"
	"modelgw/internal/httpapi"
	"modelgw/internal/manager"
	"modelgw/internal/registry"
)

const llamaYAML = `id: llama-2-7b-chat-hf
worker_model: meta-llama/Llama-2-7b-chat-hf
prompt_format:
  system: "<<SYS>>\n{instruction}\n<</SYS>>\n\n"
  assistant: " {instruction} </s><s> "
  user: "[INST] {system}{instruction} [/INST]"
  system_in_user: true
`

// createTempModelsDir writes the llama descriptor into a temporary models directory.
func createTempModelsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "llama.yaml"), []byte(llamaYAML), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return dir
}

// workerCall is one /v1/completions request seen by the fake worker.
type workerCall struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// fakeWorker is an OpenAI-compatible completions endpoint streaming words.
type fakeWorker struct {
	srv     *httptest.Server
	calls   chan workerCall
	release chan struct{} // when non-nil, each request blocks until closed
	words   []string
}

func newFakeWorker(t *testing.T, words ...string) *fakeWorker {
	t.Helper()
	fw := &fakeWorker{calls: make(chan workerCall, 16), words: words}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/completions", fw.handle)
	fw.srv = httptest.NewServer(mux)
	t.Cleanup(fw.srv.Close)
	return fw
}

func (fw *fakeWorker) handle(w http.ResponseWriter, r *http.Request) {
	var c workerCall
	_ = json.NewDecoder(r.Body).Decode(&c)
	fw.calls <- c
	if fw.release != nil {
		select {
		case <-fw.release:
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "text/event-stream")
	for i, word := range fw.words {
		choice := map[string]any{"text": word, "index": 0, "finish_reason": nil}
		if i == len(fw.words)-1 {
			choice["finish_reason"] = "stop"
		}
		msg := map[string]any{"id": "cmpl-1", "object": "text_completion", "created": 1, "model": c.Model, "choices": []any{choice}}
		if i == 0 {
			msg["usage"] = map[string]any{"prompt_tokens": 7, "completion_tokens": 0, "total_tokens": 7}
		}
		b, _ := json.Marshal(msg)
		_, _ = io.WriteString(w, "data: "+string(b)+"\n\n")
		w.(http.Flusher).Flush()
	}
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
}

// newGateway wires registry, OpenAI worker adapter, manager and HTTP API.
func newGateway(t *testing.T, workerURL string, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	reg, err := registry.LoadDir(createTempModelsDir(t))
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	cfg.Registry = reg
	cfg.BackendName = "openai"
	cfg.Adapter = backend.NewOpenAIWorker(backend.OpenAIWorkerConfig{
		BaseURL:        workerURL,
		RequestTimeout: 5 * time.Second,
		ConnectTimeout: time.Second,
	})
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "llama-2-7b-chat-hf"
	}
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil { t.Fatalf("new req: %v", err) }
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil { t.Fatalf("new req: %v", err) }
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// sseData returns the data payloads of an event stream body.
func sseData(body []byte) []string {
	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}
