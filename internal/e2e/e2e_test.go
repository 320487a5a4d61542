package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"modelgw/internal/manager"
	"modelgw/pkg/types"
)

func TestE2E_ChatRendersTemplateForWorker(t *testing.T) {
	fw := newFakeWorker(t, "Hello", " there")
	srv, _ := newGateway(t, fw.srv.URL+"/v1", manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions", []byte(`{"messages":[{"role":"system","content":"Be brief."},{"role":"user","content":"Hi"}]}`))
	if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d body=%s", resp.StatusCode, body) }

	call := <-fw.calls
	if call.Model != "meta-llama/Llama-2-7b-chat-hf" || !call.Stream {
		t.Fatalf("worker call=%+v", call)
	}
	if want := "[INST] <<SYS>>\nBe brief.\n<</SYS>>\n\nHi [/INST]"; call.Prompt != want {
		t.Fatalf("prompt=%q want %q", call.Prompt, want)
	}

	var chat types.ChatCompletion
	if err := json.Unmarshal(body, &chat); err != nil { t.Fatalf("decode: %v", err) }
	if chat.Model != "llama-2-7b-chat-hf" || chat.Choices[0].Message.Content != "Hello there" {
		t.Fatalf("chat=%s", body)
	}
	if *chat.Choices[0].FinishReason != "stop" || chat.Usage.PromptTokens != 7 || chat.Usage.CompletionTokens != 2 {
		t.Fatalf("finish/usage=%s", body)
	}
}

func TestE2E_CompletionStreamPassesRawPrompt(t *testing.T) {
	fw := newFakeWorker(t, "a", "b", "c")
	srv, _ := newGateway(t, fw.srv.URL+"/v1", manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/v1/completions", []byte(`{"model":"llama-2-7b-chat-hf","prompt":"raw text","stream":true}`))
	if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d body=%s", resp.StatusCode, body) }
	if call := <-fw.calls; call.Prompt != "raw text" {
		t.Fatalf("completions must not apply the prompt format: %q", call.Prompt)
	}
	events := sseData(body)
	if len(events) != 4 || events[3] != "[DONE]" {
		t.Fatalf("events=%v", events)
	}
	var text strings.Builder
	for _, e := range events[:3] {
		var c types.CompletionResponse
		if err := json.Unmarshal([]byte(e), &c); err != nil { t.Fatalf("decode %s: %v", e, err) }
		text.WriteString(c.Choices[0].Text)
	}
	if text.String() != "abc" {
		t.Fatalf("text=%q", text.String())
	}
	if !strings.Contains(events[2], `"finish_reason":"stop"`) || !strings.Contains(events[2], `"usage"`) {
		t.Fatalf("last chunk=%s", events[2])
	}
}

// TestE2E_Backpressure429 verifies we return 429 Too Many Requests when the per-model
// queue is full and the wait timeout elapses.
func TestE2E_Backpressure429(t *testing.T) {
	fw := newFakeWorker(t, "ok")
	fw.release = make(chan struct{})
	srv, _ := newGateway(t, fw.srv.URL+"/v1", manager.ManagerConfig{
		MaxQueueDepth: 1, // the in-flight request fills the queue
		MaxWait:       20 * time.Millisecond,
	})

	first := make(chan int, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/v1/completions", "application/json", strings.NewReader(`{"prompt":"one"}`))
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-fw.calls // first request is in flight at the worker

	resp, body := httpPostJSON(t, srv.URL+"/v1/completions", []byte(`{"prompt":"two"}`))
	if resp.StatusCode != http.StatusTooManyRequests { t.Fatalf("expected 429, got %d body=%s", resp.StatusCode, body) }
	if !bytes.Contains(body, []byte(`"type":"TooManyRequestsError"`)) { t.Fatalf("envelope=%s", body) }

	close(fw.release)
	if code := <-first; code != http.StatusOK {
		t.Fatalf("in-flight request status=%d", code)
	}
}

func TestE2E_WorkerDown503(t *testing.T) {
	fw := newFakeWorker(t, "x")
	url := fw.srv.URL + "/v1"
	fw.srv.Close()
	srv, mgr := newGateway(t, url, manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/v1/completions", []byte(`{"prompt":"hi"}`))
	if resp.StatusCode != http.StatusServiceUnavailable { t.Fatalf("expected 503, got %d body=%s", resp.StatusCode, body) }
	if st := mgr.Status(); st.GenerationErrorsTotal != 1 || st.LastError == "" {
		t.Fatalf("status=%+v", st)
	}
}

func TestE2E_ModelsAndDrain(t *testing.T) {
	fw := newFakeWorker(t, "x")
	srv, mgr := newGateway(t, fw.srv.URL+"/v1", manager.ManagerConfig{})

	resp, body := httpGet(t, srv.URL+"/v1/models/llama-2-7b-chat-hf")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"object":"model"`)) {
		t.Fatalf("model card %d %s", resp.StatusCode, body)
	}
	resp, _ = httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK { t.Fatalf("readyz=%d", resp.StatusCode) }

	mgr.Drain()
	resp, _ = httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable { t.Fatalf("readyz after drain=%d", resp.StatusCode) }
	resp, body = httpPostJSON(t, srv.URL+"/v1/completions", []byte(`{"prompt":"hi"}`))
	if resp.StatusCode != http.StatusTooManyRequests { t.Fatalf("expected 429 while draining, got %d body=%s", resp.StatusCode, body) }
}
