package ollama_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novachat/nova/provider"
)

func TestCompleteSendsChatRequest(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"message": {"role": "assistant", "content": "hello"}, "done": true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	out, err := c.Complete(context.Background(), []provider.Message{{Role: "user", Content: "hi"}}, provider.Options{
		Model:       "qwen2.5",
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("unexpected content: %q", out)
	}
	if got.Model != "qwen2.5" || got.Stream {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Format != "json" {
		t.Fatalf("json mode not requested: %+v", got)
	}
	if temp, ok := got.Options["temperature"].(float64); !ok || temp != 0.3 {
		t.Fatalf("temperature not forwarded: %+v", got.Options)
	}
}

func TestCompleteModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "model not found"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Complete(context.Background(), nil, provider.Options{Model: "nope"}); err == nil {
		t.Fatalf("expected model error")
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Complete(context.Background(), nil, provider.Options{}); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestStreamChatYieldsChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Errorf("stream flag not set")
		}
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "Hel"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "lo"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": ""}, "done": true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	stream, err := c.StreamChat(context.Background(), []provider.Message{{Role: "user", Content: "hi"}}, provider.Options{Model: "qwen2.5"})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	defer stream.Close()

	var out string
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		out += fragment
	}
	if out != "Hello" {
		t.Fatalf("unexpected streamed content: %q", out)
	}
}

func TestStreamChatMidStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "part"}, "done": false}`)
		fmt.Fprintln(w, `{"error": "model crashed"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	stream, err := c.StreamChat(context.Background(), nil, provider.Options{})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	defer stream.Close()

	if fragment, err := stream.Recv(); err != nil || fragment != "part" {
		t.Fatalf("first chunk: %q, %v", fragment, err)
	}
	if _, err := stream.Recv(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected mid-stream error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"models": []}`)
	}))
	c := NewClient(srv.URL, 5*time.Second)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	srv.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected error when server is down")
	}
}
