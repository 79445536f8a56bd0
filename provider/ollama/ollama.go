package ollama_provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/novachat/nova/provider"
)

// client implements provider.Provider against an Ollama server.
type client struct {
	baseURL    string
	httpClient *http.Client
}

// request represents a request to the Ollama chat API
type request struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
	Format   string             `json:"format,omitempty"`
	Options  map[string]any     `json:"options,omitempty"`
}

// response represents a single (non-streamed) response from the Ollama chat API
type response struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// NewClient creates a new Ollama client
func NewClient(baseURL string, timeout time.Duration) provider.Provider {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete sends a conversation and returns the full reply
func (c *client) Complete(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	resp, err := c.send(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("model error: %s", out.Error)
	}
	return out.Message.Content, nil
}

// StreamChat sends a conversation and returns a pull-based stream over
// the NDJSON lines Ollama emits.
func (c *client) StreamChat(ctx context.Context, messages []provider.Message, opts provider.Options) (provider.Stream, error) {
	resp, err := c.send(ctx, messages, opts, true)
	if err != nil {
		return nil, err
	}
	return &chatStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

// Ping reports whether the Ollama server is reachable
func (c *client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model service returned status: %d", resp.StatusCode)
	}
	return nil
}

func (c *client) send(ctx context.Context, messages []provider.Message, opts provider.Options, stream bool) (*http.Response, error) {
	body := request{
		Model:    opts.Model,
		Messages: messages,
		Stream:   stream,
	}
	if opts.JSONMode {
		body.Format = "json"
	}
	if opts.Temperature > 0 {
		body.Options = map[string]any{"temperature": opts.Temperature}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// chatStream yields the content of each NDJSON line until done.
type chatStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *chatStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk response
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("failed to parse stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("model error: %s", chunk.Error)
		}
		if chunk.Done {
			s.done = true
			if chunk.Message.Content == "" {
				return "", io.EOF
			}
		}
		return chunk.Message.Content, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read failed: %w", err)
	}
	s.done = true
	return "", io.EOF
}

func (s *chatStream) Close() error { return s.body.Close() }
