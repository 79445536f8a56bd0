package provider

import "context"

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream is a pull-based token stream. Recv returns the next fragment,
// io.EOF when the stream is done, or the underlying error.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Options tune a single completion request.
type Options struct {
	Model       string
	Temperature float64
	JSONMode    bool // ask the model to emit a single JSON object
}

// Provider is the language model behind the agent. Implementations are
// injected into the planner and runner; nothing in the agent core talks
// to a model service directly.
type Provider interface {
	// Complete sends a conversation and returns the full reply.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)

	// StreamChat sends a conversation and returns a pull-based stream of
	// reply fragments.
	StreamChat(ctx context.Context, messages []Message, opts Options) (Stream, error)

	// Ping reports whether the model service is reachable.
	Ping(ctx context.Context) error
}
