package server

import "time"

// HTTPError is the unified JSON error body.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthLoginRequest is the login payload for the shared-password scheme.
type AuthLoginRequest struct {
	Password string `json:"password"`
}

// TokenResponse carries the issued JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// CreateChatRequest starts a new conversation.
type CreateChatRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

// ChatSummary is the listing view of a chat.
type ChatSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastUpdated time.Time `json:"last_updated"`
}

// PostMessageRequest sends one user message into a chat.
type PostMessageRequest struct {
	Message string `json:"message"`
}

// RenameChatRequest renames a chat. With an empty title the server asks the
// model for one based on the chat opener.
type RenameChatRequest struct {
	Title string `json:"title"`
}

// StreamChunk is one NDJSON line of the streamed chat response.
type StreamChunk struct {
	Content string `json:"content"`
}
