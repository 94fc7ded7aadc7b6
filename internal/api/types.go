package api

import "time"

// Capability is the kind of work a request asks for.
type Capability string

const (
	Chat       Capability = "chat"
	Embeddings Capability = "embeddings"
)

// ChatRequest represents an incoming chat request. Only the fields the
// gateway routes on are modeled; the raw body is what gets forwarded.
type ChatRequest struct {
	Model    string         `binding:"required"            json:"model"`
	Messages []Message      `binding:"required,min=1,dive" json:"messages"`
	Stream   *bool          `json:"stream,omitempty"`
	Options  map[string]any `json:"options,omitempty"`

	// Capability is set from the inbound route, not the body.
	Capability Capability `json:"-"`
}

// Message represents a single inbound chat message. Content is left
// untyped so text, multimodal parts and tool payloads all pass through.
type Message struct {
	Role    string `binding:"required" json:"role"`
	Content any    `json:"content,omitempty"`
}

// EmbeddingsRequest represents an incoming embeddings request.
type EmbeddingsRequest struct {
	Model  string `binding:"required" json:"model"`
	Prompt string `binding:"required" json:"prompt"`
	Stream *bool  `json:"stream,omitempty"`
}

// Routed returns the request as seen by the router and the adapters.
func (r *EmbeddingsRequest) Routed() *ChatRequest {
	return &ChatRequest{Model: r.Model, Stream: r.Stream, Capability: Embeddings}
}

// Streaming reports whether the caller asked for a streamed response.
// A missing stream field means a single JSON document.
func (r *ChatRequest) Streaming() bool {
	return r.Stream != nil && *r.Stream
}

// Envelope is the unified response unit written to callers.
// Message is omitted on the bare terminal unit that closes a remote stream.
type Envelope struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   *Reply    `json:"message,omitempty"`
	Done      bool      `json:"done"`
}

// Reply is the assistant message carried by an envelope.
type Reply struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NoContent is reported when a backend produced nothing usable.
const NoContent = "No content returned"

// NewEnvelope wraps assistant content for model.
func NewEnvelope(model, content string, done bool) Envelope {
	return Envelope{
		Model:     model,
		CreatedAt: time.Now().UTC(),
		Message:   &Reply{Role: "assistant", Content: content},
		Done:      done,
	}
}

// TerminalEnvelope closes a stream without adding content.
func TerminalEnvelope(model string) Envelope {
	return Envelope{
		Model:     model,
		CreatedAt: time.Now().UTC(),
		Done:      true,
	}
}

// ErrorEnvelope reports err as the final unit of an already started stream.
func ErrorEnvelope(model string, err error) Envelope {
	return NewEnvelope(model, err.Error(), true)
}

// VersionResponse for /api/version endpoint
type VersionResponse struct {
	Version string `json:"version"`
}
