package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusError_Error(t *testing.T) {
	err := &StatusError{
		StatusCode:   404,
		ErrorMessage: "not found",
	}
	if err.Error() != "not found" {
		t.Errorf("Expected 'not found', got '%s'", err.Error())
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  *StatusError
		code int
		kind ErrorKind
	}{
		{"model not found", ErrModelNotFound("gpt-4", "remote backend"), http.StatusNotFound, KindModelNotFound},
		{"unavailable", ErrBackendUnavailable("Local backend unavailable"), http.StatusServiceUnavailable, KindBackendUnavailable},
		{"protocol violation", ErrProtocolViolation("no choices"), http.StatusInternalServerError, KindProtocolViolation},
		{"upstream", ErrUpstream("boom"), http.StatusInternalServerError, KindUpstream},
		{"bad request", ErrBadRequest("model is required"), http.StatusBadRequest, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.StatusCode)
			assert.Equal(t, tt.kind, tt.err.Kind)

			wrapped := fmt.Errorf("forward: %w", tt.err)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, `Model "X" not found on remote backend`, ErrModelNotFound("X", "remote backend").Error())
}

func TestStatusError_JSON(t *testing.T) {
	data, err := json.Marshal(ErrBackendUnavailable("Local backend unavailable"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Local backend unavailable"}`, string(data))
}

func TestEmbeddingsRequest_Routed(t *testing.T) {
	yes := true
	req := &EmbeddingsRequest{Model: "nomic-embed-text", Prompt: "queen", Stream: &yes}

	routed := req.Routed()
	assert.Equal(t, "nomic-embed-text", routed.Model)
	assert.Equal(t, Embeddings, routed.Capability)
	assert.True(t, routed.Streaming())
	assert.Empty(t, routed.Messages)
}

func TestMessage_ContentPassesThrough(t *testing.T) {
	body := `{"model":"gpt-4o","messages":[{"role":"developer","content":"be brief"},{"role":"user","content":[{"type":"text","text":"hi"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AA=="}}]}]}`

	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "developer", req.Messages[0].Role)
	assert.IsType(t, []any{}, req.Messages[1].Content)
}

func TestStreaming(t *testing.T) {
	yes, no := true, false
	assert.True(t, (&ChatRequest{Stream: &yes}).Streaming())
	assert.False(t, (&ChatRequest{Stream: &no}).Streaming())
	assert.False(t, (&ChatRequest{}).Streaming())
}

func TestEnvelope_JSON(t *testing.T) {
	data, err := json.Marshal(NewEnvelope("gpt-4", "Hello", false))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "gpt-4", decoded["model"])
	assert.Equal(t, false, decoded["done"])
	assert.Equal(t, map[string]any{"role": "assistant", "content": "Hello"}, decoded["message"])
	assert.NotEmpty(t, decoded["created_at"])

	data, err = json.Marshal(TerminalEnvelope("gpt-4"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "message")
	assert.Contains(t, string(data), `"done":true`)
}
