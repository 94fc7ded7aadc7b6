package api

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"ollama style", `{"error":"model 'llama9' not found, try pulling it first"}`, "model 'llama9' not found, try pulling it first"},
		{"openai style", `{"error":{"message":"Invalid model","code":400}}`, "Invalid model"},
		{"message only", `{"message":"rate limited"}`, "rate limited"},
		{"error object without message", `{"error":{"code":502}}`, `{"code":502}`},
		{"plain text", "  upstream exploded \n", "upstream exploded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorDetail([]byte(tt.body)))
		})
	}
}

func TestReadErrorBody_FallsBackToStatusText(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusBadGateway)
	assert.Equal(t, "Bad Gateway", ReadErrorBody(rec.Result()))
}

func TestConnErrors(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	reset := &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}

	assert.True(t, IsConnRefused(fmt.Errorf("post: %w", refused)))
	assert.False(t, IsConnRefused(reset))

	assert.True(t, IsConnReset(reset))
	assert.True(t, IsConnReset(fmt.Errorf("post: %w", io.EOF)))
	assert.True(t, IsConnReset(io.ErrUnexpectedEOF))
	assert.False(t, IsConnReset(refused))
	assert.False(t, IsConnReset(errors.New("tls handshake timeout")))
}
