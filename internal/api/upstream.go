package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"syscall"

	"github.com/tidwall/gjson"
)

// maxErrorBody bounds how much of an upstream error body is read.
const maxErrorBody = 64 << 10

// IsConnRefused reports whether err means nothing is listening upstream.
func IsConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// IsConnReset reports whether the upstream dropped the connection before
// or while answering.
func IsConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// ErrorDetail extracts a human readable message from an upstream error body.
// It understands {"error": "..."}, {"error": {"message": "..."}} and {"message": "..."}.
func ErrorDetail(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message"} {
			r := gjson.GetBytes(body, path)
			if r.Exists() && r.Type == gjson.String && r.String() != "" {
				return r.String()
			}
		}
		if r := gjson.GetBytes(body, "error"); r.Exists() {
			return r.Raw
		}
	}
	return strings.TrimSpace(string(body))
}

// ReadErrorBody reads a bounded error body and returns its detail, falling
// back to the status text.
func ReadErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if detail := ErrorDetail(body); detail != "" {
		return detail
	}
	return http.StatusText(resp.StatusCode)
}
