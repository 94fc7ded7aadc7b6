package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	backendName = "local backend"

	// maxLineBytes bounds a single NDJSON line; embedding vectors can be large.
	maxLineBytes = 8 << 20
)

// Adapter forwards requests to the local inference server and re-frames
// its NDJSON output.
type Adapter struct {
	baseURL string
	client  *http.Client
}

// New creates a local adapter for the server at baseURL.
func New(baseURL string, client *http.Client) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the backend name used in logs and error messages.
func (a *Adapter) Name() string { return backendName }

func endpointPath(capability api.Capability) string {
	if capability == api.Embeddings {
		return "/api/embeddings"
	}
	return "/api/chat"
}

// Stream forwards req and writes every upstream unit to w as soon as it is
// complete. Errors before the first frame are returned so the caller can
// still answer with an HTTP status; later errors end the stream with an
// error envelope and are returned too. The stream always ends with exactly
// one terminal unit.
func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest, body []byte, w api.FrameWriter) error {
	resp, err := a.do(ctx, req, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	written, done, err := forward(resp.Body, req.Model, w)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), written == 0:
			return err
		case done:
			return nil
		}
		if werr := w.WriteFrame(api.EnvelopeFrame(api.ErrorEnvelope(req.Model, err))); werr != nil {
			return werr
		}
		return err
	}

	switch {
	case written == 0:
		return w.WriteFrame(api.EnvelopeFrame(api.NewEnvelope(req.Model, api.NoContent, true)))
	case !done:
		return w.WriteFrame(api.EnvelopeFrame(api.TerminalEnvelope(req.Model)))
	}
	return nil
}

// Collect forwards req and returns the whole upstream response as one frame.
func (a *Adapter) Collect(ctx context.Context, req *api.ChatRequest, body []byte) (api.Frame, error) {
	resp, err := a.do(ctx, req, body)
	if err != nil {
		return api.Frame{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return api.Frame{}, err
		}
		slog.Error("Local backend response failed", "model", req.Model, "error", err)
		return api.Frame{}, api.ErrUpstream("Error processing local backend response")
	}
	return collect(req.Model, data), nil
}

func (a *Adapter) do(ctx context.Context, req *api.ChatRequest, body []byte) (*http.Response, error) {
	url := a.baseURL + endpointPath(req.Capability)
	slog.Debug("Forwarding to local backend", "url", url, "model", req.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.ErrInternalServer("Failed to create local backend request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, transportError(req.Model, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(req.Model, resp)
	}
	return resp, nil
}

// transportError maps a failed round trip. A dropped connection is reported
// as a missing model: Ollama closes the socket when it cannot load one.
func transportError(model string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case api.IsConnRefused(err):
		slog.Error("Local backend unavailable", "error", err)
		return api.ErrBackendUnavailable("Local backend unavailable")
	case api.IsConnReset(err):
		slog.Error("Local backend dropped the connection", "model", model, "error", err)
		return api.ErrModelNotFound(model, backendName+" or server error")
	default:
		slog.Error("Local backend request failed", "model", model, "error", err)
		return api.ErrUpstream(fmt.Sprintf("Error forwarding to %s: %v", backendName, err))
	}
}

func statusError(model string, resp *http.Response) error {
	detail := api.ReadErrorBody(resp)
	slog.Error("Local backend error", "status", resp.StatusCode, "error", detail)

	if resp.StatusCode == http.StatusNotFound || strings.Contains(detail, "model") {
		return api.ErrModelNotFound(model, backendName)
	}
	return api.ErrUpstream("Local backend error: " + detail)
}

// forward splits r into lines and writes each non-blank line as a frame.
// Partial lines are held by the scanner until their newline arrives.
// Units after the first terminal one are dropped.
func forward(r io.Reader, model string, w api.FrameWriter) (written int, done bool, err error) {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if done {
			slog.Debug("Dropping local unit after terminal unit", "model", model)
			continue
		}
		frame := api.DecodeFrame(line)
		if err := w.WriteFrame(frame); err != nil {
			return written, done, err
		}
		written++
		done = frame.Done()
	}
	if err := scanner.Err(); err != nil {
		slog.Error("Local backend stream failed", "model", model, "error", err)
		if errors.Is(err, context.Canceled) {
			return written, done, err
		}
		return written, done, api.ErrUpstream("Error processing local backend response")
	}
	return written, done, nil
}

// collect turns a whole buffered body into one frame. A single JSON
// document is returned untouched; NDJSON chat units (Ollama streams when
// "stream" is absent) are merged into the last unit.
func collect(model string, data []byte) api.Frame {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return api.EnvelopeFrame(api.NewEnvelope(model, api.NoContent, true))
	}
	if json.Valid(trimmed) {
		return api.DecodeFrame(trimmed)
	}
	if merged, ok := mergeChatUnits(trimmed); ok {
		return merged
	}
	return api.Frame{Kind: api.RawText, Text: string(trimmed)}
}

func mergeChatUnits(data []byte) (api.Frame, bool) {
	var (
		content strings.Builder
		last    api.Frame
		units   int
	)
	scanner := newLineScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		frame := api.DecodeFrame(line)
		if frame.Kind != api.Structured || !gjson.GetBytes(frame.JSON, "message").IsObject() {
			return api.Frame{}, false
		}
		content.WriteString(frame.Content())
		last = frame
		units++
	}
	if scanner.Err() != nil || units == 0 {
		return api.Frame{}, false
	}

	out, err := sjson.SetBytes(last.JSON, "message.content", content.String())
	if err != nil {
		return api.Frame{}, false
	}
	if out, err = sjson.SetBytes(out, "done", true); err != nil {
		return api.Frame{}, false
	}
	return api.Frame{Kind: api.Structured, JSON: out}, true
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
