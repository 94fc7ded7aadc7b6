package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/chew-z/bypass-proxy/internal/models"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	backendName = "remote backend"

	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	maxEventBytes = 1 << 20
)

// Adapter forwards chat requests to an OpenAI-style completion service and
// translates its responses into envelopes.
type Adapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a remote adapter. apiKey is sent as a bearer token.
func New(baseURL, apiKey string, client *http.Client) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// Name returns the backend name used in logs and error messages.
func (a *Adapter) Name() string { return backendName }

// streamState accumulates one streamed response.
type streamState struct {
	content   strings.Builder
	deltas    int
	completed bool
}

// Stream forwards req in streaming mode and writes one envelope per content
// delta. Every outcome, including upstream errors, ends with exactly one
// terminal envelope on w. An upstream error is returned after it has been
// written as that envelope.
func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest, body []byte, w api.FrameWriter) error {
	resp, err := a.do(ctx, req, body, true)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fail(w, req.Model, err)
	}
	defer resp.Body.Close()

	state := &streamState{}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))

		if payload == doneSentinel {
			state.completed = true
			break
		}
		if !gjson.Valid(payload) {
			slog.Warn("Skipping malformed stream event", "model", req.Model, "payload", payload)
			continue
		}

		event := gjson.Parse(payload)
		if errEvent := event.Get("error"); errEvent.Exists() && errEvent.Type != gjson.Null {
			detail := api.ErrorDetail([]byte(payload))
			slog.Error("Remote backend stream error", "model", req.Model, "error", detail)
			return fail(w, req.Model, api.ErrUpstream("Remote backend error: "+detail))
		}

		delta := event.Get("choices.0.delta")
		if !delta.Exists() {
			continue
		}
		content := delta.Get("content").String()
		state.content.WriteString(content)
		state.deltas++

		if err := w.WriteFrame(api.EnvelopeFrame(api.NewEnvelope(req.Model, content, false))); err != nil {
			return err
		}
	}

	if !state.completed {
		if err := scanner.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			slog.Error("Remote backend stream failed", "model", req.Model, "error", err)
			return fail(w, req.Model, api.ErrBackendUnavailable("Remote backend unavailable"))
		}
		slog.Warn("Remote stream ended without [DONE]", "model", req.Model, "deltas", state.deltas)
	}

	slog.Debug("Remote stream finished", "model", req.Model, "deltas", state.deltas, "chars", state.content.Len())
	return w.WriteFrame(api.EnvelopeFrame(api.TerminalEnvelope(req.Model)))
}

// fail writes err as the terminal envelope and returns it.
func fail(w api.FrameWriter, model string, err error) error {
	if werr := w.WriteFrame(api.EnvelopeFrame(api.ErrorEnvelope(model, err))); werr != nil {
		return werr
	}
	return err
}

type completion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete forwards req in buffered mode and returns one terminal envelope.
func (a *Adapter) Complete(ctx context.Context, req *api.ChatRequest, body []byte) (api.Envelope, error) {
	resp, err := a.do(ctx, req, body, false)
	if err != nil {
		return api.Envelope{}, err
	}
	defer resp.Body.Close()

	var out completion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(err, context.Canceled) {
			return api.Envelope{}, err
		}
		slog.Error("Remote backend returned an unreadable body", "model", req.Model, "error", err)
		return api.Envelope{}, api.ErrProtocolViolation("Invalid JSON in remote backend response")
	}
	if len(out.Choices) == 0 {
		return api.Envelope{}, api.ErrProtocolViolation("No valid choices in remote backend response")
	}

	content := out.Choices[0].Message.Content
	if content == "" {
		content = api.NoContent
	}
	return api.NewEnvelope(req.Model, content, true), nil
}

// ListModels fetches the remote model catalog.
func (a *Adapter) ListModels(ctx context.Context) (models.RemoteModelList, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return models.RemoteModelList{}, fmt.Errorf("construct request: %w", err)
	}
	a.setHeaders(httpReq)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return models.RemoteModelList{}, fmt.Errorf("list remote models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.RemoteModelList{}, fmt.Errorf("list remote models: status %d: %s", resp.StatusCode, api.ReadErrorBody(resp))
	}

	var list models.RemoteModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return models.RemoteModelList{}, fmt.Errorf("decode remote models: %w", err)
	}
	return list, nil
}

// translate rewrites the inbound body for the remote backend: the model
// loses its ":latest" tag and the stream flag is set or removed.
func translate(req *api.ChatRequest, body []byte, stream bool) ([]byte, error) {
	out, err := sjson.SetBytes(body, "model", models.StripTag(req.Model))
	if err != nil {
		return nil, err
	}
	if stream {
		return sjson.SetBytes(out, "stream", true)
	}
	return sjson.DeleteBytes(out, "stream")
}

func (a *Adapter) do(ctx context.Context, req *api.ChatRequest, body []byte, stream bool) (*http.Response, error) {
	payload, err := translate(req, body, stream)
	if err != nil {
		return nil, api.ErrBadRequest("Invalid request body")
	}

	url := a.baseURL + "/chat/completions"
	slog.Debug("Forwarding to remote backend", "url", url, "model", models.StripTag(req.Model), "stream", stream)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, api.ErrInternalServer("Failed to create remote backend request")
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		slog.Error("Remote backend network error", "error", err)
		if api.IsConnRefused(err) || api.IsConnReset(err) {
			return nil, api.ErrBackendUnavailable("Remote backend unavailable")
		}
		return nil, api.ErrBackendUnavailable(fmt.Sprintf("Error forwarding to %s: %v", backendName, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		detail := api.ReadErrorBody(resp)
		slog.Error("Remote backend error", "status", resp.StatusCode, "error", detail)

		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
			return nil, api.ErrModelNotFound(req.Model, backendName)
		}
		return nil, api.ErrUpstream("Remote backend error: " + detail)
	}
	return resp, nil
}

func (a *Adapter) setHeaders(r *http.Request) {
	if a.apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
}
