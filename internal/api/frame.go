package api

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// FrameKind tags the two shapes a response unit can take.
type FrameKind int

const (
	// Structured frames hold a valid JSON document forwarded as-is.
	Structured FrameKind = iota
	// RawText frames hold upstream output that was not JSON.
	RawText
)

// Frame is one unit of a response: either a JSON document or raw text
// that failed to parse. Raw text is written as {"response": "<text>"}.
type Frame struct {
	Kind FrameKind
	JSON json.RawMessage
	Text string
}

// DecodeFrame tries to parse line as JSON and falls back to raw text.
func DecodeFrame(line []byte) Frame {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return Frame{Kind: Structured, JSON: append(json.RawMessage(nil), trimmed...)}
	}
	return Frame{Kind: RawText, Text: string(trimmed)}
}

// EnvelopeFrame wraps an envelope in a structured frame.
func EnvelopeFrame(env Envelope) Frame {
	// Envelope holds only strings, bools and a time, so Marshal cannot fail.
	data, _ := json.Marshal(env)
	return Frame{Kind: Structured, JSON: data}
}

// Done reports whether the frame is a terminal unit.
func (f Frame) Done() bool {
	return f.Kind == Structured && gjson.GetBytes(f.JSON, "done").Bool()
}

// Content returns message.content of a structured frame.
func (f Frame) Content() string {
	if f.Kind != Structured {
		return ""
	}
	return gjson.GetBytes(f.JSON, "message.content").String()
}

// MarshalJSON implements json.Marshaler.
func (f Frame) MarshalJSON() ([]byte, error) {
	if f.Kind == Structured {
		return f.JSON, nil
	}
	return json.Marshal(struct {
		Response string `json:"response"`
	}{f.Text})
}

// FrameWriter receives response frames in the order they were produced.
type FrameWriter interface {
	WriteFrame(f Frame) error
}
