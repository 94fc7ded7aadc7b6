package server

import (
	"encoding/json"
	"net/http"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/chew-z/bypass-proxy/internal/metrics"
	"github.com/chew-z/bypass-proxy/internal/router"
	"github.com/gin-gonic/gin"
)

// streamWriter writes frames as newline-delimited JSON. Headers are sent
// with the first frame, so an error before it can still become an HTTP
// status.
type streamWriter struct {
	c       *gin.Context
	backend router.Backend
	metrics *metrics.Metrics
	started bool
}

func newStreamWriter(c *gin.Context, backend router.Backend, m *metrics.Metrics) *streamWriter {
	return &streamWriter{c: c, backend: backend, metrics: m}
}

// WriteFrame implements api.FrameWriter.
func (w *streamWriter) WriteFrame(f api.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	if !w.started {
		w.c.Header("Content-Type", "application/x-ndjson")
		w.c.Status(http.StatusOK)
		w.started = true
	}

	if _, err := w.c.Writer.Write(append(data, '\n')); err != nil {
		return err
	}
	w.c.Writer.Flush()
	w.metrics.RecordFrame(string(w.backend))
	return nil
}

// Started reports whether any frame has been written.
func (w *streamWriter) Started() bool {
	return w.started
}
