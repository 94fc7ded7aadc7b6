package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/chew-z/bypass-proxy/internal/models"
	"github.com/chew-z/bypass-proxy/internal/router"
	"github.com/gin-gonic/gin"
)

// ollamaVersion is reported to clients that check for a compatible server.
const ollamaVersion = "0.6.4"

// handleError sends a standardized error response with context-aware cancellation handling
func handleError(c *gin.Context, err error) {
	// Check for context cancellation (client disconnected)
	if errors.Is(err, context.Canceled) {
		c.JSON(499, gin.H{"error": "request canceled"})
		return
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		c.JSON(se.StatusCode, se)
		return
	}
	c.JSON(http.StatusInternalServerError, api.StatusError{ErrorMessage: err.Error()})
}

// handleRoot answers tools that ping the Ollama root to check liveness.
func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Proxy is running")
}

// handleVersion returns the API version
func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, api.VersionResponse{Version: ollamaVersion})
}

// handlePs returns running models (empty for proxy)
func (s *Server) handlePs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models": []any{},
	})
}

// handleTags returns the remote catalog in the Ollama shape
func (s *Server) handleTags(c *gin.Context) {
	list, err := s.remote.ListModels(c.Request.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			handleError(c, err)
			return
		}
		slog.Error("Failed to fetch remote models", "request_id", requestID(c), "error", err)
		handleError(c, api.ErrUpstream("Failed to fetch models from remote backend"))
		return
	}
	c.JSON(http.StatusOK, models.FromRemote(list))
}

func (s *Server) handleChat(c *gin.Context) {
	s.handleProxy(c, api.Chat)
}

func (s *Server) handleEmbeddings(c *gin.Context) {
	s.handleProxy(c, api.Embeddings)
}

// handleProxy validates the request, picks a backend and relays its answer.
// The raw body is forwarded so fields the gateway does not model survive.
func (s *Server) handleProxy(c *gin.Context, capability api.Capability) {
	start := time.Now()

	body, err := c.GetRawData()
	if err != nil {
		handleError(c, api.ErrBadRequest("Failed to read request body"))
		return
	}

	req, err := decodeRequest(body, capability)
	if err != nil {
		handleError(c, err)
		return
	}

	backend := s.route.Decide(capability, req.Model)
	s.metrics.RecordRoute(string(backend), string(capability))

	mode := "buffered"
	if req.Streaming() {
		mode = "stream"
	}
	defer s.metrics.RecordDuration(string(backend), mode, start)

	logger := slog.With(
		"request_id", requestID(c),
		"model", req.Model,
		"capability", capability,
		"backend", backend,
		"stream", req.Streaming(),
	)
	logger.Info("Routing request")

	if backend == router.Local {
		s.serveLocal(c, req, body, logger)
		return
	}
	s.serveRemote(c, req, body, logger)
}

// decodeRequest binds body to the wire type of capability.
func decodeRequest(body []byte, capability api.Capability) (*api.ChatRequest, error) {
	if capability == api.Embeddings {
		var req api.EmbeddingsRequest
		if err := bindRequest(body, &req); err != nil {
			return nil, err
		}
		return req.Routed(), nil
	}

	var req api.ChatRequest
	if err := bindRequest(body, &req); err != nil {
		return nil, err
	}
	req.Capability = api.Chat
	return &req, nil
}

func (s *Server) serveLocal(c *gin.Context, req *api.ChatRequest, body []byte, logger *slog.Logger) {
	ctx := c.Request.Context()

	if req.Streaming() {
		w := newStreamWriter(c, router.Local, s.metrics)
		if err := s.local.Stream(ctx, req, body, w); err != nil {
			s.recordError(router.Local, err)
			if !w.Started() {
				handleError(c, err)
				return
			}
			logger.Warn("Local stream aborted", "error", err)
		}
		return
	}

	frame, err := s.local.Collect(ctx, req, body)
	if err != nil {
		s.recordError(router.Local, err)
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, frame)
}

func (s *Server) serveRemote(c *gin.Context, req *api.ChatRequest, body []byte, logger *slog.Logger) {
	ctx := c.Request.Context()

	if req.Streaming() {
		w := newStreamWriter(c, router.Remote, s.metrics)
		if err := s.remote.Stream(ctx, req, body, w); err != nil {
			s.recordError(router.Remote, err)
			if !w.Started() {
				handleError(c, err)
				return
			}
			logger.Warn("Remote stream aborted", "error", err)
		}
		return
	}

	env, err := s.remote.Complete(ctx, req, body)
	if err != nil {
		s.recordError(router.Remote, err)
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

func (s *Server) recordError(backend router.Backend, err error) {
	kind := api.KindOf(err).String()
	if errors.Is(err, context.Canceled) {
		kind = "canceled"
	}
	s.metrics.RecordError(string(backend), kind)
}
