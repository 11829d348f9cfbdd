package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-gateway/chatrelay/internal/chat"
	"github.com/ai-gateway/chatrelay/internal/config"
	"github.com/ai-gateway/chatrelay/internal/guardrails"
	"github.com/ai-gateway/chatrelay/internal/metrics"
	"github.com/ai-gateway/chatrelay/internal/routing"
)

const serviceName = "chat-relay"

type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	router  *routing.Router
	guards  *guardrails.Guardrails
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(cfg *config.Config, rt *routing.Router, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(requestID(), requestLogger(logger), recovery(logger), cors(cfg.CORS.AllowedOrigins))

	g := cfg.Guardrails
	srv := &Server{
		cfg:     cfg,
		engine:  r,
		router:  rt,
		guards:  guardrails.New(g.MaxTurns, g.MaxTurnChars, g.Banned),
		metrics: m,
		logger:  logger,
	}
	srv.registerRoutes()
	return srv
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.root)

	api := s.engine.Group("/api")
	api.POST("/chat", s.chat)
	api.GET("/health", s.health)

	v1 := s.engine.Group("/v1")
	v1.GET("/models", s.listModels)

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Start serves until ctx is done, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("listening", "address", s.cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type chatRequest struct {
	Messages    []chat.Turn `json:"messages"`
	Temperature *float64    `json:"temperature"`
}

type chatResponse struct {
	Message string    `json:"message"`
	Role    chat.Role `json:"role"`
}

func (s *Server) chat(c *gin.Context) {
	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	req, err := chat.NewRequest(body.Messages, body.Temperature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.guards.Check(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.router.Dispatch(c.Request.Context(), req)
	if err != nil {
		s.writeDispatchError(c, err)
		return
	}
	c.Header("X-Chat-Provider", res.Provider)
	c.Header("X-Chat-Model", res.Model)
	c.JSON(http.StatusOK, chatResponse{Message: res.Text, Role: chat.RoleAssistant})
}

func (s *Server) writeDispatchError(c *gin.Context, err error) {
	var (
		ve *chat.ValidationError
		fe *routing.FailureError
		ie *routing.InternalError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.As(err, &fe):
		status := http.StatusInternalServerError
		if fe.Severity() == routing.SeverityRateLimited {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"error": fe.Error(), "attempts": fe.Attempts})
	case errors.As(err, &ie):
		s.logger.Error("provider panicked",
			"request_id", c.GetString(requestIDKey),
			"provider", ie.Provider,
			"panic", ie.Value,
			"stack", string(ie.Stack))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		s.logger.Error("dispatch failed", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Chat API is running"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.router.Routes()})
}
