// Package server exposes the chat loop over HTTP: session CRUD, blocking
// and SSE-streaming chat, tool listing, and confirmation resume.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"toolchat/internal/agent"
	"toolchat/internal/confirm"
	"toolchat/internal/logging"
	"toolchat/internal/ports"
	"toolchat/internal/tools"
	"toolchat/internal/utils/id"
)

// requestID tags each request with a fresh id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = id.NewRequestID()
		}
		c.Request = c.Request.WithContext(id.WithRequestID(c.Request.Context(), rid))
		c.Header("X-Request-ID", rid)
		c.Next()
	}
}

// Options configures the HTTP server.
type Options struct {
	Host  string
	Port  int
	Debug bool
}

type Server struct {
	engine     *agent.Engine
	store      ports.SessionStore
	registry   *tools.Registry
	executor   *tools.Executor
	gate       *confirm.Gate
	logger     logging.Logger
	httpServer *http.Server
}

func New(engine *agent.Engine, store ports.SessionStore, registry *tools.Registry,
	executor *tools.Executor, gate *confirm.Gate, logger logging.Logger, opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		engine:   engine,
		store:    store,
		registry: registry,
		executor: executor,
		gate:     gate,
		logger:   logging.OrNop(logger),
	}
	s.routes(router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses stay open
	}
	return s
}

func (s *Server) routes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", s.handleHealth)

	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.POST("/sessions/:id/messages", s.handleChat)
	api.POST("/sessions/:id/stream", s.handleChatStream)

	api.GET("/tools", s.handleListTools)
	api.GET("/confirmations", s.handleListConfirmations)
	api.POST("/confirmations/:id", s.handleResumeConfirmation)
}

// Run serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
