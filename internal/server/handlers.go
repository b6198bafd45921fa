package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"toolchat/internal/agent"
	"toolchat/internal/confirm"
)

type apiError struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

type createSessionRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	// Body is optional; an untitled session is fine.
	_ = c.ShouldBindJSON(&req)

	session, err := s.store.Create(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, apiError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, apiError{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type chatRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "message content is required"})
		return
	}
	sessionID := c.Param("id")
	if _, err := s.store.Get(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, apiError{Error: err.Error()})
		return
	}

	reply, err := s.engine.Chat(c.Request.Context(), sessionID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "message content is required"})
		return
	}
	sessionID := c.Param("id")
	if _, err := s.store.Get(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, apiError{Error: err.Error()})
		return
	}

	events, err := s.engine.ChatStream(c.Request.Context(), sessionID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return ev.Type != agent.EventDone
	})
}

func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.registry.List()})
}

func (s *Server) handleListConfirmations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": s.gate.PendingRequests()})
}

type resumeRequest struct {
	Decision string `json:"decision" binding:"required"`
}

func (s *Server) handleResumeConfirmation(c *gin.Context) {
	var req resumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "decision is required"})
		return
	}
	decision, err := confirm.ParseDecision(req.Decision)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	result, err := s.executor.Resume(c.Request.Context(), c.Param("id"), decision)
	if err != nil {
		c.JSON(http.StatusNotFound, apiError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
