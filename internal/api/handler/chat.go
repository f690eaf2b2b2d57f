package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cognidesk/idea-vault/internal/api/middleware"
)

// RetrievalAnswerer is the retrieval service surface the handler needs.
type RetrievalAnswerer interface {
	Answer(ctx context.Context, question string, emit func(text string) error) error
}

// ChatHandler serves the retrieval chat endpoint as a server-sent event
// stream.
type ChatHandler struct {
	retrieval RetrievalAnswerer
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(retrieval RetrievalAnswerer) *ChatHandler {
	return &ChatHandler{retrieval: retrieval}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat answers a question over the embedded content, streaming SSE frames
// and closing with a terminal [END] event.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required."})
		return
	}

	log := middleware.GetLogger(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	started := false
	emit := func(text string) error {
		started = true
		if _, err := c.Writer.WriteString("data: " + text + "\n\n"); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if err := h.retrieval.Answer(c.Request.Context(), req.Message, emit); err != nil {
		log.WithError(err).Error("chat answer failed")
		if !started {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message."})
			return
		}
		// mid-stream failure: terminate without corrupting prior output
		return
	}

	c.Writer.WriteString("data: [END]\n\n")
	c.Writer.Flush()
}
