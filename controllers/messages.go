package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ContactRelay/middleware"
	"ContactRelay/models"
	"ContactRelay/pkg/apperr"
	"ContactRelay/pkg/services"
)

// SubmitMessage is the public visitor endpoint.
func SubmitMessage(svc *services.Ingestion) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			SessionID string `json:"session_id"`
			Name      string `json:"name"`
			Content   string `json:"content"`
		}
		// an unreadable body still goes through Submit so the limiter counts it
		_ = c.ShouldBindJSON(&body)

		msg, err := svc.Submit(c.Request.Context(), body.SessionID, body.Name, body.Content, middleware.ClientKey(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Message sent successfully",
			"data":    msg,
		})
	}
}

// GetChat returns a visitor's conversation, oldest first.
func GetChat(svc *services.Ingestion) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := svc.History(c.Request.Context(), c.Query("session_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func ListMessages(q *services.Query) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c)
		if !ok {
			return
		}
		msgs, err := q.ListMessages(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func ListSessions(q *services.Query) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c)
		if !ok {
			return
		}
		sessions, err := q.ListSessions(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

type replyBody struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	// older dashboards post the text as content
	Content string `json:"content"`
}

func (b replyBody) text() string {
	if strings.TrimSpace(b.Reply) != "" {
		return b.Reply
	}
	return b.Content
}

// Reply posts an operator answer into a session.
func Reply(r *services.Replier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c)
		if !ok {
			return
		}
		var body replyBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		msg, err := r.Reply(c.Request.Context(), token, body.SessionID, body.text())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reply sent successfully", "data": msg})
	}
}

// ReplyToMessage answers in the session of the message named in the path.
func ReplyToMessage(r *services.Replier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			respondError(c, fmt.Errorf("message %q: %w", c.Param("id"), apperr.ErrNotFound))
			return
		}
		var body replyBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		msg, err := r.ReplyToMessage(c.Request.Context(), token, uint(id), body.text())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reply sent successfully", "data": msg})
	}
}
