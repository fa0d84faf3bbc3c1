package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/klarifai/queen-rag/internal/domain"
	"github.com/klarifai/queen-rag/internal/engine"
	"github.com/klarifai/queen-rag/internal/llm"
)

// documentPreviewLimit caps how much of an attached document is inlined
// into the conversation.
const documentPreviewLimit = 2000

type chatTurn struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

type chatAttachment struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message     string           `json:"message" binding:"required"`
	History     []chatTurn       `json:"history"`
	UseRAG      *bool            `json:"use_rag"`
	Stream      *bool            `json:"stream"`
	TopK        int              `json:"top_k"`
	Attachments []chatAttachment `json:"attachments"`
}

// engineRequest converts the wire request into an engine request.
// use_rag and stream both default to true when omitted.
func (r *chatRequest) engineRequest() engine.Request {
	history := make([]llm.Message, 0, len(r.History))
	for _, turn := range r.History {
		history = append(history, llm.Message{Role: llm.Role(turn.Role), Content: turn.Content})
	}
	return engine.Request{
		Message: r.Message,
		History: history,
		UseRAG:  r.UseRAG == nil || *r.UseRAG,
		Stream:  r.Stream == nil || *r.Stream,
		TopK:    r.TopK,
	}
}

// ChatMessage handles POST /api/chat/message. Streaming requests get SSE
// frames of {"content": ...} ending with {"done": true}; non-streaming
// requests get a single JSON document.
func (ct *Controller) ChatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	engReq := req.engineRequest()
	deltas := ct.chat.Chat(c.Request.Context(), engReq)

	if engReq.Stream {
		setSSEHeaders(c)
		for delta := range deltas {
			if delta.Err != nil {
				ct.log.Error().Err(delta.Err).Msg("streaming chat failed")
				writeSSE(c, gin.H{"error": delta.Err.Error()})
				return
			}
			writeSSE(c, gin.H{"content": delta.Content})
		}
		writeSSE(c, gin.H{"done": true})
		return
	}

	var response strings.Builder
	for delta := range deltas {
		if delta.Err != nil {
			ct.log.Error().Err(delta.Err).Msg("chat failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat failed: " + delta.Err.Error()})
			return
		}
		response.WriteString(delta.Content)
	}

	c.JSON(http.StatusOK, gin.H{
		"response":     response.String(),
		"context_used": engReq.UseRAG,
		"sources":      []string{},
	})
}

// ChatStream handles POST /api/chat/stream, the dedicated SSE endpoint.
// Every frame carries a type: start, content, done or error. Attachments
// are folded in here: images become vision parts, documents are inlined
// as a truncated preview appended to the user message.
func (ct *Controller) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	engReq := req.engineRequest()
	engReq.Stream = true

	var attachmentContext strings.Builder
	for _, att := range req.Attachments {
		switch att.Type {
		case "image":
			engReq.Images = append(engReq.Images, llm.ImageAttachment{
				Name:    att.Name,
				DataURL: att.Content,
			})
		case "document", "file", "":
			preview := att.Content
			if len(preview) > documentPreviewLimit {
				preview = preview[:documentPreviewLimit]
			}
			fmt.Fprintf(&attachmentContext, "\n\n[Attached File: %s]\n%s", att.Name, preview)
		}
	}
	if attachmentContext.Len() > 0 {
		engReq.Message = req.Message + "\n\nAttached Files Context:" + attachmentContext.String()
	}

	setSSEHeaders(c)
	writeSSE(c, gin.H{"type": "start"})

	for delta := range ct.chat.Chat(c.Request.Context(), engReq) {
		if delta.Err != nil {
			ct.log.Error().Err(delta.Err).Msg("streaming chat failed")
			writeSSE(c, gin.H{"type": "error", "error": delta.Err.Error()})
			return
		}
		writeSSE(c, gin.H{"type": "content", "content": delta.Content})
	}
	writeSSE(c, gin.H{"type": "done"})
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// Search handles POST /api/chat/search.
func (ct *Controller) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	hits, err := ct.chat.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		ct.log.Error().Err(err).Str("query", req.Query).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}

	c.JSON(http.StatusOK, gin.H{
		"results": hits,
		"count":   len(hits),
	})
}

func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// writeSSE emits one server-sent event frame and flushes it so the
// client sees deltas as they happen.
func writeSSE(c *gin.Context, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
