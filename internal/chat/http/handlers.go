package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/bxu-infra/kml-dashboard/internal/auth"
	"github.com/bxu-infra/kml-dashboard/internal/chat"
	"github.com/bxu-infra/kml-dashboard/internal/logging"
	"github.com/bxu-infra/kml-dashboard/internal/ollama"
)

const (
	msgRequired = "The message field is required."
	msgString   = "The message field must be a string."
)

func (h *Handler) send(c *gin.Context) {
	message, problem, ok := readMessage(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if problem != "" {
		c.JSON(http.StatusUnprocessableEntity, validationError{
			Message: problem,
			Errors:  map[string][]string{"message": {problem}},
		})
		return
	}

	uid := auth.UserFirebaseUID(c)
	if !h.limiter.Allow(limiterKey(uid, c.ClientIP())) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	ctx := c.Request.Context()
	logger := logging.New(ctx)

	resp, err := h.relay.Generate(ctx, message)
	if err != nil {
		var serr *ollama.StatusError
		if errors.As(err, &serr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": serr.Error()})
			return
		}
		logger.Error("chat_send", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ollama API request failed"})
		return
	}

	reply := resp.Text(NoReplyFallback)

	if uid != "" {
		now := time.Now().Unix()
		if err := h.history.Append(ctx, uid,
			chat.Turn{Role: chat.RoleUser, Text: message, Ts: now},
			chat.Turn{Role: chat.RoleAssistant, Text: reply, Ts: now},
		); err != nil {
			logger.Warnf("chat_history", "append failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, sendResponse{Reply: reply})
}

// limiterKey buckets callers by user, falling back to the client address.
func limiterKey(uid, ip string) string {
	if uid != "" {
		return "uid:" + uid
	}
	return "ip:" + ip
}

// readMessage extracts the trimmed message from a JSON or form body. ok is false when the
// body is not decodable at all; problem is set when the message fails validation.
func readMessage(c *gin.Context) (message, problem string, ok bool) {
	if c.ContentType() == binding.MIMEPOSTForm || c.ContentType() == binding.MIMEMultipartPOSTForm {
		v, present := c.GetPostForm("message")
		if !present || strings.TrimSpace(v) == "" {
			return "", msgRequired, true
		}
		return strings.TrimSpace(v), "", true
	}

	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return "", msgRequired, true
		}
		return "", "", false
	}
	if len(body.Message) == 0 || string(body.Message) == "null" {
		return "", msgRequired, true
	}

	var s string
	if err := json.Unmarshal(body.Message, &s); err != nil {
		return "", msgString, true
	}
	if s = strings.TrimSpace(s); s == "" {
		return "", msgRequired, true
	}
	return s, "", true
}

func (h *Handler) historyList(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	turns, err := h.history.Recent(c.Request.Context(), uid, limit)
	if err != nil {
		logging.New(c.Request.Context()).Error("chat_history", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read chat history"})
		return
	}
	c.JSON(http.StatusOK, historyResponse{Turns: turns})
}

func (h *Handler) historyClear(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.history.Clear(c.Request.Context(), uid); err != nil {
		logging.New(c.Request.Context()).Error("chat_history", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear chat history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
