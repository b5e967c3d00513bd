package http

import "github.com/gin-gonic/gin"

// Register mounts the chat API.
func (h *Handler) Register(rg gin.IRouter) {
	rg.POST("/chat", h.send)
	rg.GET("/chat/history", h.historyList)
	rg.DELETE("/chat/history", h.historyClear)
}
