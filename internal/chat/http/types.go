package http

import (
	"context"

	"github.com/bxu-infra/kml-dashboard/internal/chat"
	"github.com/bxu-infra/kml-dashboard/internal/ollama"
)

// NoReplyFallback is sent when Ollama answers without a response field.
const NoReplyFallback = "No response from AI."

// Relay is satisfied by *ollama.Client.
type Relay interface {
	Generate(ctx context.Context, prompt string) (*ollama.GenerateResponse, error)
}

type Handler struct {
	relay   Relay
	history chat.HistoryStore
	limiter *Limiter
}

// New builds the chat handler. history and limiter may be nil.
func New(relay Relay, history chat.HistoryStore, limiter *Limiter) *Handler {
	if history == nil {
		history = chat.NopHistory{}
	}
	return &Handler{relay: relay, history: history, limiter: limiter}
}

type sendResponse struct {
	Reply string `json:"reply"`
}

type validationError struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

type historyResponse struct {
	Turns []chat.Turn `json:"turns"`
}
