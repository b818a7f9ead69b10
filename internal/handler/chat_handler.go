package handler

import (
	"encoding/json"
	"net/http"

	"fashion-auth/internal/chat"
	"fashion-auth/internal/container"
	"fashion-auth/pkg/errors"
)

// ChatHandler handles styling assistant requests. Replies come from the
// configured upstream when one is set and fall back to canned responses.
type ChatHandler struct {
	container *container.Container
}

// NewChatHandler creates a new chat handler
func NewChatHandler(container *container.Container) *ChatHandler {
	return &ChatHandler{
		container: container,
	}
}

// ChatRequest is the conversation history sent by the frontend
type ChatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// ChatResponse carries the assistant reply
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Respond handles POST /functions/chat
func (h *ChatHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.container.GetLogger()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), logger)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, errors.NewValidationError("At least one message is required", nil), logger)
		return
	}

	if h.container.ChatProxy != nil {
		reply, err := h.container.ChatProxy.Forward(ctx, latestUserMessage(req.Messages))
		if err == nil {
			writeJSON(w, http.StatusOK, ChatResponse{Reply: reply}, logger)
			return
		}
		logger.WithError(err).Warn("Chat upstream failed, using canned reply")
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: chat.Respond(req.Messages, h.container.ChatRNG)}, logger)
}

func latestUserMessage(messages []chat.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return messages[len(messages)-1].Content
}
