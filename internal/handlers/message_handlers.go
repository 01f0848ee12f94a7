package handlers

import (
	"net/http"

	"roomchat/internal/models"
	"roomchat/internal/services"
	"roomchat/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type MessageHandlers struct {
	messageService *services.MessageService
	typingService  *services.TypingService
}

func NewMessageHandlers(messageService *services.MessageService, typingService *services.TypingService) *MessageHandlers {
	return &MessageHandlers{messageService: messageService, typingService: typingService}
}

func (h *MessageHandlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	messages, err := h.messageService.LoadMessages(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	roomID := chi.URLParam(r, "id")

	var req models.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, r, "Error sending message", err)
		return
	}

	msg, err := h.messageService.SendMessage(r.Context(), roomID, user.ID, req.Content)
	if err != nil {
		writeFailure(w, r, "Error sending message", err)
		return
	}
	if err := h.typingService.Clear(r.Context(), roomID, user.ID); err != nil {
		logger.Error("Error clearing typing flag: %v", err)
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandlers) GetTyping(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	state, err := h.typingService.TypingState(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *MessageHandlers) SetTyping(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req models.TypingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.typingService.SetTyping(r.Context(), chi.URLParam(r, "id"), user.ID, req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandlers) ClearTyping(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	if err := h.typingService.Clear(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
