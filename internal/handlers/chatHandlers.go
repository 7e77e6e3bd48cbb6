package handlers

import (
	"net/http"

	"hospitaldesk/internal/middlewares"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/services"
	"hospitaldesk/internal/utils"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (c *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if !utils.DecodeAndValidate(w, r, &req) {
		return
	}

	reply, err := c.chatService.Handle(r.Context(), middlewares.UserIDFromContext(r.Context()), req.Message)
	if err != nil {
		respondWithServiceError(w, err, "chat_message")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, reply)
}

func (c *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := utils.QueryInt(r, "limit", services.DefaultHistoryLimit)
	offset := utils.QueryInt(r, "offset", 0)

	history, err := c.chatService.History(r.Context(), middlewares.UserIDFromContext(r.Context()), limit, offset)
	if err != nil {
		respondWithServiceError(w, err, "chat_history")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, history)
}

func (c *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := c.chatService.ClearHistory(r.Context(), middlewares.UserIDFromContext(r.Context())); err != nil {
		respondWithServiceError(w, err, "chat_clear_history")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Chat history cleared", nil)
}
