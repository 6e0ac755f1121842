package controller

import (
	"net/http"

	"github.com/Freeeeeet/tutoring_hub/internal/service"
	"github.com/google/uuid"
)

type openConversationRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type sendMessageRequest struct {
	Content  string     `json:"content" validate:"required,notblank,max=4000"`
	ClientID *uuid.UUID `json:"client_id"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required,notblank,max=4000"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.messages.ListConversations(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, conversations)
}

func (h *Handler) openConversation(w http.ResponseWriter, r *http.Request) {
	var req openConversationRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	conversation, err := h.messages.OpenConversation(r.Context(), userID(r), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, conversation)
}

// listMessages страница сообщений от новых к старым; before_id для подгрузки истории
func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	beforeID, err := queryInt(r, "before_id", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	messages, err := h.messages.ListMessages(r.Context(), userID(r), conversationID, int64(beforeID), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, messages)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req sendMessageRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	message, err := h.messages.Send(r.Context(), userID(r), conversationID, service.SendInput{
		Content:  req.Content,
		ClientID: req.ClientID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, message, "")
}

func (h *Handler) editMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req editMessageRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	message, err := h.messages.Edit(r.Context(), userID(r), id, req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, message)
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	message, err := h.messages.Delete(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, message)
}

func (h *Handler) reactToMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req reactionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	event, err := h.messages.React(r.Context(), userID(r), id, req.Emoji)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, event)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	conversationID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	receipt, err := h.messages.MarkRead(r.Context(), userID(r), conversationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, receipt)
}
