package controller

import (
	"net/http"
)

type connectionRequest struct {
	UserID  int64  `json:"user_id" validate:"required,gt=0"`
	Message string `json:"message" validate:"max=500"`
}

func (h *Handler) requestConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	connection, err := h.connections.Request(r.Context(), userID(r), req.UserID, req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, connection, "connection request sent")
}

func (h *Handler) acceptConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	connection, err := h.connections.Accept(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, connection)
}

func (h *Handler) declineConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	connection, err := h.connections.Decline(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, connection)
}

func (h *Handler) removeConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.connections.Remove(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}

	respondMessage(w, "connection removed")
}

func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request) {
	connections, err := h.connections.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, connections)
}

func (h *Handler) pendingConnections(w http.ResponseWriter, r *http.Request) {
	pending, err := h.connections.Pending(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, pending)
}

func (h *Handler) connectionStatus(w http.ResponseWriter, r *http.Request) {
	otherID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	state, err := h.connections.Status(r.Context(), userID(r), otherID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, state)
}
