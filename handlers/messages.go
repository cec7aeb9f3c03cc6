package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"

	log "github.com/sirupsen/logrus"
)

type MessageHandler struct {
	store *store.Store
	hub   *Hub
}

func NewMessageHandler(s *store.Store, hub *Hub) *MessageHandler {
	return &MessageHandler{store: s, hub: hub}
}

type sendMessageRequest struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// GetChannelMessages returns the newest messages of a channel the caller
// belongs to, newest first.
func (h *MessageHandler) GetChannelMessages(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	member, err := h.store.IsChannelMember(r.Context(), channelID, middleware.GetUserID(r))
	if err != nil || !member {
		writeError(w, http.StatusNotFound, "Channel not found")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	messages, err := h.store.GetChannelMessages(channelID, limit)
	if err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("fetch messages")
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" || req.ChannelID == "" {
		writeError(w, http.StatusBadRequest, "Channel ID and content are required")
		return
	}

	member, err := h.store.IsChannelMember(r.Context(), req.ChannelID, userID)
	if err != nil || !member {
		writeError(w, http.StatusForbidden, "Not a member of this channel")
		return
	}

	msg, err := h.store.CreateMessageWithHTML(req.ChannelID, userID, req.Content, nil, nil)
	if err != nil {
		log.WithError(err).WithField("channel_id", req.ChannelID).Error("create message")
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	out := models.MessageWithUser{Message: *msg, User: user.ToResponse()}
	h.hub.BroadcastToChannel(req.ChannelID, models.WSMessage{
		Type:    models.WSTypeNewMessage,
		Payload: out,
	})

	writeJSON(w, http.StatusCreated, out)
}
