package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ChannelHandler struct {
	store *store.Store
	hub   *Hub
}

func NewChannelHandler(s *store.Store, hub *Hub) *ChannelHandler {
	return &ChannelHandler{store: s, hub: hub}
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.GetChannelsForUser(middleware.GetUserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch channels")
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

// Selectable backs the channel picker of the webhook form.
func (h *ChannelHandler) Selectable(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.GetSelectableChannels(middleware.GetUserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch channels")
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Channel name is required")
		return
	}

	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(req.Name), " ", "-"))

	channel, err := h.store.CreateChannel(name, req.Description, userID, false, req.IsPrivate)
	if err != nil {
		log.WithError(err).WithField("name", name).Error("create channel")
		writeError(w, http.StatusInternalServerError, "Failed to create channel")
		return
	}

	if !channel.IsPrivate {
		h.hub.BroadcastAll(models.WSMessage{Type: models.WSTypeChannelUpdate, Payload: channel})
	}
	writeJSON(w, http.StatusCreated, channel)
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.visibleChannel(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

func (h *ChannelHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	channel, ok := h.visibleChannel(w, r)
	if !ok {
		return
	}

	if channel.IsDirect {
		writeError(w, http.StatusBadRequest, "Cannot join direct message channel")
		return
	}

	if err := h.store.JoinChannel(channel.ID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to join channel")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (h *ChannelHandler) Members(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.visibleChannel(w, r)
	if !ok {
		return
	}

	members, err := h.store.GetChannelMembers(channel.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch members")
		return
	}

	responses := make([]models.UserResponse, len(members))
	for i, m := range members {
		responses[i] = m.ToResponse()
	}

	writeJSON(w, http.StatusOK, models.ChannelWithMembers{Channel: *channel, Members: responses})
}

// visibleChannel loads the {id} channel, hiding private channels from
// non-members behind a 404.
func (h *ChannelHandler) visibleChannel(w http.ResponseWriter, r *http.Request) (*models.Channel, bool) {
	channel, err := h.store.GetChannel(r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Error("get channel")
		}
		writeError(w, http.StatusNotFound, "Channel not found")
		return nil, false
	}

	if !canSeeChannel(r.Context(), h.store, channel, middleware.GetUserID(r)) {
		writeError(w, http.StatusNotFound, "Channel not found")
		return nil, false
	}
	return channel, true
}

// canSeeChannel reports whether userID may see channel. Public channels are
// visible to everyone; private and direct ones only to members.
func canSeeChannel(ctx context.Context, s *store.Store, channel *models.Channel, userID string) bool {
	if !channel.IsPrivate && !channel.IsDirect {
		return true
	}
	member, err := s.IsChannelMember(ctx, channel.ID, userID)
	if err != nil {
		log.WithError(err).WithField("channel_id", channel.ID).Error("check channel membership")
		return false
	}
	return member
}
