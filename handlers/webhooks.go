package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"smack-integrations/integrations"
	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"
	"smack-integrations/webhookform"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxIncomingBody = 1 << 20

type WebhookHandler struct {
	store       *store.Store
	hub         *Hub
	publicURL   string
	saveTimeout time.Duration
}

func NewWebhookHandler(s *store.Store, h *Hub, publicURL string, saveTimeout time.Duration) *WebhookHandler {
	return &WebhookHandler{
		store:       s,
		hub:         h,
		publicURL:   strings.TrimRight(publicURL, "/"),
		saveTimeout: saveTimeout,
	}
}

// hookErrorStatus maps a form save failure to an HTTP status and the message
// shown to the caller.
func hookErrorStatus(err error) (int, string) {
	var verr *integrations.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, webhookform.ErrChannelRequired):
		return http.StatusBadRequest, webhookform.ChannelRequiredLabel.DefaultText
	case errors.Is(err, integrations.ErrDirectChannel):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, integrations.ErrChannelNotFound), errors.Is(err, integrations.ErrHookNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, integrations.ErrNotChannelMember), errors.Is(err, integrations.ErrNotHookOwner):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Saving the webhook took too long"
	default:
		log.WithError(err).Error("webhook save failed")
		return http.StatusInternalServerError, "Failed to save webhook"
	}
}

// save runs a form to completion within the request.
func (h *WebhookHandler) save(ctx context.Context, form *webhookform.Controller) (webhookform.Result, error) {
	sub := form.Submit(ctx)
	return sub.Wait(ctx)
}

func (h *WebhookHandler) respondHook(w http.ResponseWriter, r *http.Request, status int, hookID string) {
	hook, err := h.store.GetWebhook(r.Context(), hookID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch webhook")
		return
	}
	writeJSON(w, status, hook.ToResponse(h.publicURL))
}

// Create creates a new webhook for a channel
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req webhookform.Payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	team := r.URL.Query().Get("team")
	form, err := webhookform.New(
		integrations.NewAddIncomingWebhook(h.store, team, userID),
		webhookform.WithSaveTimeout(h.saveTimeout),
		webhookform.WithDraft(webhookform.Draft{
			DisplayName: req.DisplayName,
			Description: req.Description,
			ChannelID:   strings.TrimSpace(req.ChannelID),
		}),
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create webhook")
		return
	}

	res, err := h.save(r.Context(), form)
	if err != nil {
		status, msg := hookErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	h.respondHook(w, r, http.StatusCreated, res.HookID)
}

type updateWebhookRequest struct {
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	ChannelID   *string `json:"channel_id"`
}

// Update edits a webhook through the edit form; omitted fields keep their
// current value.
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var req updateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action, draft, err := integrations.LoadEditIncomingWebhook(r.Context(), h.store, r.URL.Query().Get("team"), userID, r.PathValue("id"))
	if err != nil {
		status, msg := hookErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	form, err := webhookform.New(action, webhookform.WithSaveTimeout(h.saveTimeout), webhookform.WithDraft(draft))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update webhook")
		return
	}

	if req.DisplayName != nil {
		form.UpdateDisplayName(*req.DisplayName)
	}
	if req.Description != nil {
		form.UpdateDescription(*req.Description)
	}
	if req.ChannelID != nil {
		form.UpdateChannelID(strings.TrimSpace(*req.ChannelID))
	}

	res, err := h.save(r.Context(), form)
	if err != nil {
		status, msg := hookErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	h.respondHook(w, r, http.StatusOK, res.HookID)
}

// List returns webhooks, optionally filtered by channel
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	channelID := r.URL.Query().Get("channel_id")

	var webhooks []models.Webhook
	var err error

	if channelID != "" {
		channel, cerr := h.store.GetChannel(channelID)
		if cerr != nil || !canSeeChannel(r.Context(), h.store, channel, userID) {
			if cerr != nil && !errors.Is(cerr, store.ErrNotFound) {
				log.WithError(cerr).WithField("channel_id", channelID).Error("get channel")
			}
			writeError(w, http.StatusNotFound, "Channel not found")
			return
		}
		webhooks, err = h.store.GetWebhooksForChannel(r.Context(), channelID)
	} else {
		webhooks, err = h.store.GetWebhooksByUser(r.Context(), userID)
	}
	if err != nil {
		log.WithError(err).Error("list webhooks")
		writeError(w, http.StatusInternalServerError, "Failed to fetch webhooks")
		return
	}

	// tokens are only shown to the hook's creator
	responses := make([]models.WebhookResponse, 0, len(webhooks))
	for i := range webhooks {
		if webhooks[i].CreatedBy != userID {
			webhooks[i].Token = ""
		}
		responses = append(responses, webhooks[i].ToResponse(h.publicURL))
	}

	writeJSON(w, http.StatusOK, responses)
}

// Get returns a single webhook. Hooks posting into a channel the caller
// cannot see are reported as missing, unless the caller created them.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	webhook, err := h.store.GetWebhook(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Webhook not found")
		return
	}

	if webhook.CreatedBy != userID {
		channel, err := h.store.GetChannel(webhook.ChannelID)
		if err != nil || !canSeeChannel(r.Context(), h.store, channel, userID) {
			writeError(w, http.StatusNotFound, "Webhook not found")
			return
		}
		webhook.Token = ""
	}
	writeJSON(w, http.StatusOK, webhook.ToResponse(h.publicURL))
}

// Delete removes a webhook
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	webhookID := r.PathValue("id")

	err := h.store.DeleteWebhook(r.Context(), webhookID, userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Webhook not found")
		return
	}
	if err != nil {
		log.WithError(err).WithField("hook_id", webhookID).Error("delete webhook")
		writeError(w, http.StatusInternalServerError, "Failed to delete webhook")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "webhook deleted"})
}

func decodeIncoming(w http.ResponseWriter, r *http.Request) (*models.IncomingWebhookRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIncomingBody)

	var req models.IncomingWebhookRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		payload := r.PostForm.Get("payload")
		if payload == "" {
			return nil, errors.New("missing payload")
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Incoming handles incoming webhook payloads (public endpoint). Slack
// compatible bodies are accepted as JSON or as a form-encoded payload field.
func (h *WebhookHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	webhook, err := h.store.GetWebhookByToken(r.Context(), r.PathValue("id"), r.PathValue("token"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Webhook not found or invalid token")
		return
	}

	req, err := decodeIncoming(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	content := req.MessageText()
	if content == "" && req.HTML == "" {
		writeError(w, http.StatusBadRequest, "Content or HTML is required")
		return
	}

	// Post as a per-hook bot user
	botID := "webhook-" + webhook.ID
	displayName := req.Username
	if displayName == "" {
		displayName = webhook.DisplayName
	}
	if displayName == "" {
		displayName = "Incoming Webhook"
	}
	if err := h.store.EnsureBotUser(botID, botID, displayName, req.Avatar()); err != nil {
		log.WithError(err).WithField("hook_id", webhook.ID).Error("ensure webhook user")
		writeError(w, http.StatusInternalServerError, "Failed to create message")
		return
	}

	var htmlContent *string
	if req.HTML != "" {
		htmlContent = &req.HTML
	}
	var widgetSize *string
	if req.WidgetSize != "" {
		widgetSize = &req.WidgetSize
	}
	if content == "" {
		content = "[HTML Widget]"
	}

	msg, err := h.store.CreateMessageWithHTML(webhook.ChannelID, botID, content, htmlContent, widgetSize)
	if err != nil {
		log.WithError(err).WithField("hook_id", webhook.ID).Error("create webhook message")
		writeError(w, http.StatusInternalServerError, "Failed to create message")
		return
	}

	userResponse := models.UserResponse{ID: botID, Username: botID, DisplayName: displayName, AvatarURL: req.Avatar()}
	if user, err := h.store.GetUserByID(botID); err == nil {
		userResponse = user.ToResponse()
	}

	h.hub.BroadcastToChannel(webhook.ChannelID, models.WSMessage{
		Type:    models.WSTypeNewMessage,
		Payload: models.MessageWithUser{Message: *msg, User: userResponse},
	})

	log.WithFields(log.Fields{"hook_id": webhook.ID, "channel_id": webhook.ChannelID}).Debug("incoming webhook delivered")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         msg.ID,
		"channel_id": msg.ChannelID,
		"content":    msg.Content,
		"created_at": msg.CreatedAt.Format(time.RFC3339),
	})
}
