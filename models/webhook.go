package models

import (
	"strings"
	"time"

	"github.com/slack-go/slack"
)

type Webhook struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	ChannelID   string    `json:"channel_id"`
	Token       string    `json:"token,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// URL is the path incoming payloads are posted to.
func (w *Webhook) URL() string {
	return "/hooks/" + w.ID + "/" + w.Token
}

type WebhookResponse struct {
	Webhook
	URL string `json:"url,omitempty"`
}

func (w *Webhook) ToResponse(baseURL string) WebhookResponse {
	return WebhookResponse{
		Webhook: *w,
		URL:     baseURL + w.URL(),
	}
}

// IncomingWebhookRequest is the body accepted by the public hook endpoint.
// Slack-compatible payloads (text, username, icon_url, attachments) are
// accepted alongside the native fields.
type IncomingWebhookRequest struct {
	slack.WebhookMessage
	Content    string `json:"content,omitempty"`
	HTML       string `json:"html,omitempty"`
	WidgetSize string `json:"widget_size,omitempty"` // small, medium, large, xlarge
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// MessageText picks the text to post: native content first, then the Slack
// text, then the attachments.
func (r *IncomingWebhookRequest) MessageText() string {
	if r.Content != "" {
		return r.Content
	}
	if r.Text != "" {
		return r.Text
	}

	var parts []string
	for _, a := range r.Attachments {
		for _, s := range []string{a.Pretext, a.Title, a.Text} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		if a.Pretext == "" && a.Title == "" && a.Text == "" && a.Fallback != "" {
			parts = append(parts, a.Fallback)
		}
	}
	return strings.Join(parts, "\n")
}

func (r *IncomingWebhookRequest) Avatar() string {
	if r.AvatarURL != "" {
		return r.AvatarURL
	}
	return r.IconURL
}
