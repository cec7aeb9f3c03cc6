package models

import "time"

type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	HTMLContent *string   `json:"html_content,omitempty"`
	WidgetSize  *string   `json:"widget_size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessageWithUser struct {
	Message
	User UserResponse `json:"user"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	WSTypeNewMessage    = "new_message"
	WSTypeUserOnline    = "user_online"
	WSTypeUserOffline   = "user_offline"
	WSTypeChannelUpdate = "channel_update"
	WSTypeFormUpdate    = "form_update"
)
