package handlers

import (
	"context"
	"net/http"

	"smack-integrations/config"
	"smack-integrations/middleware"
	"smack-integrations/store"
)

// Server wires every handler onto one mux.
type Server struct {
	Hub      *Hub
	Forms    *FormHandler
	Webhooks *WebhookHandler

	auth     *AuthHandler
	channels *ChannelHandler
	messages *MessageHandler
	emoji    *EmojiHandler
}

func NewServer(s *store.Store, cfg *config.Config) *Server {
	hub := NewHub(s)
	return &Server{
		Hub:      hub,
		Forms:    NewFormHandler(s, hub, cfg.SaveTimeout, cfg.FormIdleTTL),
		Webhooks: NewWebhookHandler(s, hub, cfg.PublicURL, cfg.SaveTimeout),
		auth:     NewAuthHandler(s),
		channels: NewChannelHandler(s, hub),
		messages: NewMessageHandler(s, hub),
		emoji:    NewEmojiHandler(s),
	}
}

// Start runs the hub and the form reaper until ctx ends.
func (s *Server) Start(ctx context.Context) {
	go s.Hub.Run(ctx)
	s.Forms.StartReaper(ctx)
}

func (s *Server) Handler() http.Handler {
	withAuth := middleware.WithAuth
	mux := http.NewServeMux()

	// Public routes (no auth required)
	mux.HandleFunc("POST /api/auth/register", s.auth.Register)
	mux.HandleFunc("POST /api/auth/login", s.auth.Login)
	mux.HandleFunc("GET /api/ws", s.Hub.HandleWebSocket)
	mux.HandleFunc("POST /hooks/{id}/{token}", s.Webhooks.Incoming)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/auth/me", withAuth(s.auth.Me))

	// Channels
	mux.HandleFunc("GET /api/channels", withAuth(s.channels.List))
	mux.HandleFunc("GET /api/channels/selectable", withAuth(s.channels.Selectable))
	mux.HandleFunc("POST /api/channels", withAuth(s.channels.Create))
	mux.HandleFunc("GET /api/channels/{id}", withAuth(s.channels.Get))
	mux.HandleFunc("POST /api/channels/{id}/join", withAuth(s.channels.Join))
	mux.HandleFunc("GET /api/channels/{id}/members", withAuth(s.channels.Members))
	mux.HandleFunc("GET /api/channels/{id}/messages", withAuth(s.messages.GetChannelMessages))

	// Messages
	mux.HandleFunc("POST /api/messages", withAuth(s.messages.Send))

	// Webhooks
	mux.HandleFunc("GET /api/webhooks", withAuth(s.Webhooks.List))
	mux.HandleFunc("POST /api/webhooks", withAuth(s.Webhooks.Create))
	mux.HandleFunc("GET /api/webhooks/{id}", withAuth(s.Webhooks.Get))
	mux.HandleFunc("PUT /api/webhooks/{id}", withAuth(s.Webhooks.Update))
	mux.HandleFunc("DELETE /api/webhooks/{id}", withAuth(s.Webhooks.Delete))

	// Backstage forms
	mux.HandleFunc("POST /api/teams/{team}/incoming_webhooks/forms", withAuth(s.Forms.OpenAdd))
	mux.HandleFunc("POST /api/teams/{team}/incoming_webhooks/{hookId}/forms", withAuth(s.Forms.OpenEdit))
	mux.HandleFunc("GET /api/forms/{id}", withAuth(s.Forms.Get))
	mux.HandleFunc("POST /api/forms/{id}/fields", withAuth(s.Forms.UpdateField))
	mux.HandleFunc("POST /api/forms/{id}/submit", withAuth(s.Forms.Submit))
	mux.HandleFunc("DELETE /api/forms/{id}", withAuth(s.Forms.Discard))

	// Emoji
	mux.HandleFunc("GET /api/emoji/preview", withAuth(s.emoji.Preview))
	mux.HandleFunc("POST /api/emoji", withAuth(s.emoji.Create))

	return middleware.CORS(mux)
}
