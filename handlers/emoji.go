package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"smack-integrations/emoji"
	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type EmojiHandler struct {
	store *store.Store
	urls  emoji.ImageURLer
}

func NewEmojiHandler(s *store.Store) *EmojiHandler {
	return &EmojiHandler{
		store: s,
		urls: emoji.ImageURLFunc(func(e *models.Emoji) string {
			return "/api/emoji/" + e.ID + "/image"
		}),
	}
}

type createEmojiRequest struct {
	Name string `json:"name" valid:"required~Emoji name is required,matches(^[a-z0-9_+-]+$)~Emoji names may only contain lowercase letters numbers and _ + -,runelength(1|64)~Emoji name must be 64 characters or fewer"`
}

// Create registers a custom emoji. Names may not shadow system emoji.
func (h *EmojiHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEmojiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.Trim(strings.TrimSpace(req.Name), ":")

	if _, err := govalidator.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, firstValidationMessage(err))
		return
	}

	if _, ok := emoji.LookupSystem(req.Name); ok {
		writeError(w, http.StatusConflict, "An emoji with that name already exists")
		return
	}
	if _, err := h.store.GetEmojiByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "An emoji with that name already exists")
		return
	}

	e, err := h.store.CreateEmoji(req.Name, middleware.GetUserID(r))
	if err != nil {
		log.WithError(err).WithField("name", req.Name).Error("create emoji")
		writeError(w, http.StatusInternalServerError, "Failed to create emoji")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Preview describes the emoji named by ?name= for the picker's preview pane.
// An empty name returns the idle placeholder.
func (h *EmojiHandler) Preview(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimSpace(r.URL.Query().Get("name")), ":")
	if name == "" {
		writeJSON(w, http.StatusOK, emoji.Preview(nil, h.urls))
		return
	}

	if e, ok := emoji.LookupSystem(name); ok {
		writeJSON(w, http.StatusOK, emoji.Preview(e, h.urls))
		return
	}

	e, err := h.store.GetEmojiByName(name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).WithField("name", name).Error("get emoji")
		}
		writeError(w, http.StatusNotFound, "Emoji not found")
		return
	}
	writeJSON(w, http.StatusOK, emoji.Preview(e, h.urls))
}

func firstValidationMessage(err error) string {
	var errs govalidator.Errors
	if errors.As(err, &errs) && len(errs) > 0 {
		return errs[0].Error()
	}
	return err.Error()
}
