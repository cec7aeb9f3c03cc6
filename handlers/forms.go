package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"smack-integrations/integrations"
	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"
	"smack-integrations/webhookform"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const reapInterval = 30 * time.Second

type formSession struct {
	id      string
	userID  string
	team    string
	form    *webhookform.Controller
	touched time.Time
}

// FormResponse is returned by every form endpoint and pushed over the
// websocket as the payload of a form_update.
type FormResponse struct {
	ID     string           `json:"id"`
	Status string           `json:"status,omitempty"`
	View   webhookform.View `json:"view"`
}

// FormHandler keeps the backstage add/edit forms of each user alive between
// requests.
type FormHandler struct {
	store       *store.Store
	hub         *Hub
	saveTimeout time.Duration
	idleTTL     time.Duration

	mu       sync.Mutex
	sessions map[string]*formSession
	now      func() time.Time
}

func NewFormHandler(s *store.Store, hub *Hub, saveTimeout, idleTTL time.Duration) *FormHandler {
	return &FormHandler{
		store:       s,
		hub:         hub,
		saveTimeout: saveTimeout,
		idleTTL:     idleTTL,
		sessions:    make(map[string]*formSession),
		now:         time.Now,
	}
}

func (h *FormHandler) open(userID, team string, action webhookform.Action, opts ...webhookform.Option) (*formSession, error) {
	opts = append([]webhookform.Option{webhookform.WithSaveTimeout(h.saveTimeout)}, opts...)
	form, err := webhookform.New(action, opts...)
	if err != nil {
		return nil, err
	}

	sess := &formSession{
		id:      uuid.New().String(),
		userID:  userID,
		team:    team,
		form:    form,
		touched: h.now(),
	}

	form.OnComplete(func(st webhookform.State) {
		fields := log.Fields{"form_id": sess.id, "user_id": userID}
		if st.ServerError != "" {
			log.WithFields(fields).WithField("error", st.ServerError).Info("form save failed")
		} else {
			log.WithFields(fields).Info("form saved")
		}
		h.hub.SendToUser(userID, models.WSMessage{
			Type:    models.WSTypeFormUpdate,
			Payload: FormResponse{ID: sess.id, View: form.Render(team)},
		})
	})

	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
	return sess, nil
}

// lookup returns the caller's session and marks it as used.
func (h *FormHandler) lookup(r *http.Request) (*formSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[r.PathValue("id")]
	if !ok || sess.userID != middleware.GetUserID(r) {
		return nil, false
	}
	sess.touched = h.now()
	return sess, true
}

func (h *FormHandler) respond(w http.ResponseWriter, status int, sess *formSession, submit string) {
	writeJSON(w, status, FormResponse{
		ID:     sess.id,
		Status: submit,
		View:   sess.form.Render(sess.team),
	})
}

// OpenAdd starts a form that creates a new incoming webhook.
func (h *FormHandler) OpenAdd(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	team := r.PathValue("team")

	sess, err := h.open(userID, team, integrations.NewAddIncomingWebhook(h.store, team, userID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open form")
		return
	}
	h.respond(w, http.StatusCreated, sess, "")
}

// OpenEdit starts a form prefilled from an existing webhook.
func (h *FormHandler) OpenEdit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	team := r.PathValue("team")

	action, draft, err := integrations.LoadEditIncomingWebhook(r.Context(), h.store, team, userID, r.PathValue("hookId"))
	if err != nil {
		status, msg := hookErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	sess, err := h.open(userID, team, action, webhookform.WithDraft(draft))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open form")
		return
	}
	h.respond(w, http.StatusCreated, sess, "")
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Form not found")
		return
	}
	h.respond(w, http.StatusOK, sess, "")
}

// UpdateField applies one or more field changes, in order.
func (h *FormHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Form not found")
		return
	}

	var events []webhookform.FieldChanged
	body := json.NewDecoder(r.Body)
	for body.More() {
		var ev webhookform.FieldChanged
		if err := body.Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// the batch applies whole or not at all
	var check webhookform.Draft
	for _, ev := range events {
		if _, err := webhookform.Reduce(check, ev); err != nil {
			writeError(w, http.StatusBadRequest, "Unknown field: "+string(ev.Field))
			return
		}
	}
	for _, ev := range events {
		if err := sess.form.Dispatch(ev); err != nil {
			writeError(w, http.StatusBadRequest, "Unknown field: "+string(ev.Field))
			return
		}
	}
	h.respond(w, http.StatusOK, sess, "")
}

// Submit starts the save. The outcome is pushed to the user's sockets; pass
// ?wait=true to block until the save finishes instead.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Form not found")
		return
	}

	// the save outlives this request
	sub := sess.form.Submit(context.WithoutCancel(r.Context()))

	switch sub.Status {
	case webhookform.SubmitIgnored:
		h.respond(w, http.StatusConflict, sess, sub.Status.String())
		return
	case webhookform.SubmitInvalid:
		h.respond(w, http.StatusBadRequest, sess, sub.Status.String())
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		h.respond(w, http.StatusAccepted, sess, sub.Status.String())
		return
	}

	if _, err := sub.Wait(r.Context()); err != nil && r.Context().Err() != nil {
		return
	}
	h.respond(w, http.StatusOK, sess, "done")
}

func (h *FormHandler) Discard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Form not found")
		return
	}

	h.mu.Lock()
	delete(h.sessions, sess.id)
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// StartReaper drops sessions idle for longer than the TTL until ctx ends.
func (h *FormHandler) StartReaper(ctx context.Context) {
	if h.idleTTL <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(reapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.reap()
			}
		}
	}()
}

func (h *FormHandler) reap() int {
	cutoff := h.now().Add(-h.idleTTL)

	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for id, sess := range h.sessions {
		// a save in flight still has to report back
		if sess.touched.After(cutoff) || sess.form.State().Saving {
			continue
		}
		delete(h.sessions, id)
		n++
	}
	if n > 0 {
		log.WithField("count", n).Debug("reaped idle forms")
	}
	return n
}
