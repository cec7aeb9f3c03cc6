package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smack-integrations/config"
	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"

	"github.com/gorilla/websocket"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ts    *httptest.Server
	store *store.Store
	srv   *Server
}

type testUser struct {
	*models.User
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	middleware.SetSecret("test-secret")

	s, err := store.New(filepath.Join(t.TempDir(), "smack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := NewServer(s, &config.Config{
		PublicURL:   "http://smack.test",
		SaveTimeout: 5 * time.Second,
		FormIdleTTL: time.Minute,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.Start(ctx)

	return &testEnv{ts: ts, store: s, srv: srv}
}

func (e *testEnv) user(t *testing.T, name string) testUser {
	t.Helper()
	u, err := e.store.CreateUser(name, strings.ToUpper(name[:1])+name[1:], "secret123")
	require.NoError(t, err)
	token, err := middleware.GenerateToken(u.ID)
	require.NoError(t, err)
	return testUser{User: u, token: token}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	decode(t, resp, &body)
	return body["error"]
}

func (e *testEnv) createHook(t *testing.T, u testUser, channelID, name string) models.WebhookResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/webhooks?team=core", u.token, map[string]string{
		"channel_id":   channelID,
		"display_name": name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var hook models.WebhookResponse
	decode(t, resp, &hook)
	return hook
}

func TestIncomingWebhookSlackPayload(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	ch, err := env.store.CreateChannel("builds", "", alice.ID, false, false)
	require.NoError(t, err)

	hook := env.createHook(t, alice, ch.ID, "CI Bot")
	assert.Equal(t, "http://smack.test/hooks/"+hook.ID+"/"+hook.Token, hook.URL)

	err = slack.PostWebhook(env.ts.URL+hook.Webhook.URL(), &slack.WebhookMessage{
		Text:     "build passed",
		Username: "Jenkins",
		IconURL:  "https://ci.example.com/icon.png",
	})
	require.NoError(t, err)

	msgs, err := env.store.GetChannelMessages(ch.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "build passed", msgs[0].Content)
	assert.Equal(t, "webhook-"+hook.ID, msgs[0].UserID)

	bot, err := env.store.GetUserByID("webhook-" + hook.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jenkins", bot.DisplayName)
	assert.Equal(t, "https://ci.example.com/icon.png", bot.AvatarURL)

	err = slack.PostWebhook(env.ts.URL+"/hooks/"+hook.ID+"/wrong", &slack.WebhookMessage{Text: "nope"})
	require.Error(t, err)
}

func TestIncomingWebhookFormPayload(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	ch, err := env.store.CreateChannel("builds", "", alice.ID, false, false)
	require.NoError(t, err)
	hook := env.createHook(t, alice, ch.ID, "")

	resp, err := http.PostForm(env.ts.URL+hook.Webhook.URL(), url.Values{
		"payload": {`{"attachments":[{"fallback":"deploy finished"}]}`},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msgs, err := env.store.GetChannelMessages(ch.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "deploy finished", msgs[0].Content)

	bot, err := env.store.GetUserByID("webhook-" + hook.ID)
	require.NoError(t, err)
	assert.Equal(t, "Incoming Webhook", bot.DisplayName)

	empty := env.do(t, http.MethodPost, hook.Webhook.URL(), "", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, empty.StatusCode)
}

func TestCreateWebhookErrors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	private, err := env.store.CreateChannel("ops", "", alice.ID, false, true)
	require.NoError(t, err)
	dm, err := env.store.CreateChannel("dm", "", alice.ID, true, false)
	require.NoError(t, err)
	open, err := env.store.CreateChannel("builds", "", alice.ID, false, false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		user   testUser
		body   map[string]string
		status int
		msg    string
	}{
		{"missing channel", alice, map[string]string{"display_name": "x"}, http.StatusBadRequest, "A valid channel is required"},
		{"blank channel", alice, map[string]string{"channel_id": "   "}, http.StatusBadRequest, "A valid channel is required"},
		{"unknown channel", alice, map[string]string{"channel_id": "nope"}, http.StatusNotFound, "Unable to find the selected channel"},
		{"direct channel", alice, map[string]string{"channel_id": dm.ID}, http.StatusBadRequest, "Cannot create webhooks for direct message channels"},
		{"private non-member", bob, map[string]string{"channel_id": private.ID}, http.StatusForbidden, "You must belong to the private channel to set up a webhook for it"},
		{"long name", alice, map[string]string{"channel_id": open.ID, "display_name": strings.Repeat("n", 65)}, http.StatusBadRequest, "Display name must be 64 characters or fewer"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/webhooks", tc.user.token, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.msg, errorMessage(t, resp))
		})
	}

	hooks, err := env.store.GetWebhooksByUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, hooks)
}

func TestUpdateWebhook(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	ch, err := env.store.CreateChannel("builds", "", alice.ID, false, false)
	require.NoError(t, err)
	hook := env.createHook(t, alice, ch.ID, "CI Bot")

	resp := env.do(t, http.MethodPut, "/api/webhooks/"+hook.ID, bob.token, map[string]string{"display_name": "Mine"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/webhooks/"+hook.ID, alice.token, map[string]string{"description": "nightly builds"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.WebhookResponse
	decode(t, resp, &updated)
	assert.Equal(t, "CI Bot", updated.DisplayName)
	assert.Equal(t, "nightly builds", updated.Description)
	assert.Equal(t, hook.Token, updated.Token)

	resp = env.do(t, http.MethodGet, "/api/webhooks/"+hook.ID, bob.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var seen models.WebhookResponse
	decode(t, resp, &seen)
	assert.Empty(t, seen.Token)

	resp = env.do(t, http.MethodDelete, "/api/webhooks/"+hook.ID, bob.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/webhooks/"+hook.ID, alice.token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func dialWS(t *testing.T, env *testEnv, u testUser) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/ws?token=" + u.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var welcome models.WSMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "welcome", welcome.Type)

	require.Eventually(t, func() bool {
		return env.srv.Hub.Connections(u.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

type formUpdate struct {
	Type    string       `json:"type"`
	Payload FormResponse `json:"payload"`
}

func readFormUpdate(t *testing.T, conn *websocket.Conn) FormResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg formUpdate
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == models.WSTypeFormUpdate {
			return msg.Payload
		}
	}
}

func TestFormSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	ch, err := env.store.CreateChannel("builds", "", alice.ID, false, false)
	require.NoError(t, err)

	conn := dialWS(t, env, alice)

	resp := env.do(t, http.MethodPost, "/api/teams/core/incoming_webhooks/forms", alice.token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var form FormResponse
	decode(t, resp, &form)
	assert.Equal(t, "add_incoming_webhook.header", form.View.Header.ID)
	assert.Equal(t, "/core/integrations/incoming_webhooks", form.View.Cancel.To)

	resp = env.do(t, http.MethodGet, "/api/forms/"+form.ID, bob.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/submit", alice.token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var invalid FormResponse
	decode(t, resp, &invalid)
	assert.Equal(t, "invalid", invalid.Status)
	require.Len(t, invalid.View.Errors, 1)
	assert.Equal(t, "add_incoming_webhook.channelRequired", invalid.View.Errors[0].Label.ID)

	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/fields", alice.token, `{"field":"color","value":"red"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	events := `{"field":"display_name","value":"CI"}` + "\n" + `{"field":"channel_id","value":"` + ch.ID + `"}`
	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/fields", alice.token, events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var edited FormResponse
	decode(t, resp, &edited)
	assert.Equal(t, "CI", edited.View.Fields[0].Value)
	assert.Equal(t, ch.ID, edited.View.Fields[2].Value)
	// errors stay until the next submit
	assert.Len(t, edited.View.Errors, 1)

	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/submit", alice.token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	pushed := readFormUpdate(t, conn)
	assert.Equal(t, form.ID, pushed.ID)
	assert.False(t, pushed.View.Submit.Spinning)
	assert.Empty(t, pushed.View.Errors)
	require.NotNil(t, pushed.View.Result)
	assert.Equal(t, "/core/integrations/confirm?type=incoming_webhooks&id="+pushed.View.Result.HookID, pushed.View.Result.Redirect)

	hooks, err := env.store.GetWebhooksByUser(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, "CI", hooks[0].DisplayName)

	resp = env.do(t, http.MethodDelete, "/api/forms/"+form.ID, alice.token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/forms/"+form.ID, alice.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditFormSession(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	ch, err := env.store.CreateChannel("builds", "", alice.ID, false, false)
	require.NoError(t, err)
	hook := env.createHook(t, alice, ch.ID, "CI Bot")

	resp := env.do(t, http.MethodPost, "/api/teams/core/incoming_webhooks/"+hook.ID+"/forms", bob.token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/teams/core/incoming_webhooks/"+hook.ID+"/forms", alice.token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var form FormResponse
	decode(t, resp, &form)
	assert.Equal(t, "integrations.edit", form.View.Header.ID)
	assert.Equal(t, "update_incoming_webhook.update", form.View.Submit.Label.ID)
	assert.Equal(t, "CI Bot", form.View.Fields[0].Value)

	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/fields", alice.token, `{"field":"description","value":"`+strings.Repeat("d", 129)+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/submit?wait=true", alice.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var failed FormResponse
	decode(t, resp, &failed)
	require.Len(t, failed.View.Errors, 1)
	assert.Equal(t, "Description must be 128 characters or fewer", failed.View.Errors[0].Message)

	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/fields", alice.token, `{"field":"description","value":"nightly"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/submit?wait=true", alice.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved FormResponse
	decode(t, resp, &saved)
	assert.Empty(t, saved.View.Errors)
	require.NotNil(t, saved.View.Result)
	assert.Equal(t, "/core/integrations/incoming_webhooks", saved.View.Result.Redirect)

	got, err := env.store.GetWebhook(context.Background(), hook.ID)
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Description)
}

func TestReapIdleForms(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")

	h := env.srv.Forms
	now := time.Now()
	h.now = func() time.Time { return now }

	resp := env.do(t, http.MethodPost, "/api/teams/core/incoming_webhooks/forms", alice.token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var form FormResponse
	decode(t, resp, &form)

	assert.Equal(t, 0, h.reap())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, h.reap())

	resp = env.do(t, http.MethodGet, "/api/forms/"+form.ID, alice.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectableChannels(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	_, err := env.store.CreateChannel("ops", "", alice.ID, false, true)
	require.NoError(t, err)

	names := func(u testUser) []string {
		resp := env.do(t, http.MethodGet, "/api/channels/selectable", u.token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var chs []models.Channel
		decode(t, resp, &chs)
		out := []string{}
		for _, c := range chs {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"general", "ops"}, names(alice))
	assert.Equal(t, []string{"general"}, names(bob))
}

func TestEmojiPreview(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")

	preview := func(name string) (int, map[string]interface{}) {
		resp := env.do(t, http.MethodGet, "/api/emoji/preview?name="+url.QueryEscape(name), alice.token, nil)
		var body map[string]interface{}
		decode(t, resp, &body)
		return resp.StatusCode, body
	}

	status, body := preview("")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["placeholder"])

	status, body = preview(":+1:")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, ":+1:", body["shortcode"])

	resp := env.do(t, http.MethodPost, "/api/emoji", alice.token, map[string]string{"name": "tada"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/emoji", alice.token, map[string]string{"name": "Bad Name"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/emoji", alice.token, map[string]string{"name": "parrot"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Emoji
	decode(t, resp, &created)

	status, body = preview("parrot")
	require.Equal(t, http.StatusOK, status)
	image := body["image"].(map[string]interface{})
	assert.Equal(t, "/api/emoji/"+created.ID+"/image", image["src"])

	status, _ = preview("nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func (h *Hub) subscribed(userID, channelID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.userID == userID && c.isSubscribed(channelID) {
			return true
		}
	}
	return false
}

func TestSubscribeRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	mallory := env.user(t, "mallory")

	private, err := env.store.CreateChannel("ops", "", alice.ID, false, true)
	require.NoError(t, err)
	builds, err := env.store.CreateChannel("builds", "", alice.ID, false, false)
	require.NoError(t, err)
	hook := env.createHook(t, alice, private.ID, "Deploys")

	conn := dialWS(t, env, mallory)

	resp := env.do(t, http.MethodPost, "/api/channels/"+builds.ID+"/join", mallory.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, id := range []string{private.ID, builds.ID} {
		require.NoError(t, conn.WriteJSON(models.WSMessage{
			Type:    "subscribe",
			Payload: map[string]string{"channel_id": id},
		}))
	}
	require.Eventually(t, func() bool {
		return env.srv.Hub.subscribed(mallory.ID, builds.ID)
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, env.srv.Hub.subscribed(mallory.ID, private.ID))

	err = slack.PostWebhook(env.ts.URL+hook.Webhook.URL(), &slack.WebhookMessage{Text: "secret deploy key rotated"})
	require.NoError(t, err)
	resp = env.do(t, http.MethodPost, "/api/messages", mallory.token, map[string]string{
		"channel_id": builds.ID,
		"content":    "hello",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg struct {
			Type    string         `json:"type"`
			Payload models.Message `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != models.WSTypeNewMessage {
			continue
		}
		assert.Equal(t, builds.ID, msg.Payload.ChannelID)
		assert.Equal(t, "hello", msg.Payload.Content)
		break
	}
}

func TestHubLeaveAfterShutdown(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			h.leave(&Client{hub: h, userID: "u"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}
}

func TestWebhookVisibilityFollowsChannel(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	private, err := env.store.CreateChannel("ops", "", alice.ID, false, true)
	require.NoError(t, err)
	hook := env.createHook(t, alice, private.ID, "Secret Bot")

	resp := env.do(t, http.MethodGet, "/api/webhooks?channel_id="+private.ID, bob.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/webhooks/"+hook.ID, bob.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/webhooks?channel_id=missing", bob.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/webhooks?channel_id="+private.ID, alice.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hooks []models.WebhookResponse
	decode(t, resp, &hooks)
	require.Len(t, hooks, 1)
	assert.Equal(t, "Secret Bot", hooks[0].DisplayName)

	// members who did not create the hook see it without the token
	require.NoError(t, env.store.JoinChannel(private.ID, bob.ID))
	resp = env.do(t, http.MethodGet, "/api/webhooks/"+hook.ID, bob.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var seen models.WebhookResponse
	decode(t, resp, &seen)
	assert.Equal(t, "Secret Bot", seen.DisplayName)
	assert.Empty(t, seen.Token)
}

func TestUpdateFieldBatchIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/teams/core/incoming_webhooks/forms", alice.token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var form FormResponse
	decode(t, resp, &form)

	events := `{"field":"display_name","value":"CI"}` + "\n" + `{"field":"color","value":"red"}`
	resp = env.do(t, http.MethodPost, "/api/forms/"+form.ID+"/fields", alice.token, events)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unknown field: color", errorMessage(t, resp))

	resp = env.do(t, http.MethodGet, "/api/forms/"+form.ID, alice.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current FormResponse
	decode(t, resp, &current)
	assert.Empty(t, current.View.Fields[0].Value)
}
