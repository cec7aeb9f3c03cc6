// Package integrations provides the concrete incoming webhook forms: one
// that creates a hook and one that edits an existing hook.
package integrations

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"smack-integrations/models"
	"smack-integrations/store"
	"smack-integrations/webhookform"
)

var (
	ErrChannelNotFound  = errors.New("Unable to find the selected channel")
	ErrDirectChannel    = errors.New("Cannot create webhooks for direct message channels")
	ErrNotChannelMember = errors.New("You must belong to the private channel to set up a webhook for it")
	ErrHookNotFound     = errors.New("Unable to find the incoming webhook")
	ErrNotHookOwner     = errors.New("Only the creator of an incoming webhook can edit it")
)

// HookStore is the persistence the forms need.
type HookStore interface {
	GetChannel(id string) (*models.Channel, error)
	IsChannelMember(ctx context.Context, channelID, userID string) (bool, error)
	CreateWebhook(ctx context.Context, displayName, description, channelID, createdBy string) (*models.Webhook, error)
	GetWebhook(ctx context.Context, id string) (*models.Webhook, error)
	UpdateWebhook(ctx context.Context, id, displayName, description, channelID string) (*models.Webhook, error)
	DeleteWebhook(ctx context.Context, id, userID string) error
}

var (
	_ webhookform.Action = (*AddIncomingWebhook)(nil)
	_ webhookform.Action = (*EditIncomingWebhook)(nil)
)

func ListPath(team string) string {
	return fmt.Sprintf("/%s/integrations/incoming_webhooks", team)
}

// checkChannel verifies that userID may route a hook into channelID.
func checkChannel(ctx context.Context, s HookStore, userID, channelID string) error {
	channel, err := s.GetChannel(channelID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrChannelNotFound
	}
	if err != nil {
		return err
	}

	if channel.IsDirect {
		return ErrDirectChannel
	}

	if channel.IsPrivate {
		member, err := s.IsChannelMember(ctx, channelID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotChannelMember
		}
	}
	return nil
}

type AddIncomingWebhook struct {
	store  HookStore
	team   string
	userID string
}

func NewAddIncomingWebhook(s HookStore, team, userID string) *AddIncomingWebhook {
	return &AddIncomingWebhook{store: s, team: team, userID: userID}
}

func (a *AddIncomingWebhook) Header() webhookform.Label {
	return webhookform.Label{ID: "add_incoming_webhook.header", DefaultText: "Add"}
}

func (a *AddIncomingWebhook) Footer() webhookform.Label {
	return webhookform.Label{ID: "add_incoming_webhook.save", DefaultText: "Save"}
}

func (a *AddIncomingWebhook) PerformAction(ctx context.Context, hook webhookform.Payload) (webhookform.Result, error) {
	req := newHookRequest(hook)
	if err := validate(req); err != nil {
		return webhookform.Result{}, err
	}

	if err := checkChannel(ctx, a.store, a.userID, req.ChannelID); err != nil {
		return webhookform.Result{}, err
	}

	created, err := a.store.CreateWebhook(ctx, req.DisplayName, req.Description, req.ChannelID, a.userID)
	if err != nil {
		log.WithError(err).Error("failed to create incoming webhook")
		return webhookform.Result{}, errors.New("Failed to create webhook")
	}

	// the form already gave up on this save; keep the insert from surviving
	// a resubmit
	if err := ctx.Err(); err != nil {
		if derr := a.store.DeleteWebhook(context.WithoutCancel(ctx), created.ID, a.userID); derr != nil {
			log.WithError(derr).WithField("hook_id", created.ID).Error("failed to roll back abandoned webhook")
		}
		return webhookform.Result{}, err
	}

	log.WithFields(log.Fields{
		"hook_id":    created.ID,
		"channel_id": created.ChannelID,
		"user_id":    a.userID,
	}).Info("incoming webhook created")

	return webhookform.Result{
		HookID:   created.ID,
		Redirect: fmt.Sprintf("/%s/integrations/confirm?type=incoming_webhooks&id=%s", a.team, created.ID),
	}, nil
}

type EditIncomingWebhook struct {
	store  HookStore
	team   string
	userID string
	hookID string
}

// LoadEditIncomingWebhook fetches the hook being edited and returns the form
// action together with a draft prefilled from it.
func LoadEditIncomingWebhook(ctx context.Context, s HookStore, team, userID, hookID string) (*EditIncomingWebhook, webhookform.Draft, error) {
	hook, err := loadOwnedHook(ctx, s, userID, hookID)
	if err != nil {
		return nil, webhookform.Draft{}, err
	}

	draft := webhookform.Draft{
		DisplayName: hook.DisplayName,
		Description: hook.Description,
		ChannelID:   hook.ChannelID,
	}
	return &EditIncomingWebhook{store: s, team: team, userID: userID, hookID: hookID}, draft, nil
}

func loadOwnedHook(ctx context.Context, s HookStore, userID, hookID string) (*models.Webhook, error) {
	hook, err := s.GetWebhook(ctx, hookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrHookNotFound
	}
	if err != nil {
		return nil, err
	}
	if hook.CreatedBy != userID {
		return nil, ErrNotHookOwner
	}
	return hook, nil
}

func (e *EditIncomingWebhook) Header() webhookform.Label {
	return webhookform.Label{ID: "integrations.edit", DefaultText: "Edit"}
}

func (e *EditIncomingWebhook) Footer() webhookform.Label {
	return webhookform.Label{ID: "update_incoming_webhook.update", DefaultText: "Update"}
}

func (e *EditIncomingWebhook) PerformAction(ctx context.Context, hook webhookform.Payload) (webhookform.Result, error) {
	req := newHookRequest(hook)
	if err := validate(req); err != nil {
		return webhookform.Result{}, err
	}

	if _, err := loadOwnedHook(ctx, e.store, e.userID, e.hookID); err != nil {
		return webhookform.Result{}, err
	}

	if err := checkChannel(ctx, e.store, e.userID, req.ChannelID); err != nil {
		return webhookform.Result{}, err
	}

	updated, err := e.store.UpdateWebhook(ctx, e.hookID, req.DisplayName, req.Description, req.ChannelID)
	if errors.Is(err, store.ErrNotFound) {
		return webhookform.Result{}, ErrHookNotFound
	}
	if err != nil {
		log.WithError(err).Error("failed to update incoming webhook")
		return webhookform.Result{}, errors.New("Failed to update webhook")
	}

	log.WithFields(log.Fields{
		"hook_id":    updated.ID,
		"channel_id": updated.ChannelID,
	}).Info("incoming webhook updated")

	return webhookform.Result{HookID: updated.ID, Redirect: ListPath(e.team)}, nil
}
