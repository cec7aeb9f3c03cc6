package store

import (
	"context"
	"database/sql"
	"time"

	"smack-integrations/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const webhookColumns = `id, display_name, description, channel_id, token, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebhook(row rowScanner) (*models.Webhook, error) {
	w := &models.Webhook{}
	var updatedAt sql.NullTime
	err := row.Scan(&w.ID, &w.DisplayName, &w.Description, &w.ChannelID, &w.Token, &w.CreatedBy, &w.CreatedAt, &updatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	// rows migrated from the first schema have no updated_at
	w.UpdatedAt = w.CreatedAt
	if updatedAt.Valid {
		w.UpdatedAt = updatedAt.Time
	}
	return w, nil
}

func (s *Store) CreateWebhook(ctx context.Context, displayName, description, channelID, createdBy string) (*models.Webhook, error) {
	now := time.Now()
	webhook := &models.Webhook{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		Description: description,
		ChannelID:   channelID,
		Token:       uuid.New().String(),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhooks (id, display_name, description, channel_id, token, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, webhook.ID, webhook.DisplayName, webhook.Description, webhook.ChannelID, webhook.Token, webhook.CreatedBy, webhook.CreatedAt, webhook.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert webhook")
	}
	return webhook, nil
}

func (s *Store) GetWebhook(ctx context.Context, id string) (*models.Webhook, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id)
	return scanWebhook(row)
}

func (s *Store) GetWebhookByToken(ctx context.Context, id, token string) (*models.Webhook, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = ? AND token = ?`, id, token)
	return scanWebhook(row)
}

func (s *Store) listWebhooks(ctx context.Context, where string, arg string) ([]models.Webhook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+webhookColumns+`
		FROM webhooks WHERE `+where+` = ?
		ORDER BY created_at DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []models.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, *w)
	}
	return webhooks, rows.Err()
}

func (s *Store) GetWebhooksForChannel(ctx context.Context, channelID string) ([]models.Webhook, error) {
	return s.listWebhooks(ctx, "channel_id", channelID)
}

func (s *Store) GetWebhooksByUser(ctx context.Context, userID string) ([]models.Webhook, error) {
	return s.listWebhooks(ctx, "created_by", userID)
}

func (s *Store) UpdateWebhook(ctx context.Context, id, displayName, description, channelID string) (*models.Webhook, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE webhooks SET display_name = ?, description = ?, channel_id = ?, updated_at = ?
		WHERE id = ?
	`, displayName, description, channelID, time.Now(), id)
	if err != nil {
		return nil, errors.Wrap(err, "update webhook")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetWebhook(ctx, id)
}

// DeleteWebhook removes a hook owned by userID.
func (s *Store) DeleteWebhook(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM webhooks WHERE id = ? AND created_by = ?", id, userID)
	if err != nil {
		return errors.Wrap(err, "delete webhook")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
