package store

import (
	"time"

	"smack-integrations/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func (s *Store) CreateEmoji(name, creatorID string) (*models.Emoji, error) {
	emoji := &models.Emoji{
		ID:        uuid.New().String(),
		Name:      name,
		CreatorID: creatorID,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO custom_emoji (id, name, creator_id, created_at) VALUES (?, ?, ?, ?)
	`, emoji.ID, emoji.Name, emoji.CreatorID, emoji.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert emoji")
	}
	return emoji, nil
}

func (s *Store) GetEmojiByName(name string) (*models.Emoji, error) {
	e := &models.Emoji{}
	err := s.db.QueryRow(`
		SELECT id, name, creator_id, created_at FROM custom_emoji WHERE name = ?
	`, name).Scan(&e.ID, &e.Name, &e.CreatorID, &e.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}
