package models

import "time"

// Emoji is either a system emoji, identified by its aliases and sprite
// filename, or a custom emoji uploaded by a user.
type Emoji struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Aliases   []string  `json:"aliases,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	CreatorID string    `json:"creator_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func (e *Emoji) IsSystem() bool {
	return len(e.Aliases) > 0
}
