package store

import (
	"context"
	"database/sql"
	"time"

	"smack-integrations/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrNotFound = errors.New("store: not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	store := &Store{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}

	return store, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		avatar_url TEXT,
		status TEXT DEFAULT 'offline',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		is_direct BOOLEAN DEFAULT FALSE,
		is_private BOOLEAN DEFAULT FALSE,
		created_by TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS channel_members (
		channel_id TEXT REFERENCES channels(id) ON DELETE CASCADE,
		user_id TEXT REFERENCES users(id),
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (channel_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_channel_members_user ON channel_members(user_id);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		channel_id TEXT REFERENCES channels(id) ON DELETE CASCADE,
		user_id TEXT REFERENCES users(id),
		content TEXT NOT NULL,
		html_content TEXT,
		widget_size TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id);

	CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		token TEXT NOT NULL,
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_webhooks_channel ON webhooks(channel_id);
	CREATE INDEX IF NOT EXISTS idx_webhooks_token ON webhooks(token);

	CREATE TABLE IF NOT EXISTS custom_emoji (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		creator_id TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.runMigrations(); err != nil {
		return err
	}

	// Create default #general channel if it doesn't exist
	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM channels WHERE name = 'general'").Scan(&count)
	if count == 0 {
		_, err := s.db.Exec(`
			INSERT INTO channels (id, name, description, is_direct, is_private, created_by)
			VALUES (?, 'general', 'General discussion', FALSE, FALSE, 'system')
		`, uuid.New().String())
		if err != nil {
			return err
		}
	}

	return nil
}

// runMigrations adds columns introduced after the first schema version.
func (s *Store) runMigrations() error {
	columns := []struct {
		table, column, ddl string
	}{
		{"channels", "is_private", `ALTER TABLE channels ADD COLUMN is_private BOOLEAN DEFAULT FALSE`},
		{"webhooks", "display_name", `ALTER TABLE webhooks ADD COLUMN display_name TEXT NOT NULL DEFAULT ''`},
		{"webhooks", "description", `ALTER TABLE webhooks ADD COLUMN description TEXT NOT NULL DEFAULT ''`},
		{"webhooks", "updated_at", `ALTER TABLE webhooks ADD COLUMN updated_at DATETIME`},
	}

	for _, c := range columns {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.column).Scan(&count)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if _, err := s.db.Exec(c.ddl); err != nil {
			return errors.Wrapf(err, "migrate %s.%s", c.table, c.column)
		}
		log.WithFields(log.Fields{"table": c.table, "column": c.column}).Info("added column")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// User operations

func (s *Store) CreateUser(username, displayName, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Status:       "online",
		CreatedAt:    time.Now(),
	}

	_, err = s.db.Exec(`
		INSERT INTO users (id, username, display_name, password_hash, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.DisplayName, user.PasswordHash, user.Status, user.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}

	// Auto-join the general channel
	var generalID string
	s.db.QueryRow("SELECT id FROM channels WHERE name = 'general'").Scan(&generalID)
	if generalID != "" {
		s.JoinChannel(generalID, user.ID)
	}

	return user, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(`
		SELECT id, username, display_name, password_hash, COALESCE(avatar_url, ''), status, created_at
		FROM users WHERE username = ?
	`, username).Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.AvatarURL, &user.Status, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(`
		SELECT id, username, display_name, password_hash, COALESCE(avatar_url, ''), status, created_at
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.AvatarURL, &user.Status, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Store) UpdateUserStatus(userID, status string) error {
	_, err := s.db.Exec("UPDATE users SET status = ? WHERE id = ?", status, userID)
	return err
}

func (s *Store) ValidatePassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

// EnsureBotUser creates the user row webhook posts are attributed to.
func (s *Store) EnsureBotUser(id, username, displayName, avatarURL string) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, username, display_name, password_hash, avatar_url, status, created_at)
		VALUES (?, ?, ?, '', ?, 'online', ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, avatar_url = excluded.avatar_url
	`, id, username, displayName, avatarURL, time.Now())
	return err
}

// Channel operations

func (s *Store) CreateChannel(name, description, createdBy string, isDirect, isPrivate bool) (*models.Channel, error) {
	channel := &models.Channel{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		IsDirect:    isDirect,
		IsPrivate:   isPrivate,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO channels (id, name, description, is_direct, is_private, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, channel.ID, channel.Name, channel.Description, channel.IsDirect, channel.IsPrivate, channel.CreatedBy, channel.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert channel")
	}

	// Creator auto-joins
	if err := s.JoinChannel(channel.ID, createdBy); err != nil {
		return nil, err
	}

	return channel, nil
}

func (s *Store) GetChannel(id string) (*models.Channel, error) {
	channel := &models.Channel{}
	err := s.db.QueryRow(`
		SELECT id, name, COALESCE(description, ''), is_direct, COALESCE(is_private, FALSE), COALESCE(created_by, ''), created_at
		FROM channels WHERE id = ?
	`, id).Scan(&channel.ID, &channel.Name, &channel.Description, &channel.IsDirect, &channel.IsPrivate, &channel.CreatedBy, &channel.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return channel, nil
}

func (s *Store) queryChannels(query string, args ...interface{}) ([]models.Channel, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var c models.Channel
		err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsDirect, &c.IsPrivate, &c.CreatedBy, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (s *Store) GetChannelsForUser(userID string) ([]models.Channel, error) {
	return s.queryChannels(`
		SELECT c.id, c.name, COALESCE(c.description, ''), c.is_direct, COALESCE(c.is_private, FALSE), COALESCE(c.created_by, ''), c.created_at
		FROM channels c
		JOIN channel_members cm ON c.id = cm.channel_id
		WHERE cm.user_id = ?
		ORDER BY c.name
	`, userID)
}

// GetSelectableChannels lists the channels a user may bind a webhook to:
// every open channel plus the private channels the user belongs to.
func (s *Store) GetSelectableChannels(userID string) ([]models.Channel, error) {
	return s.queryChannels(`
		SELECT c.id, c.name, COALESCE(c.description, ''), c.is_direct, COALESCE(c.is_private, FALSE), COALESCE(c.created_by, ''), c.created_at
		FROM channels c
		WHERE c.is_direct = FALSE
		AND (COALESCE(c.is_private, FALSE) = FALSE
			OR EXISTS (SELECT 1 FROM channel_members cm WHERE cm.channel_id = c.id AND cm.user_id = ?))
		ORDER BY c.name
	`, userID)
}

func (s *Store) JoinChannel(channelID, userID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO channel_members (channel_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, channelID, userID, time.Now())
	return err
}

func (s *Store) IsChannelMember(ctx context.Context, channelID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM channel_members WHERE channel_id = ? AND user_id = ?
	`, channelID, userID).Scan(&count)
	return count > 0, err
}

func (s *Store) GetChannelMembers(channelID string) ([]models.User, error) {
	rows, err := s.db.Query(`
		SELECT u.id, u.username, u.display_name, COALESCE(u.avatar_url, ''), u.status, u.created_at
		FROM users u
		JOIN channel_members cm ON u.id = cm.user_id
		WHERE cm.channel_id = ?
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Status, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Message operations

func (s *Store) CreateMessageWithHTML(channelID, userID, content string, htmlContent *string, widgetSize *string) (*models.Message, error) {
	msg := &models.Message{
		ID:          uuid.New().String(),
		ChannelID:   channelID,
		UserID:      userID,
		Content:     content,
		HTMLContent: htmlContent,
		WidgetSize:  widgetSize,
		CreatedAt:   time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, channel_id, user_id, content, html_content, widget_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChannelID, msg.UserID, msg.Content, msg.HTMLContent, msg.WidgetSize, msg.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	return msg, nil
}

func (s *Store) GetChannelMessages(channelID string, limit int) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, channel_id, user_id, content, html_content, widget_size, created_at
		FROM messages WHERE channel_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		err := rows.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.Content, &m.HTMLContent, &m.WidgetSize, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
