package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"
)

func (s *SQLStore) SaveMessage(ctx context.Context, entry models.NewChatMessage) (*models.ChatMessage, error) {
	content := strings.TrimSpace(entry.Content)
	if content == "" {
		return nil, fmt.Errorf("message content must not be empty")
	}
	msg := models.ChatMessage{
		UserID:    entry.UserID,
		UserEmail: entry.UserEmail,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	query := s.rebind("INSERT INTO chat_messages (user_id, user_email, content, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowContext(ctx, query, msg.UserID, msg.UserEmail, msg.Content, formatTime(msg.CreatedAt)).Scan(&msg.ID); err != nil {
		return nil, fmt.Errorf("failed to insert chat message: %w", err)
	}

	var username sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT username FROM profiles WHERE id = ?"), msg.UserID).Scan(&username)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	msg.Username = username.String
	return &msg, nil
}

// GetChatMessages returns the whole room oldest first, with the author's username when a profile exists.
func (s *SQLStore) GetChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, m.user_email, p.username, m.content, m.created_at
		FROM chat_messages m
		LEFT JOIN profiles p ON m.user_id = p.id
		ORDER BY m.created_at ASC, m.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var (
			m         models.ChatMessage
			username  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.UserEmail, &username, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.Username = username.String
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
