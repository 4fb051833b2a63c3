package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/google/uuid"
)

func (s *SQLStore) CreateGamingSession(ctx context.Context, session models.GamingSession) (*models.GamingSession, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = "scheduled"
	}
	var endTime sql.NullString
	if session.EndTime != nil {
		endTime = sql.NullString{String: formatTime(*session.EndTime), Valid: true}
	}

	query := s.rebind(`
		INSERT INTO gaming_sessions (id, user_id, title, start_time, end_time, max_players, current_players, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.Title, formatTime(session.StartTime), endTime,
		session.MaxPlayers, session.CurrentPlayers, session.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to insert gaming session: %w", err)
	}
	return &session, nil
}

// GetGamingSessions lists every session, most recent start first.
func (s *SQLStore) GetGamingSessions(ctx context.Context) ([]models.GamingSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, start_time, end_time, max_players, current_players, status
		FROM gaming_sessions
		ORDER BY start_time DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.GamingSession
	for rows.Next() {
		var (
			gs        models.GamingSession
			startTime string
			endTime   sql.NullString
		)
		if err := rows.Scan(&gs.ID, &gs.UserID, &gs.Title, &startTime, &endTime, &gs.MaxPlayers, &gs.CurrentPlayers, &gs.Status); err != nil {
			return nil, err
		}
		if gs.StartTime, err = parseTime(startTime); err != nil {
			return nil, err
		}
		if endTime.Valid {
			t, err := parseTime(endTime.String)
			if err != nil {
				return nil, err
			}
			gs.EndTime = &t
		}
		sessions = append(sessions, gs)
	}
	return sessions, rows.Err()
}
