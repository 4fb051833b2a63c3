package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"
	"github.com/VULUxOMID/GoldGames/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ store.Store = (*SQLStore)(nil)

// Timestamps are stored as fixed-width UTC text so equality checks on updated_at are exact and
// lexical order matches time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite3" {
		// one connection keeps :memory: databases shared and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY REFERENCES users(id),
		username TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '',
		total_gold TEXT NOT NULL DEFAULT '0',
		games_played INTEGER NOT NULL DEFAULT 0,
		win_rate REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gold_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		amount TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('credit', 'debit')),
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_gold_transactions_user ON gold_transactions(user_id, created_at);

	CREATE TABLE IF NOT EXISTS gaming_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT,
		max_players INTEGER NOT NULL DEFAULT 0,
		current_players INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'scheduled'
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		user_email TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	if s.driverName == "postgres" {
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return t.UTC(), nil
}

// isUniqueViolation recognises unique-constraint failures from either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *SQLStore) CreateUser(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	query := s.rebind("INSERT INTO users (id, email, password, created_at) VALUES (?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, account.ID, strings.ToLower(account.Email), account.Password, formatTime(account.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email %s already registered", store.ErrDuplicate, account.Email)
	}
	return err
}

func (s *SQLStore) getUser(ctx context.Context, where string, arg any) (*models.Account, error) {
	var (
		a         models.Account
		createdAt string
	)
	query := s.rebind("SELECT id, email, password, created_at FROM users WHERE " + where + " = ?")
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Email, &a.Password, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getUser(ctx, "email", strings.ToLower(email))
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getUser(ctx, "id", id)
}

const profileColumns = "id, username, avatar, total_gold, games_played, win_rate, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	var (
		p                    models.Profile
		gold                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Username, &p.Avatar, &gold, &p.GamesPlayed, &p.WinRate, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.TotalGold, err = decimal.NewFromString(gold); err != nil {
		return nil, fmt.Errorf("failed to parse total_gold '%s': %w", gold, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := s.rebind("SELECT " + profileColumns + " FROM profiles WHERE id = ?")
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

func (s *SQLStore) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := s.rebind("INSERT INTO profiles (" + profileColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Username, profile.Avatar, profile.TotalGold.String(),
		profile.GamesPlayed, profile.WinRate, formatTime(now), formatTime(now))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: profile %s already exists", store.ErrDuplicate, profile.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile writes patch only while updated_at still equals expectedUpdatedAt.
func (s *SQLStore) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, expectedUpdatedAt time.Time) (*models.Profile, error) {
	now := time.Now().UTC()
	if !now.After(expectedUpdatedAt) {
		now = expectedUpdatedAt.Add(time.Microsecond)
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(now)}
	if patch.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *patch.Avatar)
	}
	args = append(args, id, formatTime(expectedUpdatedAt))

	query := s.rebind("UPDATE profiles SET " + strings.Join(sets, ", ") + " WHERE id = ? AND updated_at = ?")
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		zap.L().Warn("Profile update lost optimistic lock",
			zap.String("profile_id", id),
			zap.Time("expected_updated_at", expectedUpdatedAt))
		return nil, fmt.Errorf("profile update failed - %w", store.ErrConcurrentModification)
	}

	return s.GetProfile(ctx, id)
}

func (s *SQLStore) queryProfiles(ctx context.Context, query string, args ...any) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *SQLStore) TopProfiles(ctx context.Context, limit int) ([]models.Profile, error) {
	return s.queryProfiles(ctx,
		"SELECT "+profileColumns+" FROM profiles ORDER BY CAST(total_gold AS REAL) DESC, username ASC LIMIT ?", limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProfiles matches usernames containing queryStr, case-insensitively. LIKE wildcards in
// queryStr match themselves.
func (s *SQLStore) SearchProfiles(ctx context.Context, queryStr string, limit int) ([]models.Profile, error) {
	return s.queryProfiles(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE LOWER(username) LIKE ? ESCAPE '\\' ORDER BY username ASC LIMIT ?",
		"%"+likeEscaper.Replace(strings.ToLower(queryStr))+"%", limit)
}
