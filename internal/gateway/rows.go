package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/shopspring/decimal"
)

// Row is a loosely typed record as the backend sends it.
type Row map[string]any

// ParseError reports a row that does not match the expected entity shape.
type ParseError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s row: field %q %s", e.Entity, e.Field, e.Reason)
}

func parseFailure(entity, field, reason string) error {
	pe := &ParseError{Entity: entity, Field: field, Reason: reason}
	return &Error{Code: CodeParse, Message: pe.Error(), Err: pe}
}

// DecodeRows reads a JSON array of objects, keeping numbers exact.
func DecodeRows(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, Wrap(CodeParse, fmt.Errorf("failed to decode rows: %w", err))
	}
	return rows, nil
}

// DecodeRow reads a single JSON object, keeping numbers exact.
func DecodeRow(r io.Reader) (Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var row Row
	if err := dec.Decode(&row); err != nil {
		return nil, Wrap(CodeParse, fmt.Errorf("failed to decode row: %w", err))
	}
	return row, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999",
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

type rowReader struct {
	entity string
	row    Row
	err    error
}

func (r *rowReader) fail(field, reason string) {
	if r.err == nil {
		r.err = parseFailure(r.entity, field, reason)
	}
}

func (r *rowReader) str(field string, required bool) string {
	v, ok := r.row[field]
	if !ok || v == nil {
		if required {
			r.fail(field, "is missing")
		}
		return ""
	}
	switch t := v.(type) {
	case string:
		if required && t == "" {
			r.fail(field, "is empty")
		}
		return t
	case json.Number:
		return t.String()
	default:
		r.fail(field, fmt.Sprintf("has type %T, want string", v))
		return ""
	}
}

func (r *rowReader) int64(field string, required bool) int64 {
	v, ok := r.row[field]
	if !ok || v == nil {
		if required {
			r.fail(field, "is missing")
		}
		return 0
	}
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			r.fail(field, "is not an integer")
		}
		return n
	case float64:
		if t != float64(int64(t)) {
			r.fail(field, "is not an integer")
		}
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			r.fail(field, "is not an integer")
		}
		return n
	default:
		r.fail(field, fmt.Sprintf("has type %T, want integer", v))
		return 0
	}
}

func (r *rowReader) float(field string) float64 {
	v, ok := r.row[field]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			r.fail(field, "is not a number")
		}
		return f
	case float64:
		return t
	case int:
		return float64(t)
	default:
		r.fail(field, fmt.Sprintf("has type %T, want number", v))
		return 0
	}
}

func (r *rowReader) decimal(field string, required bool) decimal.Decimal {
	v, ok := r.row[field]
	if !ok || v == nil {
		if required {
			r.fail(field, "is missing")
		}
		return decimal.Zero
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case string:
		d, err = decimal.NewFromString(t)
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	default:
		r.fail(field, fmt.Sprintf("has type %T, want number", v))
		return decimal.Zero
	}
	if err != nil {
		r.fail(field, "is not a number")
	}
	return d
}

func (r *rowReader) time(field string, required bool) time.Time {
	s := r.str(field, required)
	if s == "" {
		return time.Time{}
	}
	t, err := parseTime(s)
	if err != nil {
		r.fail(field, "is not a timestamp")
	}
	return t
}

func (r *rowReader) optionalTime(field string) *time.Time {
	if v, ok := r.row[field]; !ok || v == nil {
		return nil
	}
	t := r.time(field, false)
	if t.IsZero() {
		return nil
	}
	return &t
}

// ParseUser parses an auth user object.
func ParseUser(row Row) (models.User, error) {
	r := &rowReader{entity: "user", row: row}
	u := models.User{
		ID:    r.str("id", true),
		Email: r.str("email", false),
	}
	return u, r.err
}

func ParseProfile(row Row) (models.Profile, error) {
	r := &rowReader{entity: "profile", row: row}
	p := models.Profile{
		ID:          r.str("id", true),
		Username:    r.str("username", true),
		Avatar:      r.str("avatar", false),
		TotalGold:   r.decimal("total_gold", false),
		GamesPlayed: int(r.int64("games_played", false)),
		WinRate:     r.float("win_rate"),
		CreatedAt:   r.time("created_at", false),
		UpdatedAt:   r.time("updated_at", true),
	}
	return p, r.err
}

func ParseTransaction(row Row) (models.GoldTransaction, error) {
	r := &rowReader{entity: "gold_transaction", row: row}
	tx := models.GoldTransaction{
		ID:          r.str("id", true),
		UserID:      r.str("user_id", true),
		Amount:      r.decimal("amount", true),
		Description: r.str("description", false),
		CreatedAt:   r.time("created_at", true),
	}
	// older rows carry the kind as transaction_type
	kind := r.str("type", false)
	if kind == "" {
		kind = r.str("transaction_type", false)
	}
	tx.Type = models.TransactionType(kind)
	if r.err == nil && !tx.Type.Valid() {
		r.fail("type", fmt.Sprintf("is %q, want credit or debit", kind))
	}
	if r.err == nil && tx.Amount.IsNegative() {
		r.fail("amount", "is negative")
	}
	return tx, r.err
}

func ParseGamingSession(row Row) (models.GamingSession, error) {
	r := &rowReader{entity: "gaming_session", row: row}
	s := models.GamingSession{
		ID:             r.str("id", true),
		UserID:         r.str("user_id", false),
		Title:          r.str("title", false),
		StartTime:      r.time("start_time", true),
		EndTime:        r.optionalTime("end_time"),
		MaxPlayers:     int(r.int64("max_players", false)),
		CurrentPlayers: int(r.int64("current_players", false)),
		Status:         r.str("status", false),
	}
	return s, r.err
}

// ParseChatMessage parses a chat row. A nested "profiles" object, as produced by a joined read,
// supplies the author's username.
func ParseChatMessage(row Row) (models.ChatMessage, error) {
	r := &rowReader{entity: "chat_message", row: row}
	m := models.ChatMessage{
		ID:        r.int64("id", true),
		UserID:    r.str("user_id", true),
		UserEmail: r.str("user_email", false),
		Content:   r.str("content", true),
		CreatedAt: r.time("created_at", true),
	}
	if joined, ok := row["profiles"].(map[string]any); ok {
		if name, ok := joined["username"].(string); ok {
			m.Username = name
		}
	}
	return m, r.err
}

// ParseRows applies parse to every row, stopping at the first failure.
func ParseRows[T any](rows []Row, parse func(Row) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := parse(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
