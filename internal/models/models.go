package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is the authenticated identity returned by the backend.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session pairs a user with the access token the backend issued for it.
type Session struct {
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

type Profile struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Avatar      string          `json:"avatar"`
	TotalGold   decimal.Decimal `json:"total_gold"`
	GamesPlayed int             `json:"games_played"`
	WinRate     float64         `json:"win_rate"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProfilePatch holds the editable profile fields. Nil fields are left untouched.
type ProfilePatch struct {
	Username *string `json:"username,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// DefaultProfile seeds a profile row for a user that has none yet.
func DefaultProfile(user User) Profile {
	username := user.Email
	if i := strings.Index(username, "@"); i > 0 {
		username = username[:i]
	}
	return Profile{
		ID:        user.ID,
		Username:  username,
		TotalGold: decimal.Zero,
	}
}

type TransactionType string

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

// GoldTransaction is an immutable wallet ledger entry.
type GoldTransaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Signed returns the amount with the sign its type contributes to a balance.
func (t GoldTransaction) Signed() decimal.Decimal {
	if t.Type == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// NewTransaction is what a client sends to record a transaction.
type NewTransaction struct {
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
}

type GamingSession struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	MaxPlayers     int        `json:"max_players"`
	CurrentPlayers int        `json:"current_players"`
	Status         string     `json:"status"`
}

type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Author is the profile username when the read joined one, else the stored email.
func (m ChatMessage) Author() string {
	if m.Username != "" {
		return m.Username
	}
	return m.UserEmail
}

// NewChatMessage is what a client sends to post a chat message.
type NewChatMessage struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	Content   string `json:"content"`
}

type LeaderboardEntry struct {
	Rank        int             `json:"rank"`
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	Avatar      string          `json:"avatar"`
	TotalGold   decimal.Decimal `json:"total_gold"`
	GamesPlayed int             `json:"games_played"`
	WinRate     float64         `json:"win_rate"`
}

// Account is a credential record kept by the self-hosted backend.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Player is a profile as other users see it in search results.
type Player struct {
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	Avatar      string          `json:"avatar"`
	TotalGold   decimal.Decimal `json:"total_gold"`
	GamesPlayed int             `json:"games_played"`
}

// MaskEmail hides most of the local part of an address, e.g. "alice@x.io" -> "al***@x.io".
// Strings that are not a single local@domain pair come back unchanged.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return email
	}
	local, domain := parts[0], parts[1]
	length := len(local)
	visible := 1
	if length > 2 {
		visible = length / 2
		if visible > 3 {
			visible = 3
		}
	}
	return local[:visible] + strings.Repeat("*", length-visible) + "@" + domain
}
