// Package gateway is the only way the application talks to its backend service. Implementations
// wrap auth, row reads and writes, and the chat change feed; they keep no state of their own beyond
// connection plumbing, and report every failure as a *Error.
package gateway

import (
	"context"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"
)

// SubscriptionStatus reports the state of a change-feed subscription.
type SubscriptionStatus string

const (
	StatusSubscribed   SubscriptionStatus = "SUBSCRIBED"
	StatusChannelError SubscriptionStatus = "CHANNEL_ERROR"
	StatusTimedOut     SubscriptionStatus = "TIMED_OUT"
	StatusClosed       SubscriptionStatus = "CLOSED"
)

// ChatChannel is the logical change-feed channel the chat screen listens on.
const ChatChannel = "chat_messages"

// Unsubscribe stops future deliveries of a subscription. It is safe to call more than once.
type Unsubscribe func()

// InsertHandler receives rows pushed by the change feed, in receipt order.
type InsertHandler func(models.ChatMessage)

// StatusHandler receives subscription status transitions. err is non-nil for failures.
type StatusHandler func(SubscriptionStatus, error)

// Gateway is the backend contract. Calls that act on behalf of a user read the access token from
// the context (see WithAccessToken).
type Gateway interface {
	// SignUp registers a user. The returned session has an empty AccessToken when the backend
	// requires email confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	// GetSession validates the context's access token. It returns nil, nil when there is no session.
	GetSession(ctx context.Context) (*models.Session, error)

	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error)
	// UpdateProfile applies patch only if the stored updated_at still equals expectedUpdatedAt,
	// failing with ErrConflict otherwise.
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, expectedUpdatedAt time.Time) (*models.Profile, error)
	ListLeaderboard(ctx context.Context, limit int) ([]models.Profile, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error)

	CreateTransaction(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error)
	// ListTransactions returns the user's transactions newest first.
	ListTransactions(ctx context.Context, userID string) ([]models.GoldTransaction, error)

	ListSessions(ctx context.Context) ([]models.GamingSession, error)

	// ListChatMessages returns every message oldest first, joined with the author's username.
	ListChatMessages(ctx context.Context) ([]models.ChatMessage, error)
	InsertChatMessage(ctx context.Context, entry models.NewChatMessage) (*models.ChatMessage, error)
	SubscribeToChatInserts(ctx context.Context, onInsert InsertHandler, onStatus StatusHandler) (Unsubscribe, error)
}

type accessTokenKey struct{}

// WithAccessToken attaches the caller's backend access token to a context.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken, or "".
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
