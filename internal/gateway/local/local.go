// Package local is a self-hosted backend: accounts and rows live in a SQL store, passwords are
// bcrypt hashes, access tokens are HS256 JWTs and the chat change feed is an in-process hub.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"
	"github.com/VULUxOMID/GoldGames/internal/store"
	"github.com/VULUxOMID/GoldGames/internal/ws"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var _ gateway.Gateway = (*Gateway)(nil)

const (
	tokenTTL          = time.Hour
	minPasswordLength = 6
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Gateway struct {
	store  store.Store
	hub    *ws.Hub
	secret []byte

	// signed-out token ids, kept until the token would have expired anyway
	mu      sync.Mutex
	revoked map[string]time.Time

	now func() time.Time
}

// New builds a gateway over st that signs tokens with secret. hub must be running.
func New(st store.Store, hub *ws.Hub, secret string) *Gateway {
	return &Gateway{
		store:   st,
		hub:     hub,
		secret:  []byte(secret),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (g *Gateway) signToken(user models.User) (*models.Session, error) {
	now := g.now()
	expires := now.Add(tokenTTL)
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s.%d", user.ID, now.UnixNano()),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.secret)
	if err != nil {
		return nil, gateway.Wrap(gateway.CodeUnknown, err)
	}
	return &models.Session{AccessToken: signed, ExpiresAt: expires.UTC(), User: user}, nil
}

func (g *Gateway) parseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, gone := g.revoked[c.ID]; gone {
		return nil, errors.New("token revoked")
	}
	return c, nil
}

// caller resolves the context's access token to the acting user.
func (g *Gateway) caller(ctx context.Context) (*Claims, error) {
	token := gateway.AccessToken(ctx)
	if token == "" {
		return nil, gateway.NewError(gateway.CodeUnauthenticated, "missing access token")
	}
	c, err := g.parseToken(token)
	if err != nil {
		return nil, &gateway.Error{Code: gateway.CodeUnauthenticated, Message: "invalid access token", Err: err}
	}
	return c, nil
}

// storeError maps store sentinels onto gateway codes.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &gateway.Error{Code: gateway.CodeNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, store.ErrDuplicate):
		return &gateway.Error{Code: gateway.CodeUniqueViolation, Message: err.Error(), Err: err}
	case errors.Is(err, store.ErrConcurrentModification):
		return &gateway.Error{Code: gateway.CodeConflict, Message: err.Error(), Err: err}
	default:
		return gateway.Wrap(gateway.CodeUnknown, err)
	}
}

func (g *Gateway) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	if len(password) < minPasswordLength {
		return nil, gateway.NewError(gateway.CodeWeakPassword, fmt.Sprintf("Password should be at least %d characters", minPasswordLength))
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, gateway.Wrap(gateway.CodeUnknown, err)
	}

	account := &models.Account{Email: email, Password: string(hashedPassword)}
	if err := g.store.CreateUser(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &gateway.Error{Code: gateway.CodeUserExists, Message: "User already registered", Err: err}
		}
		return nil, storeError(err)
	}
	zap.L().Info("Account created", zap.String("user_id", account.ID))
	return g.signToken(models.User{ID: account.ID, Email: account.Email})
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	account, err := g.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, gateway.NewError(gateway.CodeInvalidCredentials, "Invalid login credentials")
	}
	if err != nil {
		return nil, storeError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return nil, gateway.NewError(gateway.CodeInvalidCredentials, "Invalid login credentials")
	}
	return g.signToken(models.User{ID: account.ID, Email: account.Email})
}

func (g *Gateway) SignOut(ctx context.Context) error {
	c, err := g.parseToken(gateway.AccessToken(ctx))
	if err != nil {
		// already signed out or expired
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revoked[c.ID] = c.ExpiresAt.Time
	now := g.now()
	for id, exp := range g.revoked {
		if now.After(exp) {
			delete(g.revoked, id)
		}
	}
	return nil
}

func (g *Gateway) GetSession(ctx context.Context) (*models.Session, error) {
	token := gateway.AccessToken(ctx)
	if token == "" {
		return nil, nil
	}
	c, err := g.parseToken(token)
	if err != nil {
		return nil, nil
	}
	account, err := g.store.GetUserByID(ctx, c.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &models.Session{
		AccessToken: token,
		ExpiresAt:   c.ExpiresAt.Time.UTC(),
		User:        models.User{ID: account.ID, Email: account.Email},
	}, nil
}

func (g *Gateway) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if _, err := g.caller(ctx); err != nil {
		return nil, err
	}
	p, err := g.store.GetProfile(ctx, id)
	return p, storeError(err)
}

func (g *Gateway) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	c, err := g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if profile.ID != c.Subject {
		return nil, gateway.NewError(gateway.CodeUnauthenticated, "cannot create another user's profile")
	}
	p, err := g.store.CreateProfile(ctx, profile)
	return p, storeError(err)
}

func (g *Gateway) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, expectedUpdatedAt time.Time) (*models.Profile, error) {
	c, err := g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if id != c.Subject {
		return nil, gateway.NewError(gateway.CodeUnauthenticated, "cannot update another user's profile")
	}
	p, err := g.store.UpdateProfile(ctx, id, patch, expectedUpdatedAt)
	return p, storeError(err)
}

func (g *Gateway) ListLeaderboard(ctx context.Context, limit int) ([]models.Profile, error) {
	if _, err := g.caller(ctx); err != nil {
		return nil, err
	}
	profiles, err := g.store.TopProfiles(ctx, limit)
	return profiles, storeError(err)
}

func (g *Gateway) SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	if _, err := g.caller(ctx); err != nil {
		return nil, err
	}
	profiles, err := g.store.SearchProfiles(ctx, query, limit)
	return profiles, storeError(err)
}

func (g *Gateway) CreateTransaction(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error) {
	c, err := g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if entry.UserID != c.Subject {
		return nil, gateway.NewError(gateway.CodeUnauthenticated, "cannot record a transaction for another user")
	}
	tx, err := g.store.CreateTransaction(ctx, entry)
	return tx, storeError(err)
}

func (g *Gateway) ListTransactions(ctx context.Context, userID string) ([]models.GoldTransaction, error) {
	c, err := g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if userID != c.Subject {
		return nil, gateway.NewError(gateway.CodeUnauthenticated, "cannot read another user's transactions")
	}
	txs, err := g.store.GetTransactions(ctx, userID)
	return txs, storeError(err)
}

func (g *Gateway) ListSessions(ctx context.Context) ([]models.GamingSession, error) {
	if _, err := g.caller(ctx); err != nil {
		return nil, err
	}
	sessions, err := g.store.GetGamingSessions(ctx)
	return sessions, storeError(err)
}

func (g *Gateway) ListChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	if _, err := g.caller(ctx); err != nil {
		return nil, err
	}
	messages, err := g.store.GetChatMessages(ctx)
	return messages, storeError(err)
}

func (g *Gateway) InsertChatMessage(ctx context.Context, entry models.NewChatMessage) (*models.ChatMessage, error) {
	c, err := g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if entry.UserID != c.Subject {
		return nil, gateway.NewError(gateway.CodeUnauthenticated, "cannot post as another user")
	}
	msg, err := g.store.SaveMessage(ctx, entry)
	if err != nil {
		return nil, storeError(err)
	}
	if !g.hub.Publish(*msg) {
		zap.L().Warn("Chat hub stopped, insert not broadcast", zap.Int64("message_id", msg.ID))
	}
	return msg, nil
}

func (g *Gateway) SubscribeToChatInserts(ctx context.Context, onInsert gateway.InsertHandler, onStatus gateway.StatusHandler) (gateway.Unsubscribe, error) {
	if _, err := g.caller(ctx); err != nil {
		return nil, err
	}
	sub, ok := g.hub.Subscribe(onInsert, func() {
		if onStatus != nil {
			onStatus(gateway.StatusChannelError, errors.New("change feed dropped the subscription"))
		}
	})
	if !ok {
		return nil, gateway.NewError(gateway.CodeTransport, "change feed is not running")
	}
	if onStatus != nil {
		onStatus(gateway.StatusSubscribed, nil)
	}
	return sub.Close, nil
}
