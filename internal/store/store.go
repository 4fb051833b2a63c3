package store

import (
	"context"
	"errors"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicate              = errors.New("duplicate record")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Store is the row storage behind the self-hosted backend.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, account *models.Account) error
	GetUserByEmail(ctx context.Context, email string) (*models.Account, error)
	GetUserByID(ctx context.Context, id string) (*models.Account, error)

	// Profile operations
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, expectedUpdatedAt time.Time) (*models.Profile, error)
	TopProfiles(ctx context.Context, limit int) ([]models.Profile, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error)

	// Gold operations
	CreateTransaction(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error)
	GetTransactions(ctx context.Context, userID string) ([]models.GoldTransaction, error)

	// Gaming session operations
	CreateGamingSession(ctx context.Context, session models.GamingSession) (*models.GamingSession, error)
	GetGamingSessions(ctx context.Context) ([]models.GamingSession, error)

	// Chat operations
	SaveMessage(ctx context.Context, entry models.NewChatMessage) (*models.ChatMessage, error)
	GetChatMessages(ctx context.Context) ([]models.ChatMessage, error)

	Close() error
}
