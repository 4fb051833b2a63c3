package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSaveMessage(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	_, err := testStore.CreateProfile(ctx, models.Profile{ID: "u1", Username: "gamer", TotalGold: decimal.Zero})
	require.NoError(t, err)

	first, err := testStore.SaveMessage(ctx, models.NewChatMessage{UserID: "u1", UserEmail: "gamer@example.com", Content: " Hello "})
	if err != nil {
		t.Fatalf("Failed to save message: %v", err)
	}
	require.Equal(t, "Hello", first.Content)
	require.Equal(t, "gamer", first.Username)

	second, err := testStore.SaveMessage(ctx, models.NewChatMessage{UserID: "u2", UserEmail: "anon@example.com", Content: "Hi"})
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	messages, err := testStore.GetChatMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "gamer", messages[0].Author())
	require.Equal(t, "anon@example.com", messages[1].Author())

	_, err = testStore.SaveMessage(ctx, models.NewChatMessage{UserID: "u1", Content: "   "})
	require.Error(t, err)
}

func TestGamingSessions(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	_, err := testStore.CreateGamingSession(ctx, models.GamingSession{Title: "Early", StartTime: start, MaxPlayers: 4})
	require.NoError(t, err)
	_, err = testStore.CreateGamingSession(ctx, models.GamingSession{Title: "Late", StartTime: end, EndTime: &end, MaxPlayers: 8, Status: "active"})
	require.NoError(t, err)

	sessions, err := testStore.GetGamingSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "Late", sessions[0].Title)
	require.NotNil(t, sessions[0].EndTime)
	require.True(t, sessions[0].EndTime.Equal(end))
	require.Equal(t, "scheduled", sessions[1].Status)
	require.Nil(t, sessions[1].EndTime)
}
