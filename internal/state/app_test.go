package state

import (
	"context"
	"testing"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/gateway/gatewaytest"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSessionsList(t *testing.T) {
	fake := gatewaytest.New()
	fake.AddSession(models.GamingSession{ID: "s1", Title: "Friday raid", StartTime: time.Now(), MaxPlayers: 5})
	s := NewSessions(fake)

	require.NoError(t, s.List(context.Background()))
	st := s.Snapshot()
	require.Len(t, st.Sessions, 1)
	require.False(t, st.Loading)

	fake.Fail("ListSessions", gateway.NewError(gateway.CodeTransport, "offline"))
	require.Error(t, s.List(context.Background()))
	st = s.Snapshot()
	require.Len(t, st.Sessions, 1, "failed reload keeps the last list")
	require.Equal(t, "offline", st.Error)
}

func TestAppDismissAndReset(t *testing.T) {
	fake := gatewaytest.New()
	app := NewApp("browser-1", fake)
	fake.Fail("ListSessions", gateway.NewError(gateway.CodeTransport, "offline"))
	require.Error(t, app.Sessions.List(context.Background()))

	require.True(t, app.Dismiss(StoreSessions))
	require.Empty(t, app.Sessions.Snapshot().Error)
	require.False(t, app.Dismiss("nope"))

	user, _ := fake.AddUser("gamer@example.com", "hunter22")
	require.NoError(t, app.Profile.Load(context.Background(), user))
	app.Reset()
	require.Nil(t, app.Profile.Snapshot().Profile)
	require.Equal(t, PhaseIdle, app.Profile.Snapshot().Phase)
}

// heldBackend parks CreateTransaction and GetProfile until released.
type heldBackend struct {
	*gatewaytest.Fake
	held chan chan struct{}
}

func (h *heldBackend) hold() {
	release := make(chan struct{})
	h.held <- release
	<-release
}

func (h *heldBackend) CreateTransaction(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error) {
	tx, err := h.Fake.CreateTransaction(ctx, entry)
	h.hold()
	return tx, err
}

func (h *heldBackend) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p, err := h.Fake.GetProfile(ctx, id)
	h.hold()
	return p, err
}

func TestResetRetiresActionsInFlight(t *testing.T) {
	fake := gatewaytest.New()
	backend := &heldBackend{Fake: fake, held: make(chan chan struct{})}
	app := NewApp("shared-browser", backend)
	ctx := context.Background()

	alice, _ := fake.AddUser("alice@example.com", "secret1")
	fake.PutProfile(models.Profile{ID: alice.ID, Username: "alice"})

	recorded := make(chan error)
	go func() {
		_, err := app.Gold.Record(ctx, models.NewTransaction{UserID: alice.ID, Amount: decimal.NewFromInt(500), Type: models.Credit})
		recorded <- err
	}()
	releaseRecord := <-backend.held

	loaded := make(chan error)
	go func() { loaded <- app.Profile.Load(ctx, alice) }()
	releaseLoad := <-backend.held

	// alice signs out and bob signs in on the same browser
	app.Reset()
	close(releaseRecord)
	require.NoError(t, <-recorded)
	close(releaseLoad)
	require.NoError(t, <-loaded)

	require.Nil(t, app.Profile.Snapshot().Profile)
	require.Equal(t, PhaseIdle, app.Profile.Snapshot().Phase)

	require.NoError(t, app.Gold.LoadHistory(ctx, "bob"))
	st := app.Gold.Snapshot()
	require.Empty(t, st.Transactions)
	require.True(t, st.Balance.IsZero())
	require.False(t, st.Loading)
}

func TestLoadHistoryKeepsOnlyTheUsersConfirmedRows(t *testing.T) {
	fake := gatewaytest.New()
	g := NewGold(fake)
	ctx := context.Background()

	_, err := g.Record(ctx, models.NewTransaction{UserID: "alice", Amount: decimal.NewFromInt(7), Type: models.Credit})
	require.NoError(t, err)

	require.NoError(t, g.LoadHistory(ctx, "bob"))
	require.Empty(t, g.Snapshot().Transactions)
	require.True(t, g.Snapshot().Balance.IsZero())
}
