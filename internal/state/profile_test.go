package state

import (
	"context"
	"testing"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/gateway/gatewaytest"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProfileLoadCreatesDefault(t *testing.T) {
	fake := gatewaytest.New()
	user, _ := fake.AddUser("gamer@example.com", "hunter22")
	p := NewProfile(fake)

	require.NoError(t, p.Load(context.Background(), user))
	st := p.Snapshot()
	require.Equal(t, PhaseCreated, st.Phase)
	require.Equal(t, "gamer", st.Profile.Username)
	require.Equal(t, user.ID, st.Profile.ID)
	require.Equal(t, 1, fake.Calls("CreateProfile"))

	require.NoError(t, p.Load(context.Background(), user))
	require.Equal(t, PhaseFound, p.Snapshot().Phase)
	require.Equal(t, 1, fake.Calls("CreateProfile"))
}

// raceLost behaves as if another session inserted the profile between our read and our insert.
type raceLost struct {
	*gatewaytest.Fake
	user models.User
}

func (r raceLost) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	winner := models.DefaultProfile(r.user)
	winner.Username = "winner"
	if _, err := r.Fake.CreateProfile(ctx, winner); err != nil {
		return nil, err
	}
	return r.Fake.CreateProfile(ctx, profile)
}

func TestProfileLoadRefetchesAfterLostRace(t *testing.T) {
	fake := gatewaytest.New()
	user, _ := fake.AddUser("gamer@example.com", "hunter22")
	p := NewProfile(raceLost{Fake: fake, user: user})

	require.NoError(t, p.Load(context.Background(), user))
	st := p.Snapshot()
	require.Equal(t, PhaseFound, st.Phase)
	require.Equal(t, "winner", st.Profile.Username)
	require.Empty(t, st.Error)
	require.Equal(t, 2, fake.Calls("GetProfile"))
}

func TestProfileLoadError(t *testing.T) {
	fake := gatewaytest.New()
	user, _ := fake.AddUser("gamer@example.com", "hunter22")
	fake.Fail("GetProfile", gateway.NewError(gateway.CodeTransport, "timeout"))
	p := NewProfile(fake)

	require.Error(t, p.Load(context.Background(), user))
	st := p.Snapshot()
	require.Equal(t, PhaseError, st.Phase)
	require.Equal(t, "timeout", st.Error)
	require.False(t, st.Loading)
	require.Zero(t, fake.Calls("CreateProfile"))
}

func TestProfileSave(t *testing.T) {
	fake := gatewaytest.New()
	user, _ := fake.AddUser("gamer@example.com", "hunter22")
	p := NewProfile(fake)
	ctx := context.Background()

	name := "pro"
	require.Error(t, p.Save(ctx, models.ProfilePatch{Username: &name}), "nothing loaded yet")
	require.Zero(t, fake.Calls("UpdateProfile"))
	p.ClearError()

	require.NoError(t, p.Load(ctx, user))
	p.Edit()
	require.True(t, p.Snapshot().IsEditing)

	require.NoError(t, p.Save(ctx, models.ProfilePatch{Username: &name}))
	st := p.Snapshot()
	require.False(t, st.IsEditing)
	require.Equal(t, "pro", st.Profile.Username)
	require.Empty(t, st.Error)
}

func TestProfileSaveConflict(t *testing.T) {
	fake := gatewaytest.New()
	user, _ := fake.AddUser("gamer@example.com", "hunter22")
	p := NewProfile(fake)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, user))
	before := p.Snapshot().Profile

	// another session edits the row
	other := *before
	other.Username = "elsewhere"
	other.UpdatedAt = before.UpdatedAt.Add(1)
	other.TotalGold = decimal.NewFromInt(1)
	fake.PutProfile(other)

	p.Edit()
	name := "mine"
	err := p.Save(ctx, models.ProfilePatch{Username: &name})
	require.ErrorIs(t, err, gateway.ErrConflict)

	st := p.Snapshot()
	require.Equal(t, MsgProfileConflict, st.Error)
	require.True(t, st.IsEditing, "editor stays open after a conflict")
	require.Equal(t, before.Username, st.Profile.Username, "no mutation applied")

	stored, err := fake.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "elsewhere", stored.Username)

	p.CancelEdit()
	st = p.Snapshot()
	require.False(t, st.IsEditing)
	require.Empty(t, st.Error)
}
