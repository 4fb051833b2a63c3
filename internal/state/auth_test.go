package state

import (
	"context"
	"testing"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/gateway/gatewaytest"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/stretchr/testify/require"
)

func TestAuthInit(t *testing.T) {
	fake := gatewaytest.New()
	user, token := fake.AddUser("gamer@example.com", "hunter22")

	a := NewAuth(fake)
	require.Equal(t, StatusLoading, a.Snapshot().Status, "loading until the session check resolves")

	a.Init(context.Background(), "")
	require.Equal(t, StatusUnauthenticated, a.Snapshot().Status)
	require.Zero(t, fake.Calls("GetSession"), "no token, no backend call")

	a.Init(context.Background(), "stale-token")
	require.Equal(t, StatusUnauthenticated, a.Snapshot().Status)

	a.Init(context.Background(), token)
	st := a.Snapshot()
	require.Equal(t, StatusAuthenticated, st.Status)
	require.Equal(t, user, *st.User)
	require.Equal(t, token, a.Token())
	require.Equal(t, token, gateway.AccessToken(a.Context(context.Background())))
}

func TestAuthSignInFailureThenSuccess(t *testing.T) {
	fake := gatewaytest.New()
	fake.AddUser("gamer@example.com", "hunter22")
	a := NewAuth(fake)

	changes := 0
	stop := a.Watch(func() { changes++ })
	defer stop()

	err := a.SignIn(context.Background(), "gamer@example.com", "wrong")
	require.Error(t, err)
	st := a.Snapshot()
	require.Equal(t, StatusError, st.Status)
	require.Equal(t, MsgInvalidCredentials, st.Error)

	a.ClearError()
	require.Equal(t, StatusUnauthenticated, a.Snapshot().Status)
	require.Empty(t, a.Snapshot().Error)

	require.NoError(t, a.SignIn(context.Background(), "gamer@example.com", "hunter22"))
	u, ok := a.User()
	require.True(t, ok)
	require.Equal(t, "gamer@example.com", u.Email)
	require.Equal(t, 2, changes)

	a.SignOut(context.Background())
	_, ok = a.User()
	require.False(t, ok)
	require.Equal(t, StatusUnauthenticated, a.Snapshot().Status)
	require.Empty(t, a.Token())
	require.Equal(t, 1, fake.Calls("SignOut"))
}

func TestAuthSignOutBackendFailureStillSignsOut(t *testing.T) {
	fake := gatewaytest.New()
	_, token := fake.AddUser("gamer@example.com", "hunter22")
	a := NewAuth(fake)
	a.Init(context.Background(), token)

	fake.Fail("SignOut", gateway.NewError(gateway.CodeTransport, "connection reset"))
	a.SignOut(context.Background())
	require.Equal(t, StatusUnauthenticated, a.Snapshot().Status)
}

func TestAuthSignUp(t *testing.T) {
	fake := gatewaytest.New()
	a := NewAuth(fake)

	require.NoError(t, a.SignUp(context.Background(), "new@example.com", "hunter22"))
	require.Equal(t, StatusAuthenticated, a.Snapshot().Status)

	b := NewAuth(fake)
	require.Error(t, b.SignUp(context.Background(), "new@example.com", "hunter22"))
	require.Equal(t, MsgUserExists, b.Snapshot().Error)
}

// pendingSession answers SignUp with a user but no token, like a backend that wants email
// confirmation first.
type pendingSession struct {
	*gatewaytest.Fake
}

func (p pendingSession) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	sess, err := p.Fake.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sess.AccessToken = ""
	return sess, nil
}

func TestAuthSignUpNeedsConfirmation(t *testing.T) {
	a := NewAuth(pendingSession{gatewaytest.New()})
	require.NoError(t, a.SignUp(context.Background(), "new@example.com", "hunter22"))
	st := a.Snapshot()
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.Equal(t, MsgConfirmEmail, st.Notice)
}

func TestAuthExpiredTokenSignsOut(t *testing.T) {
	fake := gatewaytest.New()
	fake.AddUser("gamer@example.com", "hunter22")
	a := NewAuth(fake)
	require.NoError(t, a.SignIn(context.Background(), "gamer@example.com", "hunter22"))
	_, ok := a.User()
	require.True(t, ok)

	var notified int
	defer a.Watch(func() { notified++ })()
	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	st := a.Snapshot()
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.Nil(t, st.User)
	_, ok = a.User()
	require.False(t, ok)
	require.Empty(t, a.Token())
	require.Equal(t, 1, notified)
}

func TestAuthObserveRejectedToken(t *testing.T) {
	fake := gatewaytest.New()
	fake.AddUser("gamer@example.com", "hunter22")
	a := NewAuth(fake)
	require.NoError(t, a.SignIn(context.Background(), "gamer@example.com", "hunter22"))

	require.False(t, a.Observe(nil))
	require.False(t, a.Observe(gateway.NewError(gateway.CodeTransport, "boom")))
	require.Equal(t, StatusAuthenticated, a.Snapshot().Status)

	require.True(t, a.Observe(gateway.NewError(gateway.CodeUnauthenticated, "invalid access token")))
	require.Equal(t, StatusUnauthenticated, a.Snapshot().Status)
	require.False(t, a.Observe(gateway.ErrUnauthenticated), "nothing left to end")
}
