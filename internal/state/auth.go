package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"go.uber.org/zap"
)

type AuthStatus string

const (
	StatusUnauthenticated AuthStatus = "unauthenticated"
	StatusLoading         AuthStatus = "loading"
	StatusAuthenticated   AuthStatus = "authenticated"
	StatusError           AuthStatus = "error"
)

// MsgConfirmEmail is shown after a sign-up that still needs email confirmation.
const MsgConfirmEmail = "Check your email to confirm your account, then sign in."

// AuthState is a copy of the auth store, safe to read without locking.
type AuthState struct {
	Status AuthStatus   `json:"status"`
	User   *models.User `json:"user,omitempty"`
	Error  string       `json:"error,omitempty"`
	Notice string       `json:"notice,omitempty"`
}

// Auth tracks the browser's identity. The access token never leaves the store except through
// Context and Token.
type Auth struct {
	gw gateway.Gateway

	mu      sync.Mutex
	seq     sequencer
	status  AuthStatus
	session *models.Session
	err     string
	notice  string

	watch watchers
	now   func() time.Time
}

func NewAuth(gw gateway.Gateway) *Auth {
	return &Auth{gw: gw, status: StatusLoading, now: time.Now}
}

// expireLocked ends a session whose access token has run out. It reports whether it did.
func (a *Auth) expireLocked() bool {
	if a.session == nil || a.session.ExpiresAt.IsZero() || a.now().Before(a.session.ExpiresAt) {
		return false
	}
	zap.L().Info("Access token expired", zap.String("user_id", a.session.User.ID))
	a.session = nil
	a.status = StatusUnauthenticated
	return true
}

// checkExpiry runs expireLocked and tells watchers when the session ended.
func (a *Auth) checkExpiry() {
	a.mu.Lock()
	expired := a.expireLocked()
	a.mu.Unlock()
	if expired {
		a.watch.notify()
	}
}

func (a *Auth) Snapshot() AuthState {
	a.checkExpiry()
	a.mu.Lock()
	defer a.mu.Unlock()
	st := AuthState{Status: a.status, Error: a.err, Notice: a.notice}
	if a.seq.busy() {
		st.Status = StatusLoading
	}
	if a.session != nil && st.Status == StatusAuthenticated {
		u := a.session.User
		st.User = &u
	}
	return st
}

// User returns the signed-in user, if any.
func (a *Auth) User() (models.User, bool) {
	a.checkExpiry()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != StatusAuthenticated || a.session == nil {
		return models.User{}, false
	}
	return a.session.User, true
}

// Token returns the current access token, or "".
func (a *Auth) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

// Context attaches the current access token to ctx for gateway calls.
func (a *Auth) Context(ctx context.Context) context.Context {
	return gateway.WithAccessToken(ctx, a.Token())
}

// Watch registers fn to run after every applied change. The returned func removes it.
func (a *Auth) Watch(fn func()) func() {
	return a.watch.add(fn)
}

func (a *Auth) start() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = StatusLoading
	a.err = ""
	return a.seq.begin()
}

// finish applies the result of ticket t unless a newer auth result already landed.
func (a *Auth) finish(t uint64, apply func()) bool {
	a.mu.Lock()
	ok := a.seq.replace(t)
	if ok {
		apply()
	}
	a.mu.Unlock()
	if ok {
		a.watch.notify()
	}
	return ok
}

// Init runs the initial session check for a stored access token. An empty token resolves
// straight to unauthenticated.
func (a *Auth) Init(ctx context.Context, token string) {
	t := a.start()
	if token == "" {
		a.finish(t, func() { a.status = StatusUnauthenticated })
		return
	}

	sess, err := a.gw.GetSession(gateway.WithAccessToken(ctx, token))
	a.finish(t, func() {
		switch {
		case err != nil:
			zap.L().Warn("Session check failed", zap.Error(err))
			a.session = nil
			a.status = StatusUnauthenticated
		case sess == nil:
			a.session = nil
			a.status = StatusUnauthenticated
		default:
			a.session = sess
			a.status = StatusAuthenticated
		}
	})
}

func (a *Auth) SignIn(ctx context.Context, email, password string) error {
	t := a.start()
	sess, err := a.gw.SignIn(ctx, email, password)
	a.finish(t, func() {
		a.notice = ""
		if err != nil {
			a.session = nil
			a.status = StatusError
			a.err = ClassifyAuthError(err)
			return
		}
		a.session = sess
		a.status = StatusAuthenticated
	})
	return err
}

// SignUp registers and, when the backend issues a session straight away, signs in.
func (a *Auth) SignUp(ctx context.Context, email, password string) error {
	t := a.start()
	sess, err := a.gw.SignUp(ctx, email, password)
	a.finish(t, func() {
		a.notice = ""
		switch {
		case err != nil:
			a.session = nil
			a.status = StatusError
			a.err = ClassifyAuthError(err)
		case sess.AccessToken == "":
			a.session = nil
			a.status = StatusUnauthenticated
			a.notice = MsgConfirmEmail
		default:
			a.session = sess
			a.status = StatusAuthenticated
		}
	})
	return err
}

// SignOut always ends the local session; a backend failure is only logged.
func (a *Auth) SignOut(ctx context.Context) {
	token := a.Token()
	t := a.start()
	if err := a.gw.SignOut(gateway.WithAccessToken(ctx, token)); err != nil {
		zap.L().Warn("Backend sign-out failed", zap.Error(err))
	}
	a.finish(t, func() {
		a.session = nil
		a.status = StatusUnauthenticated
		a.notice = ""
	})
}

// Observe ends the session when err shows the backend no longer accepts the access token.
// It reports whether it did.
func (a *Auth) Observe(err error) bool {
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		return false
	}
	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return false
	}
	zap.L().Info("Backend rejected access token", zap.String("user_id", a.session.User.ID), zap.Error(err))
	a.session = nil
	a.status = StatusUnauthenticated
	a.mu.Unlock()
	a.watch.notify()
	return true
}

func (a *Auth) ClearError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = ""
	if a.status == StatusError {
		a.status = StatusUnauthenticated
	}
}
