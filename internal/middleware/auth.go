package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/auth"
	"github.com/VULUxOMID/GoldGames/internal/session"
	"github.com/VULUxOMID/GoldGames/internal/state"

	"go.uber.org/zap"
)

type contextKey string

const AppKey contextKey = "app"

const (
	SessionCookie = "gg_session"
	TokenCookie   = "gg_token"
)

// AppFrom returns the browser state attached by Sessions.
func AppFrom(ctx context.Context) (*state.App, bool) {
	app, ok := ctx.Value(AppKey).(*state.App)
	return app, ok
}

func WithApp(ctx context.Context, app *state.App) context.Context {
	return context.WithValue(ctx, AppKey, app)
}

// Sessions binds every request to its browser's state.App through a signed session cookie. A
// browser without a live App gets a new one whose auth store is initialised from the signed
// token cookie.
type Sessions struct {
	Registry *session.Registry
	Signer   *auth.Signer
	Secure   bool
}

func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app := s.lookup(r)
		if app == nil {
			app = s.Registry.Create()
			s.setCookie(w, SessionCookie, s.Signer.Sign(app.ID), 0)
			app.Auth.Init(r.Context(), s.token(r))
			zap.L().Debug("Started browser session", zap.String("session_id", app.ID))
		}

		next.ServeHTTP(w, r.WithContext(WithApp(r.Context(), app)))
	})
}

func (s *Sessions) lookup(r *http.Request) *state.App {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	id, err := s.Signer.Verify(cookie.Value)
	if err != nil {
		zap.L().Warn("Rejected session cookie", zap.Error(err))
		return nil
	}
	app, ok := s.Registry.Get(id)
	if !ok {
		return nil
	}
	return app
}

func (s *Sessions) token(r *http.Request) string {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	token, err := s.Signer.Verify(cookie.Value)
	if err != nil {
		return ""
	}
	return token
}

// SetToken stores the backend access token for the next visit, or clears it when token is "".
func (s *Sessions) SetToken(w http.ResponseWriter, token string) {
	if token == "" {
		s.setCookie(w, TokenCookie, "", -1)
		return
	}
	s.setCookie(w, TokenCookie, s.Signer.Sign(token), 0)
}

func (s *Sessions) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, c)
}
