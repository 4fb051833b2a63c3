// Package handlers serves the screens. Every screen answers a JSON document of the form
// {"shell": ..., "screen": ..., "view": ...}; the shell is omitted on the public screens.
package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/middleware"
	"github.com/VULUxOMID/GoldGames/internal/models"
	"github.com/VULUxOMID/GoldGames/internal/routes"
	"github.com/VULUxOMID/GoldGames/internal/session"
	"github.com/VULUxOMID/GoldGames/internal/state"

	"go.uber.org/zap"
)

const (
	defaultLeaderboardSize = 50
	defaultSearchLimit     = 20
)

// Handler holds what the screens need besides the per-browser state found in the request context.
type Handler struct {
	Gateway  gateway.Gateway
	Sessions *middleware.Sessions
	Registry *session.Registry

	LeaderboardSize int
	SearchLimit     int
}

type Shell struct {
	Email string         `json:"email"`
	Menu  []routes.Route `json:"menu"`
}

type Page struct {
	Shell  *Shell `json:"shell,omitempty"`
	Screen string `json:"screen"`
	View   any    `json:"view"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func render(w http.ResponseWriter, status int, route routes.Route, user models.User, view any) {
	writeJSON(w, status, Page{
		Shell:  &Shell{Email: user.Email, Menu: routes.Menu()},
		Screen: route.Screen,
		View:   view,
	})
}

// statusFor maps a gateway failure to the HTTP status carried with its banner.
func statusFor(err error) int {
	switch gateway.CodeOf(err) {
	case gateway.CodeNotFound:
		return http.StatusNotFound
	case gateway.CodeConflict, gateway.CodeUniqueViolation, gateway.CodeUserExists:
		return http.StatusConflict
	case gateway.CodeUnauthenticated, gateway.CodeInvalidCredentials, gateway.CodeEmailNotConfirmed:
		return http.StatusUnauthorized
	case gateway.CodeRateLimited:
		return http.StatusTooManyRequests
	case gateway.CodeWeakPassword:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// decode reads a JSON body, or form values into fields when the request is a form post.
func decode(r *http.Request, dst any, fields map[string]*string) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return errors.New("invalid request body")
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return errors.New("invalid form body")
	}
	for name, p := range fields {
		*p = r.PostForm.Get(name)
	}
	return nil
}

type screenFunc func(w http.ResponseWriter, r *http.Request, app *state.App, user models.User)

// protect gates fn behind the auth state of the browser. Unauthenticated browsers are sent to the
// sign-in screen; while the session check is in flight nothing is rendered.
func (h *Handler) protect(path string, fn screenFunc) http.HandlerFunc {
	route := mustRoute(path)
	return func(w http.ResponseWriter, r *http.Request) {
		app, ok := middleware.AppFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "no browser session")
			return
		}
		switch routes.Gate(route, app.Auth.Snapshot().Status) {
		case routes.Wait:
			w.WriteHeader(http.StatusNoContent)
			return
		case routes.Redirect:
			http.Redirect(w, r, routes.SignInPath, http.StatusSeeOther)
			return
		}
		user, ok := app.Auth.User()
		if !ok {
			http.Redirect(w, r, routes.SignInPath, http.StatusSeeOther)
			return
		}
		fn(w, r.WithContext(app.Auth.Context(r.Context())), app, user)
	}
}

// signedOut reports whether err shows the access token is no longer accepted. When it does, the
// browser's state is cleared and it is sent to sign in.
func (h *Handler) signedOut(w http.ResponseWriter, r *http.Request, app *state.App, err error) bool {
	if !app.Auth.Observe(err) {
		return false
	}
	app.Reset()
	h.Sessions.SetToken(w, "")
	http.Redirect(w, r, routes.SignInPath, http.StatusSeeOther)
	return true
}

func mustRoute(path string) routes.Route {
	route, ok := routes.Lookup(path)
	if !ok {
		panic("handlers: no route for " + path)
	}
	return route
}

func (h *Handler) leaderboardSize() int {
	if h.LeaderboardSize > 0 {
		return h.LeaderboardSize
	}
	return defaultLeaderboardSize
}

func (h *Handler) searchLimit() int {
	if h.SearchLimit > 0 {
		return h.SearchLimit
	}
	return defaultSearchLimit
}
