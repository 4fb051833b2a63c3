// Package state holds the per-browser domain stores. Each store mirrors one slice of backend data,
// changes only through the results of its own actions and fences out-of-order results.
package state

import (
	"github.com/VULUxOMID/GoldGames/internal/gateway"
)

// Store names accepted by Dismiss.
const (
	StoreAuth     = "auth"
	StoreGold     = "gold"
	StoreSessions = "sessions"
	StoreProfile  = "profile"
)

// App is the state of one browser: every store a screen can read, built once per session.
type App struct {
	ID       string
	Auth     *Auth
	Gold     *Gold
	Sessions *Sessions
	Profile  *Profile
}

func NewApp(id string, gw gateway.Gateway) *App {
	return &App{
		ID:       id,
		Auth:     NewAuth(gw),
		Gold:     NewGold(gw),
		Sessions: NewSessions(gw),
		Profile:  NewProfile(gw),
	}
}

// Reset drops every user-scoped mirror, leaving auth alone.
func (a *App) Reset() {
	a.Gold.Reset()
	a.Sessions.Reset()
	a.Profile.Reset()
}

// Dismiss clears the named store's error banner. It reports false for unknown names.
func (a *App) Dismiss(store string) bool {
	switch store {
	case StoreAuth:
		a.Auth.ClearError()
	case StoreGold:
		a.Gold.ClearError()
	case StoreSessions:
		a.Sessions.ClearError()
	case StoreProfile:
		a.Profile.ClearError()
	default:
		return false
	}
	return true
}
