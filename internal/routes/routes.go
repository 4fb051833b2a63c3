// Package routes is the screen table and the authentication gate in front of protected screens.
package routes

import "github.com/VULUxOMID/GoldGames/internal/state"

const (
	SignInPath = "/signin"
	SignUpPath = "/signup"
	HomePath   = "/"
)

type Route struct {
	Path   string `json:"path"`
	Screen string `json:"screen"`
	Title  string `json:"title"`
	Public bool   `json:"-"`
	// Card marks screens advertised on the home page.
	Card bool `json:"-"`
}

var table = []Route{
	{Path: SignInPath, Screen: "signin", Title: "Sign In", Public: true},
	{Path: SignUpPath, Screen: "signup", Title: "Sign Up", Public: true},
	{Path: HomePath, Screen: "home", Title: "Home"},
	{Path: "/wallet", Screen: "wallet", Title: "Gold Wallet", Card: true},
	{Path: "/sessions", Screen: "sessions", Title: "Gaming Sessions", Card: true},
	{Path: "/leaderboard", Screen: "leaderboard", Title: "Leaderboard", Card: true},
	{Path: "/social", Screen: "social", Title: "Social", Card: true},
	{Path: "/profile", Screen: "profile", Title: "Profile"},
	{Path: "/chat", Screen: "chat", Title: "Chat"},
}

// Lookup finds the route for an exact path.
func Lookup(path string) (Route, bool) {
	for _, r := range table {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Menu lists the protected screens in navigation order.
func Menu() []Route {
	var out []Route
	for _, r := range table {
		if !r.Public {
			out = append(out, r)
		}
	}
	return out
}

// Cards lists the feature screens shown on the home page.
func Cards() []Route {
	var out []Route
	for _, r := range table {
		if r.Card {
			out = append(out, r)
		}
	}
	return out
}

type Decision int

const (
	// Render shows the screen.
	Render Decision = iota
	// Wait renders nothing until the auth state resolves.
	Wait
	// Redirect sends the browser to the sign-in screen.
	Redirect
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Gate decides what a route shows for the given auth status. Public routes always render.
func Gate(r Route, status state.AuthStatus) Decision {
	if r.Public {
		return Render
	}
	switch status {
	case state.StatusAuthenticated:
		return Render
	case state.StatusLoading:
		return Wait
	default:
		return Redirect
	}
}
