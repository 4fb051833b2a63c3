package routes

import (
	"testing"

	"github.com/VULUxOMID/GoldGames/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate(t *testing.T) {
	signin, ok := Lookup(SignInPath)
	require.True(t, ok)
	wallet, ok := Lookup("/wallet")
	require.True(t, ok)

	tests := []struct {
		route  Route
		status state.AuthStatus
		want   Decision
	}{
		{signin, state.StatusUnauthenticated, Render},
		{signin, state.StatusLoading, Render},
		{signin, state.StatusAuthenticated, Render},
		{wallet, state.StatusAuthenticated, Render},
		{wallet, state.StatusLoading, Wait},
		{wallet, state.StatusUnauthenticated, Redirect},
		{wallet, state.StatusError, Redirect},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Gate(tt.route, tt.status), "%s while %s", tt.route.Path, tt.status)
	}
}

func TestMenuAndCards(t *testing.T) {
	var titles []string
	for _, r := range Menu() {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"Home", "Gold Wallet", "Gaming Sessions", "Leaderboard", "Social", "Profile", "Chat"}, titles)

	var paths []string
	for _, r := range Cards() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/wallet", "/sessions", "/leaderboard", "/social"}, paths)

	_, ok := Lookup("/nowhere")
	assert.False(t, ok)
}
