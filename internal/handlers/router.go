package handlers

import (
	"net/http"

	"github.com/VULUxOMID/GoldGames/internal/routes"

	"github.com/gorilla/mux"
)

// Register mounts every screen on r. Screens other than sign-in and sign-up go through the
// auth gate, so r must already carry the session middleware.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/healthz", Healthz).Methods("GET")

	r.HandleFunc(routes.SignInPath, h.SignInPage).Methods("GET")
	r.HandleFunc(routes.SignInPath, h.SignIn).Methods("POST")
	r.HandleFunc(routes.SignUpPath, h.SignUpPage).Methods("GET")
	r.HandleFunc(routes.SignUpPath, h.SignUp).Methods("POST")

	r.HandleFunc(routes.HomePath, h.protect(routes.HomePath, h.Home)).Methods("GET")
	r.HandleFunc("/signout", h.protect(routes.HomePath, h.SignOut)).Methods("POST")
	r.HandleFunc("/dismiss/{store}", h.protect(routes.HomePath, h.Dismiss)).Methods("POST")

	r.HandleFunc("/wallet", h.protect("/wallet", h.Wallet)).Methods("GET")
	r.HandleFunc("/wallet/transactions", h.protect("/wallet", h.RecordTransaction)).Methods("POST")

	r.HandleFunc("/sessions", h.protect("/sessions", h.GamingSessions)).Methods("GET")
	r.HandleFunc("/sessions", h.protect("/sessions", h.CreateGamingSession)).Methods("POST")

	r.HandleFunc("/leaderboard", h.protect("/leaderboard", h.Leaderboard)).Methods("GET")
	r.HandleFunc("/social", h.protect("/social", h.Social)).Methods("GET")

	r.HandleFunc("/profile", h.protect("/profile", h.Profile)).Methods("GET")
	r.HandleFunc("/profile", h.protect("/profile", h.SaveProfile)).Methods("POST")
	r.HandleFunc("/profile/edit", h.protect("/profile", h.EditProfile)).Methods("POST")
	r.HandleFunc("/profile/cancel", h.protect("/profile", h.CancelProfileEdit)).Methods("POST")

	r.HandleFunc("/chat", h.protect("/chat", h.Chat)).Methods("GET")
	r.HandleFunc("/chat/ws", h.protect("/chat", h.ChatSocket)).Methods("GET")
}

// Static serves the browser bundle from dir with caching disabled.
func Static(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		files.ServeHTTP(w, r)
	})
}
