package handlers

import (
	"net/http"
	"strings"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"
	"github.com/VULUxOMID/GoldGames/internal/routes"
	"github.com/VULUxOMID/GoldGames/internal/state"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const (
	MsgInvalidAmount = "Amount must be a positive number"
	MsgInvalidType   = "Type must be credit or debit"
	// MsgSessionsUnavailable answers the session creation stub.
	MsgSessionsUnavailable = "Creating gaming sessions is not available yet"
)

type HomeView struct {
	Cards []routes.Route `json:"cards"`
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	render(w, http.StatusOK, mustRoute(routes.HomePath), user, HomeView{Cards: routes.Cards()})
}

func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	// a failed read is shown through the store's error banner
	if h.signedOut(w, r, app, app.Gold.LoadHistory(r.Context(), user.ID)) {
		return
	}
	render(w, http.StatusOK, mustRoute("/wallet"), user, app.Gold.Snapshot())
}

type transactionRequest struct {
	Amount      decimal.Decimal        `json:"amount"`
	Type        models.TransactionType `json:"type"`
	Description string                 `json:"description"`
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	var (
		req          transactionRequest
		amount, kind string
	)
	fields := map[string]*string{"amount": &amount, "type": &kind, "description": &req.Description}
	if err := decode(r, &req, fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if amount != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, MsgInvalidAmount)
			return
		}
		req.Amount = parsed
	}
	if kind != "" {
		req.Type = models.TransactionType(kind)
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusUnprocessableEntity, MsgInvalidAmount)
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusUnprocessableEntity, MsgInvalidType)
		return
	}

	route := mustRoute("/wallet")
	_, err := app.Gold.Record(r.Context(), models.NewTransaction{
		UserID:      user.ID,
		Amount:      req.Amount,
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
	})
	if h.signedOut(w, r, app, err) {
		return
	}
	if err != nil {
		render(w, statusFor(err), route, user, app.Gold.Snapshot())
		return
	}
	render(w, http.StatusCreated, route, user, app.Gold.Snapshot())
}

func (h *Handler) GamingSessions(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	if h.signedOut(w, r, app, app.Sessions.List(r.Context())) {
		return
	}
	render(w, http.StatusOK, mustRoute("/sessions"), user, app.Sessions.Snapshot())
}

func (h *Handler) CreateGamingSession(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	writeError(w, http.StatusNotImplemented, MsgSessionsUnavailable)
}

type LeaderboardView struct {
	Entries []models.LeaderboardEntry `json:"entries"`
	Error   string                    `json:"error,omitempty"`
}

// Leaderboard ranks the richest players from 1.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	view := LeaderboardView{Entries: []models.LeaderboardEntry{}}
	profiles, err := h.Gateway.ListLeaderboard(r.Context(), h.leaderboardSize())
	if h.signedOut(w, r, app, err) {
		return
	}
	if err != nil {
		view.Error = gateway.MessageOf(err)
	}
	for i, p := range profiles {
		view.Entries = append(view.Entries, models.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.ID,
			Username:    models.MaskEmail(p.Username),
			Avatar:      p.Avatar,
			TotalGold:   p.TotalGold,
			GamesPlayed: p.GamesPlayed,
			WinRate:     p.WinRate,
		})
	}
	render(w, http.StatusOK, mustRoute("/leaderboard"), user, view)
}

type SocialView struct {
	Query   string          `json:"query"`
	Players []models.Player `json:"players"`
	Error   string          `json:"error,omitempty"`
}

// Social searches other players by username. The viewer never appears in the results.
func (h *Handler) Social(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	view := SocialView{Query: query, Players: []models.Player{}}
	if query != "" {
		profiles, err := h.Gateway.SearchProfiles(r.Context(), query, h.searchLimit())
		if h.signedOut(w, r, app, err) {
			return
		}
		if err != nil {
			view.Error = gateway.MessageOf(err)
		}
		for _, p := range profiles {
			if p.ID == user.ID {
				continue
			}
			view.Players = append(view.Players, models.Player{
				UserID:      p.ID,
				Username:    models.MaskEmail(p.Username),
				Avatar:      p.Avatar,
				TotalGold:   p.TotalGold,
				GamesPlayed: p.GamesPlayed,
			})
		}
	}
	render(w, http.StatusOK, mustRoute("/social"), user, view)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	if h.signedOut(w, r, app, app.Profile.Load(r.Context(), user)) {
		return
	}
	render(w, http.StatusOK, mustRoute("/profile"), user, app.Profile.Snapshot())
}

func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	app.Profile.Edit()
	render(w, http.StatusOK, mustRoute("/profile"), user, app.Profile.Snapshot())
}

func (h *Handler) CancelProfileEdit(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	app.Profile.CancelEdit()
	render(w, http.StatusOK, mustRoute("/profile"), user, app.Profile.Snapshot())
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	var (
		patch            models.ProfilePatch
		username, avatar string
	)
	if err := decode(r, &patch, map[string]*string{"username": &username, "avatar": &avatar}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if username != "" {
		patch.Username = &username
	}
	if avatar != "" {
		patch.Avatar = &avatar
	}
	if patch.Username != nil {
		trimmed := strings.TrimSpace(*patch.Username)
		if trimmed == "" {
			writeError(w, http.StatusUnprocessableEntity, "Username must not be empty")
			return
		}
		patch.Username = &trimmed
	}

	route := mustRoute("/profile")
	if err := app.Profile.Save(r.Context(), patch); err != nil {
		if h.signedOut(w, r, app, err) {
			return
		}
		status := statusFor(err)
		if app.Profile.Snapshot().Profile == nil {
			status = http.StatusConflict
		}
		render(w, status, route, user, app.Profile.Snapshot())
		return
	}
	render(w, http.StatusOK, route, user, app.Profile.Snapshot())
}

// Dismiss clears the error banner of the store named in the path.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	if !app.Dismiss(mux.Vars(r)["store"]) {
		writeError(w, http.StatusNotFound, "unknown store")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
