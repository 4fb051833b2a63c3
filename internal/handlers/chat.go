package handlers

import (
	"context"
	"net/http"

	"github.com/VULUxOMID/GoldGames/internal/chat"
	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"
	"github.com/VULUxOMID/GoldGames/internal/state"
	"github.com/VULUxOMID/GoldGames/internal/ws"

	"go.uber.org/zap"
)

// Frame is what the chat socket sends: the whole chat view after every change.
type Frame struct {
	Type string    `json:"type"`
	View chat.View `json:"view"`
}

// Chat renders the message history. Live updates come over ChatSocket.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	view := chat.View{Messages: []models.ChatMessage{}}
	msgs, err := h.Gateway.ListChatMessages(r.Context())
	if h.signedOut(w, r, app, err) {
		return
	}
	if err != nil {
		view.Error = gateway.MessageOf(err)
	}
	view.Messages = append(view.Messages, msgs...)
	render(w, http.StatusOK, mustRoute("/chat"), user, view)
}

// ChatSocket runs a chat subscriber for as long as the websocket stays open. The socket is
// closed when the browser signs out or its session is evicted.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request, app *state.App, user models.User) {
	// the request context ends with the upgrade, the subscriber outlives it
	ctx, cancel := context.WithCancel(app.Auth.Context(context.Background()))
	defer cancel()

	var (
		sub      *chat.Subscriber
		cleanups []func()
	)

	onOpen := func(c *ws.Client) {
		sub = chat.New(h.Gateway, user, func(v chat.View) {
			c.Send(Frame{Type: "view", View: v})
		})
		cleanups = append(cleanups,
			app.Auth.Watch(func() {
				if u, ok := app.Auth.User(); !ok || u.ID != user.ID {
					c.Close()
				}
			}),
		)
		if h.Registry != nil {
			cleanups = append(cleanups, h.Registry.OnEvict(app.ID, c.Close))
		}
		if err := sub.Mount(ctx); err != nil {
			zap.L().Warn("Chat mount failed", zap.String("user_id", user.ID), zap.Error(err))
			app.Auth.Observe(err)
		}
	}

	onMessage := func(c *ws.Client, in ws.Inbound) {
		if h.Registry != nil {
			h.Registry.Touch(app.ID)
		}
		switch in.Type {
		case "send":
			if err := sub.Send(ctx, in.Content); err != nil {
				zap.L().Warn("Chat send failed", zap.String("user_id", user.ID), zap.Error(err))
				app.Auth.Observe(err)
			}
		case "input":
			sub.SetInput(in.Content)
		case "dismiss":
			sub.ClearError()
		case "retry":
			_ = sub.Mount(ctx)
		default:
			zap.L().Debug("Ignoring chat frame", zap.String("type", in.Type))
		}
	}

	onClose := func(c *ws.Client) {
		for _, fn := range cleanups {
			fn()
		}
		if sub != nil {
			sub.Unmount()
		}
	}

	ws.ServeWs(w, r, onOpen, onMessage, onClose)
}
