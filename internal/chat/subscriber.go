// Package chat runs the chat room for one open chat screen: an initial ordered read, then the
// insert feed, until the screen goes away.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"go.uber.org/zap"
)

var ErrNotMounted = errors.New("chat is not mounted")

const MsgConnectFailed = "Failed to connect to chat. Please try again."

// View is what the chat screen renders.
type View struct {
	Messages []models.ChatMessage       `json:"messages"`
	Loading  bool                       `json:"loading"`
	Status   gateway.SubscriptionStatus `json:"status,omitempty"`
	Banner   string                     `json:"banner,omitempty"`
	Error    string                     `json:"error,omitempty"`
	Input    string                     `json:"input"`
}

// Subscriber holds one screen's message list. Inserts arriving from the feed and rows confirmed
// by Send are appended in the order they arrive; a row already in the list is never added twice.
type Subscriber struct {
	gw      gateway.Gateway
	user    models.User
	observe func(View)

	mu          sync.Mutex
	mounted     bool
	mounting    bool
	view        View
	seen        map[int64]bool
	unsubscribe gateway.Unsubscribe
}

// New creates a subscriber posting as user. observe, if set, receives a copy of the view after
// every change, in order, while the subscriber's lock is held; it must not call back into s.
func New(gw gateway.Gateway, user models.User, observe func(View)) *Subscriber {
	return &Subscriber{
		gw:      gw,
		user:    user,
		observe: observe,
		seen:    make(map[int64]bool),
	}
}

func (s *Subscriber) snapshotLocked() View {
	v := s.view
	v.Messages = append([]models.ChatMessage(nil), s.view.Messages...)
	return v
}

func (s *Subscriber) emitLocked() {
	if s.observe != nil {
		s.observe(s.snapshotLocked())
	}
}

// View returns a copy of the current view.
func (s *Subscriber) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Subscriber) appendLocked(m models.ChatMessage) bool {
	if s.seen[m.ID] {
		return false
	}
	s.seen[m.ID] = true
	s.view.Messages = append(s.view.Messages, m)
	return true
}

// Mount loads the history and then attaches the insert feed. A failed read is shown as an error
// and leaves the feed detached; mounting again retries. A Mount that finds another one running
// returns at once.
func (s *Subscriber) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.unsubscribe != nil || s.mounting {
		s.mu.Unlock()
		return nil
	}
	s.mounting = true
	defer func() {
		s.mu.Lock()
		s.mounting = false
		s.mu.Unlock()
	}()
	s.mounted = true
	s.view.Loading = true
	s.view.Error = ""
	s.emitLocked()
	s.mu.Unlock()

	history, loadErr := s.gw.ListChatMessages(ctx)

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return ErrNotMounted
	}
	s.view.Loading = false
	if loadErr != nil {
		s.view.Error = gateway.MessageOf(loadErr)
		s.emitLocked()
		s.mu.Unlock()
		return loadErr
	}
	s.view.Messages = nil
	s.seen = make(map[int64]bool, len(history))
	for _, m := range history {
		s.appendLocked(m)
	}
	s.emitLocked()
	s.mu.Unlock()

	unsubscribe, err := s.gw.SubscribeToChatInserts(ctx, s.onInsert, s.onStatus)
	if err != nil {
		s.mu.Lock()
		s.view.Status = gateway.StatusChannelError
		s.view.Banner = MsgConnectFailed
		zap.L().Warn("Chat subscribe failed", zap.Error(err))
		s.emitLocked()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		unsubscribe()
		return ErrNotMounted
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return nil
}

func (s *Subscriber) onInsert(m models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	if s.appendLocked(m) {
		s.emitLocked()
	}
}

func (s *Subscriber) onStatus(status gateway.SubscriptionStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.view.Status = status
	switch status {
	case gateway.StatusSubscribed:
		s.view.Banner = ""
	case gateway.StatusClosed:
		s.view.Banner = "Disconnected from chat"
	default:
		s.view.Banner = MsgConnectFailed
		zap.L().Warn("Chat feed error", zap.String("status", string(status)), zap.Error(err))
	}
	s.emitLocked()
}

// SetInput records the composer text.
func (s *Subscriber) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Input = text
}

// Send clears the composer straight away and posts content. On failure the text is put back.
func (s *Subscriber) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return ErrNotMounted
	}
	s.view.Input = ""
	s.view.Error = ""
	s.emitLocked()
	s.mu.Unlock()

	msg, err := s.gw.InsertChatMessage(ctx, models.NewChatMessage{
		UserID:    s.user.ID,
		UserEmail: s.user.Email,
		Content:   content,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.view.Input = content
		s.view.Error = gateway.MessageOf(err)
		s.emitLocked()
		return err
	}
	if s.mounted && s.appendLocked(*msg) {
		s.emitLocked()
	}
	return nil
}

// ClearError dismisses the send/load error.
func (s *Subscriber) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Error = ""
	s.emitLocked()
}

// Unmount detaches the feed. Inserts delivered afterwards are ignored.
func (s *Subscriber) Unmount() {
	s.mu.Lock()
	s.mounted = false
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
