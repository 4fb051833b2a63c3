package state

import (
	"context"
	"sync"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"
)

type SessionsState struct {
	Sessions []models.GamingSession `json:"sessions"`
	Loading  bool                   `json:"loading"`
	Error    string                 `json:"error,omitempty"`
}

// Sessions mirrors the gaming session listing.
type Sessions struct {
	gw gateway.Gateway

	mu   sync.Mutex
	seq  sequencer
	list []models.GamingSession
	err  string
}

func NewSessions(gw gateway.Gateway) *Sessions {
	return &Sessions{gw: gw}
}

func (s *Sessions) Snapshot() SessionsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionsState{
		Sessions: append([]models.GamingSession(nil), s.list...),
		Loading:  s.seq.busy(),
		Error:    s.err,
	}
}

func (s *Sessions) List(ctx context.Context) error {
	s.mu.Lock()
	t := s.seq.begin()
	s.mu.Unlock()

	list, err := s.gw.ListSessions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.replace(t) {
		return err
	}
	if err != nil {
		s.err = gateway.MessageOf(err)
		return err
	}
	s.list = list
	s.err = ""
	return nil
}

func (s *Sessions) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

func (s *Sessions) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.reset()
	s.list = nil
	s.err = ""
}
