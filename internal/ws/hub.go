package ws

import (
	"context"
	"sync"

	"github.com/VULUxOMID/GoldGames/internal/models"

	"go.uber.org/zap"
)

// subscriptionBuffer is how many undelivered inserts a subscription may queue before the hub
// drops it as too slow.
const subscriptionBuffer = 64

// Subscription receives every chat insert published after it registers.
type Subscription struct {
	hub      *Hub
	send     chan models.ChatMessage
	onInsert func(models.ChatMessage)
	onDrop   func()

	closeOnce sync.Once
	closed    chan struct{}
}

// Hub fans chat inserts out to subscriptions. All membership changes go through Run.
type Hub struct {
	// Registered subscriptions.
	subscriptions map[*Subscription]bool

	// Inserts to fan out.
	broadcast chan models.ChatMessage

	// Register requests from subscribers.
	register chan *Subscription

	// Unregister requests from subscribers.
	unregister chan *Subscription

	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		broadcast:     make(chan models.ChatMessage),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		subscriptions: make(map[*Subscription]bool),
		done:          make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then drops every remaining subscription.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for sub := range h.subscriptions {
			delete(h.subscriptions, sub)
			close(sub.send)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-h.register:
			h.subscriptions[sub] = true
		case sub := <-h.unregister:
			if _, ok := h.subscriptions[sub]; ok {
				delete(h.subscriptions, sub)
				close(sub.send)
			}
		case message := <-h.broadcast:
			for sub := range h.subscriptions {
				select {
				case sub.send <- message:
				default:
					zap.L().Warn("Dropping slow chat subscriber", zap.Int64("message_id", message.ID))
					close(sub.send)
					delete(h.subscriptions, sub)
				}
			}
		}
	}
}

// Subscribe registers onInsert for future inserts. onDrop, if set, runs when the hub drops the
// subscription on its own (slow consumer or shutdown), never after Close.
func (h *Hub) Subscribe(onInsert func(models.ChatMessage), onDrop func()) (*Subscription, bool) {
	sub := &Subscription{
		hub:      h,
		send:     make(chan models.ChatMessage, subscriptionBuffer),
		onInsert: onInsert,
		onDrop:   onDrop,
		closed:   make(chan struct{}),
	}
	select {
	case h.register <- sub:
	case <-h.done:
		return nil, false
	}
	go sub.deliver()
	return sub, true
}

// Publish hands message to every current subscription. It returns false once the hub has stopped.
func (h *Hub) Publish(message models.ChatMessage) bool {
	select {
	case h.broadcast <- message:
		return true
	case <-h.done:
		return false
	}
}

func (s *Subscription) deliver() {
	for message := range s.send {
		select {
		case <-s.closed:
			continue
		default:
		}
		s.onInsert(message)
	}
	select {
	case <-s.closed:
	default:
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

// Close stops deliveries. It is safe to call more than once and after the hub stopped.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}
