package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	chatTopic    = "realtime:" + gateway.ChatChannel
	joinTimeout  = 10 * time.Second
	realtimePath = "/realtime/v1/websocket"
)

// phxMessage is one Phoenix channel frame.
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type phxReply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changePayload struct {
	Data struct {
		Type   string          `json:"type"`
		Table  string          `json:"table"`
		Record json.RawMessage `json:"record"`
	} `json:"data"`
}

type systemPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) realtimeURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = u.Path + realtimePath
	u.RawQuery = url.Values{"apikey": {c.anonKey}, "vsn": {"1.0.0"}}.Encode()
	return u.String()
}

// channel is one joined realtime topic on its own socket.
type channel struct {
	conn     *websocket.Conn
	onInsert gateway.InsertHandler
	onStatus gateway.StatusHandler

	writeMu sync.Mutex
	ref     int
	joinRef string

	mu      sync.Mutex
	stopped bool
	joined  bool

	stop chan struct{}
	once sync.Once
}

func (ch *channel) send(topic, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	ch.ref++
	ref := strconv.Itoa(ch.ref)
	msg := phxMessage{Topic: topic, Event: event, Payload: raw, Ref: &ref}
	if event == "phx_join" {
		ch.joinRef = ref
	}
	if ch.joinRef != "" && topic == chatTopic {
		joinRef := ch.joinRef
		msg.JoinRef = &joinRef
	}
	ch.conn.SetWriteDeadline(time.Now().Add(joinTimeout))
	return ch.conn.WriteJSON(msg)
}

// report forwards a status unless the subscription was cancelled.
func (ch *channel) report(status gateway.SubscriptionStatus, err error) {
	ch.mu.Lock()
	stopped := ch.stopped
	ch.mu.Unlock()
	if stopped || ch.onStatus == nil {
		return
	}
	ch.onStatus(status, err)
}

func (ch *channel) deliver(msg models.ChatMessage) {
	ch.mu.Lock()
	stopped := ch.stopped
	ch.mu.Unlock()
	if !stopped {
		ch.onInsert(msg)
	}
}

// SubscribeToChatInserts joins the chat_messages change feed. Status transitions arrive on
// onStatus; SUBSCRIBED once the join is acknowledged.
func (c *Client) SubscribeToChatInserts(ctx context.Context, onInsert gateway.InsertHandler, onStatus gateway.StatusHandler) (gateway.Unsubscribe, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.realtimeURL(), nil)
	if err != nil {
		return nil, &gateway.Error{Code: gateway.CodeTransport, Message: err.Error(), Err: err}
	}
	ch := &channel{conn: conn, onInsert: onInsert, onStatus: onStatus, stop: make(chan struct{})}

	token := gateway.AccessToken(ctx)
	if token == "" {
		token = c.anonKey
	}
	join := map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "INSERT", "schema": "public", "table": gateway.ChatChannel},
			},
		},
		"access_token": token,
	}
	if err := ch.send(chatTopic, "phx_join", join); err != nil {
		conn.Close()
		return nil, &gateway.Error{Code: gateway.CodeTransport, Message: err.Error(), Err: err}
	}

	go ch.readLoop()
	go ch.keepalive(c.heartbeat)

	return ch.close, nil
}

func (ch *channel) close() {
	ch.once.Do(func() {
		ch.mu.Lock()
		ch.stopped = true
		ch.mu.Unlock()
		close(ch.stop)
		if err := ch.send(chatTopic, "phx_leave", map[string]any{}); err != nil {
			zap.L().Debug("Realtime leave failed", zap.Error(err))
		}
		ch.conn.Close()
	})
}

func (ch *channel) keepalive(period time.Duration) {
	if period <= 0 {
		period = 25 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	joinTimer := time.NewTimer(joinTimeout)
	defer joinTimer.Stop()

	for {
		select {
		case <-ch.stop:
			return
		case <-joinTimer.C:
			ch.mu.Lock()
			joined := ch.joined
			ch.mu.Unlock()
			if !joined {
				ch.report(gateway.StatusTimedOut, errors.New("realtime join was not acknowledged"))
			}
		case <-ticker.C:
			if err := ch.send("phoenix", "heartbeat", map[string]any{}); err != nil {
				ch.report(gateway.StatusChannelError, err)
				return
			}
		}
	}
}

func (ch *channel) readLoop() {
	for {
		var msg phxMessage
		if err := ch.conn.ReadJSON(&msg); err != nil {
			ch.report(gateway.StatusChannelError, fmt.Errorf("realtime connection lost: %w", err))
			return
		}
		if msg.Topic != chatTopic {
			continue
		}
		switch msg.Event {
		case "phx_reply":
			if msg.Ref == nil || *msg.Ref != ch.currentJoinRef() {
				continue
			}
			var reply phxReply
			_ = json.Unmarshal(msg.Payload, &reply)
			if reply.Status == "ok" {
				ch.mu.Lock()
				ch.joined = true
				ch.mu.Unlock()
				ch.report(gateway.StatusSubscribed, nil)
			} else {
				ch.report(gateway.StatusChannelError, fmt.Errorf("realtime join rejected: %s", reply.Response))
			}
		case "postgres_changes":
			var change changePayload
			if err := json.Unmarshal(msg.Payload, &change); err != nil || change.Data.Type != "INSERT" {
				continue
			}
			row, err := gateway.DecodeRow(bytes.NewReader(change.Data.Record))
			if err != nil {
				zap.L().Warn("Dropping undecodable realtime record", zap.Error(err))
				continue
			}
			chatMsg, err := gateway.ParseChatMessage(row)
			if err != nil {
				zap.L().Warn("Dropping malformed chat row", zap.Error(err))
				continue
			}
			ch.deliver(chatMsg)
		case "system":
			var sys systemPayload
			_ = json.Unmarshal(msg.Payload, &sys)
			if sys.Status == "error" {
				ch.report(gateway.StatusChannelError, errors.New(sys.Message))
			}
		case "phx_error":
			ch.report(gateway.StatusChannelError, errors.New("realtime channel error"))
		case "phx_close":
			ch.report(gateway.StatusClosed, nil)
			return
		}
	}
}

func (ch *channel) currentJoinRef() string {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return ch.joinRef
}
