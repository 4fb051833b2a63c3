package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedRecorder struct {
	mu       sync.Mutex
	inserts  []models.ChatMessage
	statuses []gateway.SubscriptionStatus
}

func (f *feedRecorder) onInsert(m models.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, m)
}

func (f *feedRecorder) onStatus(s gateway.SubscriptionStatus, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, s)
}

func (f *feedRecorder) counts() (int, []gateway.SubscriptionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts), append([]gateway.SubscriptionStatus(nil), f.statuses...)
}

// fakeRealtime acknowledges the join, pushes one insert and records every frame it receives.
func fakeRealtime(t *testing.T, frames chan<- phxMessage) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, realtimePath, r.URL.Path)
		assert.Equal(t, testKey, r.URL.Query().Get("apikey"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg phxMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			frames <- msg
			if msg.Event != "phx_join" {
				continue
			}
			conn.WriteJSON(phxMessage{
				Topic:   chatTopic,
				Event:   "phx_reply",
				Payload: json.RawMessage(`{"status":"ok","response":{}}`),
				Ref:     msg.Ref,
			})
			conn.WriteJSON(phxMessage{
				Topic: chatTopic,
				Event: "postgres_changes",
				Payload: json.RawMessage(`{"data":{"type":"INSERT","table":"chat_messages","record":
					{"id":7,"user_id":"u2","user_email":"b@x.io","content":"gg","created_at":"2025-01-01T00:00:00Z"}}}`),
			})
		}
	}
}

func TestSubscribeToChatInserts(t *testing.T) {
	frames := make(chan phxMessage, 16)
	c := newTestClient(t, fakeRealtime(t, frames))

	var rec feedRecorder
	ctx := gateway.WithAccessToken(context.Background(), "tok")
	unsubscribe, err := c.SubscribeToChatInserts(ctx, rec.onInsert, rec.onStatus)
	require.NoError(t, err)

	join := <-frames
	require.Equal(t, "phx_join", join.Event)
	require.Equal(t, chatTopic, join.Topic)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(join.Payload, &payload))
	require.Equal(t, "tok", payload["access_token"])

	require.Eventually(t, func() bool {
		n, statuses := rec.counts()
		return n == 1 && len(statuses) == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, statuses := rec.counts()
	require.Equal(t, gateway.StatusSubscribed, statuses[0])

	rec.mu.Lock()
	require.Equal(t, int64(7), rec.inserts[0].ID)
	require.Equal(t, "gg", rec.inserts[0].Content)
	rec.mu.Unlock()

	select {
	case hb := <-frames:
		require.Equal(t, "heartbeat", hb.Event)
		require.Equal(t, "phoenix", hb.Topic)
	case <-time.After(3 * time.Second):
		t.Fatal("no heartbeat sent")
	}

	unsubscribe()
	unsubscribe()

	// the socket closing after unsubscribe is not reported
	time.Sleep(50 * time.Millisecond)
	_, statuses = rec.counts()
	require.Equal(t, []gateway.SubscriptionStatus{gateway.StatusSubscribed}, statuses)
}

func TestRealtimeURL(t *testing.T) {
	c, err := New("https://proj.supabase.co", "key", time.Second, time.Second)
	require.NoError(t, err)
	require.Equal(t, "wss://proj.supabase.co/realtime/v1/websocket?apikey=key&vsn=1.0.0", c.realtimeURL())
}
