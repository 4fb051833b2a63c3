package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/gateway/gatewaytest"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contents(msgs []models.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func seed(fake *gatewaytest.Fake, texts ...string) {
	for _, text := range texts {
		fake.Push(models.NewChatMessage{UserID: "other", UserEmail: "other@example.com", Content: text})
	}
}

func TestMountShowsLoadingThenHistory(t *testing.T) {
	fake := gatewaytest.New()
	seed(fake, "first", "second", "third")

	var views []View
	s := New(fake, models.User{ID: "me", Email: "me@example.com"}, func(v View) { views = append(views, v) })
	require.NoError(t, s.Mount(context.Background()))

	require.GreaterOrEqual(t, len(views), 2)
	require.True(t, views[0].Loading)
	require.Empty(t, views[0].Messages)
	require.False(t, views[1].Loading)
	require.Equal(t, []string{"first", "second", "third"}, contents(views[1].Messages))

	final := s.View()
	require.Equal(t, gateway.StatusSubscribed, final.Status)
	require.Equal(t, 1, fake.Subscribers())
}

func TestPushedInsertAppendsExactlyOne(t *testing.T) {
	fake := gatewaytest.New()
	seed(fake, "a", "b")
	s := New(fake, models.User{ID: "me"}, nil)
	require.NoError(t, s.Mount(context.Background()))

	seed(fake, "c")
	require.Equal(t, []string{"a", "b", "c"}, contents(s.View().Messages))
}

func TestUnmountStopsGrowth(t *testing.T) {
	fake := gatewaytest.New()
	s := New(fake, models.User{ID: "me"}, nil)
	require.NoError(t, s.Mount(context.Background()))
	seed(fake, "before")

	// capture the handler as the feed would keep it if delivery raced the unsubscribe
	late := s.onInsert
	s.Unmount()
	require.Zero(t, fake.Subscribers())

	seed(fake, "after-1", "after-2")
	late(models.ChatMessage{ID: 999, Content: "late delivery"})
	require.Equal(t, []string{"before"}, contents(s.View().Messages))

	s.Unmount()
}

func TestSendDeduplicatesEcho(t *testing.T) {
	fake := gatewaytest.New()
	s := New(fake, models.User{ID: "me", Email: "me@example.com"}, nil)
	require.NoError(t, s.Mount(context.Background()))

	s.SetInput("gg wp")
	require.NoError(t, s.Send(context.Background(), "gg wp"))

	v := s.View()
	require.Equal(t, []string{"gg wp"}, contents(v.Messages), "feed echo and confirmed row collapse to one")
	require.Empty(t, v.Input)

	// a redelivery of the same row is ignored too
	fake.Redeliver(v.Messages[0])
	require.Len(t, s.View().Messages, 1)
}

func TestSendFailureRestoresInput(t *testing.T) {
	fake := gatewaytest.New()
	var views []View
	s := New(fake, models.User{ID: "me"}, func(v View) { views = append(views, v) })
	require.NoError(t, s.Mount(context.Background()))

	fake.Fail("InsertChatMessage", gateway.NewError(gateway.CodeTransport, "network down"))
	s.SetInput("hello?")
	views = nil
	require.Error(t, s.Send(context.Background(), "hello?"))

	require.Len(t, views, 2)
	require.Empty(t, views[0].Input, "input cleared optimistically")
	require.Equal(t, "hello?", views[1].Input)
	require.Equal(t, "network down", views[1].Error)
	require.Empty(t, s.View().Messages)

	s.ClearError()
	require.Empty(t, s.View().Error)
}

func TestSendBlankIsNoop(t *testing.T) {
	fake := gatewaytest.New()
	s := New(fake, models.User{ID: "me"}, nil)
	require.NoError(t, s.Mount(context.Background()))
	require.NoError(t, s.Send(context.Background(), "   "))
	require.Zero(t, fake.Calls("InsertChatMessage"))
}

func TestStatusBanner(t *testing.T) {
	fake := gatewaytest.New()
	s := New(fake, models.User{ID: "me"}, nil)
	require.NoError(t, s.Mount(context.Background()))
	require.Empty(t, s.View().Banner)

	fake.Disconnect(nil)
	v := s.View()
	require.Equal(t, gateway.StatusChannelError, v.Status)
	require.Equal(t, MsgConnectFailed, v.Banner)

	fake.Redeliver(models.ChatMessage{ID: 42, Content: "still flowing"})
	require.Len(t, s.View().Messages, 1)
}

func TestMountLoadFailure(t *testing.T) {
	fake := gatewaytest.New()
	seed(fake, "old")
	fake.Fail("ListChatMessages", gateway.NewError(gateway.CodeTransport, "read failed"))
	s := New(fake, models.User{ID: "me"}, nil)

	require.Error(t, s.Mount(context.Background()))
	v := s.View()
	require.False(t, v.Loading)
	require.Equal(t, "read failed", v.Error)
	require.Zero(t, fake.Subscribers(), "feed is not attached without history")

	fake.Fail("ListChatMessages", nil)
	require.NoError(t, s.Mount(context.Background()))
	v = s.View()
	require.Empty(t, v.Error)
	require.Equal(t, []string{"old"}, contents(v.Messages))
	require.Equal(t, 1, fake.Subscribers())
}

func TestSubscribeFailureSetsBanner(t *testing.T) {
	fake := gatewaytest.New()
	fake.Fail("SubscribeToChatInserts", gateway.NewError(gateway.CodeTransport, "dial failed"))
	s := New(fake, models.User{ID: "me"}, nil)

	require.Error(t, s.Mount(context.Background()))
	v := s.View()
	require.Equal(t, gateway.StatusChannelError, v.Status)
	require.Equal(t, MsgConnectFailed, v.Banner)
}

// gatedHistory holds ListChatMessages until release is closed.
type gatedHistory struct {
	*gatewaytest.Fake
	entered chan struct{}
	release chan struct{}
}

func (g *gatedHistory) ListChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Fake.ListChatMessages(ctx)
}

func TestConcurrentMountsAttachOneFeed(t *testing.T) {
	gw := &gatedHistory{Fake: gatewaytest.New(), entered: make(chan struct{}, 2), release: make(chan struct{})}
	s := New(gw, models.User{ID: "me"}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Mount(context.Background()))
	}()
	<-gw.entered

	// the second mount finds the first one running
	require.NoError(t, s.Mount(context.Background()))
	close(gw.release)
	wg.Wait()

	require.Len(t, gw.entered, 0)
	require.Equal(t, 1, gw.Subscribers())
	s.Unmount()
	require.Zero(t, gw.Subscribers())
}
