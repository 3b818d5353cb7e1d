package feed_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/soilwatch/pkg/feed"
)

func TestHubBroadcastsEnvelopes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := feed.NewHub(8)
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish("alert", map[string]string{"pot_id": "pot-1"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"alert","payload":{"pot_id":"pot-1"}}`, string(msg))
}

func TestHubPublishAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := feed.NewHub(1)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	require.ErrorIs(t, hub.Publish("alert", 1), feed.ErrClosed)
}
