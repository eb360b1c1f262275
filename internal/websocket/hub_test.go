package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/golf-wagers/internal/metrics"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestBroadcastReachesOnlyThatRound(t *testing.T) {
	h, _ := startHub(t)
	a := NewClient("r1")
	b := NewClient("r2")
	require.True(t, h.Register(a))
	require.True(t, h.Register(b))
	assert.Eventually(t, func() bool { return h.Subscribers("r1") == 1 && h.Subscribers("r2") == 1 }, time.Second, 5*time.Millisecond)

	h.BroadcastToRound("r1", []byte("leaderboard"))
	assert.Equal(t, []byte("leaderboard"), receive(t, a))
	assert.Empty(t, b.Send)
}

func TestUnregisterClosesSend(t *testing.T) {
	h, _ := startHub(t)
	before := testutil.ToFloat64(metrics.StreamSubscribers)

	c := NewClient("r1")
	require.True(t, h.Register(c))
	assert.Eventually(t, func() bool { return testutil.ToFloat64(metrics.StreamSubscribers) == before+1 }, time.Second, 5*time.Millisecond)

	h.Unregister(c)
	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers("r1"))
	assert.Equal(t, before, testutil.ToFloat64(metrics.StreamSubscribers))

	h.Unregister(c) // already gone
}

func TestSlowClientIsDropped(t *testing.T) {
	h, _ := startHub(t)
	c := NewClient("r1")
	require.True(t, h.Register(c))

	for i := 0; i <= sendBuffer; i++ {
		h.BroadcastToRound("r1", []byte{byte(i)})
	}
	assert.Eventually(t, func() bool { return h.Subscribers("r1") == 0 }, time.Second, 5*time.Millisecond)

	received := 0
	for range c.Send {
		received++
	}
	assert.Equal(t, sendBuffer, received)
}

func TestStoppedHubReleasesCallers(t *testing.T) {
	h, cancel := startHub(t)
	c := NewClient("r1")
	require.True(t, h.Register(c))

	cancel()
	_, open := <-c.Send
	assert.False(t, open, "shutdown closes every client")

	assert.False(t, h.Register(NewClient("r1")))
	h.BroadcastToRound("r1", []byte("late"))
	h.Unregister(c)
}
