package core

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *messages.Snapshot {
	return &messages.Snapshot{
		Tick: 42,
		Stun: session.State{Stunned: true, FramesLeft: 10},
		Entities: []messages.EntityState{
			{ID: 1, Kind: messages.KindControlled, X: 1, Y: 2, Extent: 1, HighestProcessed: 9},
			{ID: 2, Kind: messages.KindPassive, X: -3, Y: 4, VX: 5, Extent: 0.5},
		},
	}
}

func TestFrameOf(t *testing.T) {
	f := FrameOf(testSnapshot())

	assert.Equal(t, uint64(42), f.Tick)
	assert.True(t, f.Stunned)
	assert.Equal(t, []SpectatorState{
		{ID: 1, Kind: "controlled", X: 1, Y: 2, Extent: 1},
		{ID: 2, Kind: "passive", X: -3, Y: 4, Extent: 0.5},
	}, f.Entities)
}

func TestSpectatorHubDropsForSlowViewers(t *testing.T) {
	hub := NewSpectatorHub()
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	for i := 0; i < spectatorBuffer+5; i++ {
		hub.Publish(testSnapshot())
	}
	assert.Len(t, ch, spectatorBuffer)
}

func TestSpectatorHubStreamsFrames(t *testing.T) {
	hub := NewSpectatorHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(testSnapshot())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame SpectatorFrame
	require.NoError(t, json.Unmarshal(payload, &frame))
	assert.Equal(t, FrameOf(testSnapshot()), frame)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}
