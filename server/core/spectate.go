package core

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/automoto/stunsync/shared/messages"
	"github.com/gorilla/websocket"
)

const (
	spectatorBuffer     = 8
	spectatorWriteWait  = 10 * time.Second
	spectatorPongWait   = 60 * time.Second
	spectatorPingPeriod = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	// Spectators are read-only, so any origin may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SpectatorFrame is the JSON document pushed to spectators for each broadcast.
type SpectatorFrame struct {
	Tick     uint64           `json:"tick"`
	Stunned  bool             `json:"stunned"`
	Entities []SpectatorState `json:"entities"`
}

type SpectatorState struct {
	ID     uint32  `json:"id"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Extent float64 `json:"extent"`
}

// FrameOf converts a snapshot to its spectator form.
func FrameOf(snap *messages.Snapshot) SpectatorFrame {
	f := SpectatorFrame{
		Tick:     snap.Tick,
		Stunned:  snap.Stun.Stunned,
		Entities: make([]SpectatorState, 0, len(snap.Entities)),
	}
	for _, e := range snap.Entities {
		f.Entities = append(f.Entities, SpectatorState{
			ID:     e.ID,
			Kind:   e.Kind.String(),
			X:      e.X,
			Y:      e.Y,
			Extent: e.Extent,
		})
	}
	return f
}

// SpectatorHub fans authoritative snapshots out to read-only websocket
// viewers. Slow viewers miss frames rather than stall the loop.
type SpectatorHub struct {
	mu      sync.Mutex
	viewers map[chan []byte]struct{}
}

func NewSpectatorHub() *SpectatorHub {
	return &SpectatorHub{viewers: make(map[chan []byte]struct{})}
}

// Publish sends snap to every viewer without blocking.
func (h *SpectatorHub) Publish(snap *messages.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.viewers) == 0 {
		return
	}

	payload, err := json.Marshal(FrameOf(snap))
	if err != nil {
		log.Printf("[spectate] marshal: %v", err)
		return
	}
	for ch := range h.viewers {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Count returns the number of connected viewers.
func (h *SpectatorHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

func (h *SpectatorHub) subscribe() chan []byte {
	ch := make(chan []byte, spectatorBuffer)
	h.mu.Lock()
	h.viewers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *SpectatorHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.viewers, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams frames until the viewer leaves.
func (h *SpectatorHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[spectate] upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(spectatorPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(spectatorPongWait))
	})

	// Reads only serve control frames and notice the viewer leaving.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(spectatorPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(spectatorWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(spectatorWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
