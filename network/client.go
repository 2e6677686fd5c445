package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/automoto/stunsync/shared/messages"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

// ErrNotConnected is returned when sending without an open connection.
var ErrNotConnected = errors.New("not connected")

const pingInterval = 500 * time.Millisecond

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedGame:
		return "joined"
	case StateError:
		return "error"
	}
	return "disconnected"
}

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state     ClientState
	lastError error
	join      messages.JoinAccepted
	conn      *websocket.Conn
	stopPing  chan struct{}

	rtt        *RTTEstimator
	snapshotCh chan *messages.Snapshot // size-1 buffered; latest wins
	joinCh     chan messages.JoinAccepted
}

// NewClient creates a disconnected client. Round trips measured by its pings
// are recorded in rtt.
func NewClient(rtt *RTTEstimator) *Client {
	if rtt == nil {
		rtt = NewRTTEstimator(defaultRTTWindow, defaultRTT)
	}
	return &Client{
		state:      StateDisconnected,
		rtt:        rtt,
		snapshotCh: make(chan *messages.Snapshot, 1),
		joinCh:     make(chan messages.JoinAccepted, 1),
	}
}

// Connect dials the server in a background goroutine and initiates the join handshake.
func (c *Client) Connect(address, version, playerName string) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		log.Println("[client] connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		err := c.SendMessage(messages.JoinRequest{
			Version:    version,
			PlayerName: playerName,
		})
		if err != nil {
			c.setError(fmt.Errorf("send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		log.Printf("[client] join accepted: entity=%d server=%s tickRate=%d",
			msg.EntityID, msg.ServerName, msg.TickRate)
		c.mu.Lock()
		c.join = msg
		c.state = StateJoinedGame
		c.haltPingLocked()
		c.stopPing = make(chan struct{})
		stop := c.stopPing
		c.mu.Unlock()

		select {
		case c.joinCh <- msg:
		default:
		}
		go c.pingLoop(stop)
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		log.Printf("[client] join rejected: %s", msg.Reason)
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	})

	router.On(func(_ *router.NetworkClient, msg messages.Pong) {
		c.rtt.ObservePong(msg.SentAt, time.Now())
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) {
		snap := DecodeWorldSnapshot(snapshot)
		select { // drain stale, push latest
		case <-c.snapshotCh:
		default:
		}
		c.snapshotCh <- snap
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] disconnected: %v", err)
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.haltPingLocked()
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] error: %v", err)
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.haltPingLocked()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) pingLoop(stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if err := c.SendMessage(messages.Ping{SentAt: now.UnixNano()}); err != nil && !errors.Is(err, ErrNotConnected) {
				log.Printf("[client] ping: %v", err)
			}
		}
	}
}

func (c *Client) haltPingLocked() {
	if c.stopPing != nil {
		close(c.stopPing)
		c.stopPing = nil
	}
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Joined returns the server's join reply once it has arrived.
func (c *Client) Joined() (messages.JoinAccepted, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.join, c.state == StateJoinedGame
}

// JoinEvents delivers the join reply once. Non-blocking readers should select on it.
func (c *Client) JoinEvents() <-chan messages.JoinAccepted { return c.joinCh }

// RTT returns the estimator fed by this client's pings.
func (c *Client) RTT() *RTTEstimator { return c.rtt }

// LatestSnapshot returns the most recent decoded snapshot, or nil. Non-blocking.
func (c *Client) LatestSnapshot() *messages.Snapshot {
	select {
	case snap := <-c.snapshotCh:
		return snap
	default:
		return nil
	}
}

// SendInput stamps and transmits one predicted input.
func (c *Client) SendInput(in messages.PlayerInput) error {
	in.Timestamp = time.Now().UnixMilli()
	return c.SendMessage(in)
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}
