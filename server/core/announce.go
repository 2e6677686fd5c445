package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

const defaultAnnounceInterval = 30 * time.Second

// Occupancy is what an Announcer reports about the running server.
type Occupancy interface {
	PlayerCount() int
}

// AnnounceConfig describes how the server lists itself with a directory.
type AnnounceConfig struct {
	DirectoryURL string
	Name         string
	Address      string // Address clients should dial
	Version      string
	Arena        string
	TickRate     int
	MaxPlayers   int
	Interval     time.Duration // Heartbeat period, 30s when zero
}

// Announcer registers the server with a directory and keeps the listing
// alive with heartbeats carrying the player count.
type Announcer struct {
	cfg    AnnounceConfig
	source Occupancy
	client *http.Client

	mu       sync.Mutex
	listing  string
	stopOnce sync.Once
	stopCh   chan struct{}
}

type listingRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Version    string `json:"version"`
	Arena      string `json:"arena"`
	TickRate   int    `json:"tickRate"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
}

type listingResponse struct {
	ID string `json:"id"`
}

type heartbeatRequest struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

func NewAnnouncer(cfg AnnounceConfig, source Occupancy) *Announcer {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultAnnounceInterval
	}
	return &Announcer{
		cfg:    cfg,
		source: source,
		client: &http.Client{Timeout: 5 * time.Second},
		stopCh: make(chan struct{}),
	}
}

// Start registers once and heartbeats until Stop.
func (a *Announcer) Start() {
	if err := a.register(); err != nil {
		log.Printf("[announce] initial registration failed: %v", err)
	}
	go a.heartbeatLoop()
}

func (a *Announcer) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

// ListingID is the id the directory assigned, empty until registered.
func (a *Announcer) ListingID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listing
}

func (a *Announcer) register() error {
	var result listingResponse
	err := a.post("/servers/register", listingRequest{
		Name:       a.cfg.Name,
		Address:    a.cfg.Address,
		Version:    a.cfg.Version,
		Arena:      a.cfg.Arena,
		TickRate:   a.cfg.TickRate,
		Players:    a.source.PlayerCount(),
		MaxPlayers: a.cfg.MaxPlayers,
	}, http.StatusCreated, &result)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.listing = result.ID
	a.mu.Unlock()
	log.Printf("[announce] listed with directory (id=%s)", result.ID)
	return nil
}

func (a *Announcer) heartbeatLoop() {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if err := a.heartbeat(); err != nil {
				log.Printf("[announce] heartbeat failed: %v", err)
			}
		}
	}
}

func (a *Announcer) heartbeat() error {
	err := a.post("/servers/heartbeat", heartbeatRequest{
		ID:      a.ListingID(),
		Players: a.source.PlayerCount(),
	}, http.StatusOK, nil)
	if errors.Is(err, errListingLost) {
		log.Println("[announce] directory lost our listing, registering again")
		return a.register()
	}
	return err
}

var errListingLost = errors.New("listing not found")

func (a *Announcer) post(path string, payload any, want int, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := a.client.Post(a.cfg.DirectoryURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && path != "/servers/register":
		return errListingLost
	case resp.StatusCode != want:
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return nil
}
