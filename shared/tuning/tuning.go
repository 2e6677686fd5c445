// Package tuning loads the simulation parameters shared by every peer:
// tick length, movement speed and extent, arena size, stun duration and the
// reconciliation threshold. Defaults are embedded; a YAML file may override
// any subset of them.
package tuning

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/automoto/stunsync/shared/gamemath"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid tuning")

// Config holds all simulation tuning.
type Config struct {
	TickRate      int             `yaml:"tick_rate"`
	BroadcastRate int             `yaml:"broadcast_rate"`
	Player        PlayerConfig    `yaml:"player"`
	Arena         ArenaConfig     `yaml:"arena"`
	Stun          StunConfig      `yaml:"stun"`
	Reconcile     ReconcileConfig `yaml:"reconcile"`
	Server        ServerConfig    `yaml:"server"`
	Circles       []CircleConfig  `yaml:"circles"`
}

// PlayerConfig tunes controlled entities.
type PlayerConfig struct {
	Speed  float64 `yaml:"speed"`
	Extent float64 `yaml:"extent"`
}

// ArenaConfig describes the arena. Map, when set, names a TMX file whose
// size and objects replace the half sizes and circles.
type ArenaConfig struct {
	HalfWidth  float64 `yaml:"half_width"`
	HalfHeight float64 `yaml:"half_height"`
	Map        string  `yaml:"map"`
}

// StunConfig tunes the global freeze.
type StunConfig struct {
	Duration float64 `yaml:"duration"`
}

// ReconcileConfig tunes client reconciliation.
type ReconcileConfig struct {
	Epsilon        float64 `yaml:"epsilon"`         // Divergence tolerated before replaying
	BufferCapacity int     `yaml:"buffer_capacity"` // Prediction ring size, rounded up to a power of two
}

// ServerConfig tunes the authoritative server.
type ServerConfig struct {
	InputQueue int `yaml:"input_queue"` // Per-entity input mailbox capacity
}

// CircleConfig is a passive obstacle.
type CircleConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	VX     float64 `yaml:"vx"`
	VY     float64 `yaml:"vy"`
	Radius float64 `yaml:"radius"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("tuning: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads path over the embedded defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick_rate must be > 0", ErrInvalid)
	case c.BroadcastRate <= 0 || c.BroadcastRate > c.TickRate:
		return fmt.Errorf("%w: broadcast_rate must be in (0, tick_rate]", ErrInvalid)
	case c.Player.Speed <= 0:
		return fmt.Errorf("%w: player.speed must be > 0", ErrInvalid)
	case c.Player.Extent <= 0:
		return fmt.Errorf("%w: player.extent must be > 0", ErrInvalid)
	case c.Arena.HalfWidth <= c.Player.Extent || c.Arena.HalfHeight <= c.Player.Extent:
		return fmt.Errorf("%w: arena must be larger than the player", ErrInvalid)
	case c.Stun.Duration < 0:
		return fmt.Errorf("%w: stun.duration must be >= 0", ErrInvalid)
	case c.Reconcile.Epsilon <= 0:
		return fmt.Errorf("%w: reconcile.epsilon must be > 0", ErrInvalid)
	case c.Reconcile.BufferCapacity < 2:
		return fmt.Errorf("%w: reconcile.buffer_capacity must be >= 2", ErrInvalid)
	case c.Server.InputQueue < 1:
		return fmt.Errorf("%w: server.input_queue must be >= 1", ErrInvalid)
	}
	limit := min(c.Arena.HalfWidth, c.Arena.HalfHeight)
	for i, circle := range c.Circles {
		switch {
		case circle.Radius <= 0:
			return fmt.Errorf("%w: circles[%d].radius must be > 0", ErrInvalid, i)
		case circle.Radius >= limit:
			return fmt.Errorf("%w: circles[%d].radius must be smaller than the arena half size", ErrInvalid, i)
		}
	}
	return nil
}

// TickDuration is the fixed simulation step in seconds.
func (c *Config) TickDuration() float64 {
	return 1 / float64(c.TickRate)
}

// BroadcastEvery is the number of ticks between snapshot broadcasts.
func (c *Config) BroadcastEvery() int {
	n := c.TickRate / c.BroadcastRate
	if n < 1 {
		n = 1
	}
	return n
}

// Bounds returns the arena bounds.
func (c *Config) Bounds() gamemath.Bounds {
	return gamemath.NewBounds(r2.Vec{X: c.Arena.HalfWidth, Y: c.Arena.HalfHeight})
}
