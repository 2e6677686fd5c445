package config

import (
	"image/color"
	"time"

	"golang.org/x/image/colornames"
)

// Config holds window settings
type Config struct {
	Width  int
	Height int
	// Arena margin in screen pixels on every side
	Margin float64
}

// NetConfig holds connection settings. Flags and saved settings override
// these at startup.
type NetConfig struct {
	Address    string
	Version    string
	PlayerName string
	RTTWindow  int           // Pong samples averaged for the catch-up window
	InitialRTT time.Duration // Assumed RTT before the first pong
}

// PaletteConfig contains render colours
type PaletteConfig struct {
	Background   color.RGBA
	Arena        color.RGBA
	ArenaBorder  color.RGBA
	Own          color.RGBA
	OwnGhost     color.RGBA // authoritative position of the local player, debug only
	Remote       color.RGBA
	Passive      color.RGBA
	Frozen       color.RGBA
	CatchingUp   color.RGBA
	StunFlash    color.RGBA
	HUDText      color.RGBA
	ErrorText    color.RGBA
	PlayerColors []color.RGBA
}

// StunFlashConfig tunes the full-screen flash shown when a stun begins
type StunFlashConfig struct {
	PeakAlpha float32
	// Fraction of the stun duration the flash takes to fade
	FadeFraction float64
}

// DebugConfig contains debug toggles
type DebugConfig struct {
	Overlay bool // Show authoritative ghosts and reconciliation stats
}

var (
	C         *Config
	Net       NetConfig
	Palette   PaletteConfig
	StunFlash StunFlashConfig
	Debug     DebugConfig
)

func init() {
	C = &Config{
		Width:  640,
		Height: 640,
		Margin: 16,
	}

	Net = NetConfig{
		Address:    "localhost:7373",
		Version:    "",
		PlayerName: "player",
		RTTWindow:  16,
		InitialRTT: 100 * time.Millisecond,
	}

	Palette = PaletteConfig{
		Background:  colornames.Black,
		Arena:       colornames.Midnightblue,
		ArenaBorder: colornames.Slategray,
		Own:         colornames.Lime,
		OwnGhost:    color.RGBA{R: 255, G: 255, B: 255, A: 90},
		Remote:      colornames.Dodgerblue,
		Passive:     colornames.Orange,
		Frozen:      colornames.Lightsteelblue,
		CatchingUp:  colornames.Gold,
		StunFlash:   colornames.White,
		HUDText:     colornames.Lightgreen,
		ErrorText:   colornames.Tomato,
		PlayerColors: []color.RGBA{
			colornames.Dodgerblue,
			colornames.Hotpink,
			colornames.Mediumpurple,
			colornames.Turquoise,
		},
	}

	StunFlash = StunFlashConfig{
		PeakAlpha:    0.45,
		FadeFraction: 0.5,
	}

	Debug = DebugConfig{
		Overlay: false,
	}
}
