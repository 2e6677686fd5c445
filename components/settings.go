package components

import "github.com/yohamta/donburi"

// SettingsData holds the player-adjustable settings persisted between runs.
type SettingsData struct {
	Debug           bool
	Fullscreen      bool
	ResolutionIndex int
	PlayerName      string
	Address         string
	Dirty           bool // changed since last save
}

var Settings = donburi.NewComponentType[SettingsData]()
