package systems

import (
	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi/ecs"
)

// UpdateSettings applies the debug and fullscreen toggles and saves any
// change.
func UpdateSettings(e *ecs.ECS) {
	settings := getOrCreateSettings(e)
	input := getOrCreateInput(e)

	if input.JustPressed(cfg.ActionToggleDebug) {
		settings.Debug = !settings.Debug
		cfg.Debug.Overlay = settings.Debug
		settings.Dirty = true
	}
	if input.JustPressed(cfg.ActionFullscreen) {
		settings.Fullscreen = !settings.Fullscreen
		ebiten.SetFullscreen(settings.Fullscreen)
		settings.Dirty = true
	}

	if settings.Dirty {
		SaveCurrentSettings(settings)
		settings.Dirty = false
	}
}

// getOrCreateSettings returns the singleton Settings component, seeding it
// from the global config on first use.
func getOrCreateSettings(e *ecs.ECS) *components.SettingsData {
	entry, ok := components.Settings.First(e.World)
	if !ok {
		entry = e.World.Entry(e.World.Create(components.Settings))
		components.Settings.SetValue(entry, components.SettingsData{
			Debug:           cfg.Debug.Overlay,
			Fullscreen:      ebiten.IsFullscreen(),
			ResolutionIndex: cfg.SettingsMenu.DefaultResolutionIndex,
			PlayerName:      cfg.Net.PlayerName,
			Address:         cfg.Net.Address,
		})
	}
	return components.Settings.Get(entry)
}
