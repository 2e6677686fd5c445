package config

// Resolution represents a display resolution option
type Resolution struct {
	Width  int
	Height int
	Label  string
}

// SettingsMenuConfig contains settings screen configuration
type SettingsMenuConfig struct {
	Resolutions            []Resolution
	DefaultResolutionIndex int
}

// SettingsMenu is the global settings menu configuration
var SettingsMenu SettingsMenuConfig

func init() {
	SettingsMenu = SettingsMenuConfig{
		Resolutions: []Resolution{
			{Width: 960, Height: 960, Label: "960 x 960"},
			{Width: 720, Height: 720, Label: "720 x 720"},
			{Width: 1080, Height: 1080, Label: "1080 x 1080"},
		},
		DefaultResolutionIndex: 0,
	}
}
