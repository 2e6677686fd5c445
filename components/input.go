package components

import (
	cfg "github.com/automoto/stunsync/config"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

// InputMethod represents the type of input device being used
type InputMethod int

const (
	InputKeyboard InputMethod = iota
	InputGamepad
)

// InputData stores the current and previous frame's pressed state for all actions.
// JustPressed is computed on demand by comparing frames.
type InputData struct {
	Current         [cfg.ActionCount]bool // Current frame's Pressed state
	Previous        [cfg.ActionCount]bool // Previous frame's Pressed state
	LastInputMethod InputMethod           // Most recently used input method
}

var Input = donburi.NewComponentType[InputData]()

// Pressed reports whether action is held this frame.
func (d *InputData) Pressed(action cfg.ActionID) bool {
	return d.Current[action]
}

// JustPressed reports whether action went down this frame.
func (d *InputData) JustPressed(action cfg.ActionID) bool {
	return d.Current[action] && !d.Previous[action]
}

// Intent returns the movement direction held this frame. Arena Y grows
// downwards like screen space. Opposite keys cancel out; the result is not
// normalised.
func (d *InputData) Intent() r2.Vec {
	var v r2.Vec
	if d.Current[cfg.ActionMoveLeft] {
		v.X--
	}
	if d.Current[cfg.ActionMoveRight] {
		v.X++
	}
	if d.Current[cfg.ActionMoveUp] {
		v.Y--
	}
	if d.Current[cfg.ActionMoveDown] {
		v.Y++
	}
	return v
}
