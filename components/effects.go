package components

import (
	"github.com/tanema/gween"
	"github.com/yohamta/donburi"
)

// StunFlashData tracks the full-screen flash shown while a stun begins.
type StunFlashData struct {
	Tween       *gween.Tween // nil when idle
	Alpha       float32
	WasStunned  bool
	Activations int
}

var StunFlash = donburi.NewComponentType[StunFlashData]()
