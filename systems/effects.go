package systems

import (
	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi/ecs"
)

// minFlashSeconds keeps the flash visible for very short stuns.
const minFlashSeconds = 0.15

// UpdateStunFlash starts a fading flash whenever the local stun view turns
// on and advances it every frame.
func UpdateStunFlash(e *ecs.ECS) {
	flash := getOrCreateFlash(e)

	entry, ok := components.NetSession.First(e.World)
	if ok {
		if s := components.NetSession.Get(entry).Session; s != nil {
			stunned := s.Stun.IsPredictedLocally()
			if stunned && !flash.WasStunned {
				seconds := max(s.Stun.Duration()*cfg.StunFlash.FadeFraction, minFlashSeconds)
				flash.Tween = gween.New(cfg.StunFlash.PeakAlpha, 0, float32(seconds), ease.OutQuad)
				flash.Activations++
			}
			flash.WasStunned = stunned
		}
	}

	if flash.Tween == nil {
		return
	}
	alpha, done := flash.Tween.Update(float32(1 / float64(ebiten.TPS())))
	flash.Alpha = alpha
	if done {
		flash.Tween = nil
		flash.Alpha = 0
	}
}

func getOrCreateFlash(e *ecs.ECS) *components.StunFlashData {
	entry, ok := components.StunFlash.First(e.World)
	if !ok {
		entry = e.World.Entry(e.World.Create(components.StunFlash))
	}
	return components.StunFlash.Get(entry)
}
