package systems

import (
	"image/color"

	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// arenaTransform maps arena units onto the screen. The arena is centred and
// scaled to fit inside the configured margin.
type arenaTransform struct {
	scale  float64
	cx, cy float64
}

func newArenaTransform(b gamemath.Bounds, width, height int) arenaTransform {
	availW := float64(width) - 2*cfg.C.Margin
	availH := float64(height) - 2*cfg.C.Margin
	scale := min(availW/(2*b.HalfW), availH/(2*b.HalfH))
	return arenaTransform{
		scale: scale,
		cx:    float64(width) / 2,
		cy:    float64(height) / 2,
	}
}

func (t arenaTransform) point(p r2.Vec) (float32, float32) {
	return float32(t.cx + p.X*t.scale), float32(t.cy + p.Y*t.scale)
}

func (t arenaTransform) length(v float64) float32 {
	return float32(v * t.scale)
}

// sessionTransform returns the transform for the joined arena.
func sessionTransform(e *ecs.ECS, screen *ebiten.Image) (*components.NetSessionData, arenaTransform, bool) {
	entry, ok := components.NetSession.First(e.World)
	if !ok {
		return nil, arenaTransform{}, false
	}
	net := components.NetSession.Get(entry)
	if net.Session == nil {
		return nil, arenaTransform{}, false
	}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	return net, newArenaTransform(net.Bounds, w, h), true
}

// DrawArena fills the playable area and outlines its edges.
func DrawArena(e *ecs.ECS, screen *ebiten.Image) {
	net, t, ok := sessionTransform(e, screen)
	if !ok {
		return
	}
	b := net.Bounds
	x, y := t.point(r2.Vec{X: -b.HalfW, Y: -b.HalfH})
	w, h := t.length(2*b.HalfW), t.length(2*b.HalfH)
	vector.DrawFilledRect(screen, x, y, w, h, cfg.Palette.Arena, false)
	vector.StrokeRect(screen, x, y, w, h, 2, cfg.Palette.ArenaBorder, false)
}

// DrawStunFlash fades a full-screen overlay after a stun begins.
func DrawStunFlash(e *ecs.ECS, screen *ebiten.Image) {
	entry, ok := components.StunFlash.First(e.World)
	if !ok {
		return
	}
	flash := components.StunFlash.Get(entry)
	if flash.Alpha <= 0 {
		return
	}
	c := cfg.Palette.StunFlash
	overlay := color.RGBA{
		R: uint8(float32(c.R) * flash.Alpha),
		G: uint8(float32(c.G) * flash.Alpha),
		B: uint8(float32(c.B) * flash.Alpha),
		A: uint8(255 * flash.Alpha),
	}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	vector.DrawFilledRect(screen, 0, 0, float32(w), float32(h), overlay, false)
}
