// Package gamemath holds the motion and arena rules shared by the server
// simulator and client-side prediction. It has no dependencies on ebiten,
// donburi or the network stack so both binaries can link it.
package gamemath

import "gonum.org/v1/gonum/spatial/r2"

// Bounds is an arena centred on the origin, described by its half sizes.
type Bounds struct {
	HalfW, HalfH float64
}

// NewBounds builds a Bounds from a half-size vector.
func NewBounds(half r2.Vec) Bounds {
	return Bounds{HalfW: half.X, HalfH: half.Y}
}

// Clamp pulls pos back inside the arena so that a body of the given extent
// touches the crossed edge at most. The low edge of each axis is checked
// first, matching Reflect.
func (b Bounds) Clamp(pos r2.Vec, extent float64) r2.Vec {
	pos.X, _ = clampAxis(pos.X, extent, b.HalfW)
	pos.Y, _ = clampAxis(pos.Y, extent, b.HalfH)
	return pos
}

// Reflect clamps pos like Clamp and negates the velocity component of every
// axis that was clamped.
func (b Bounds) Reflect(pos, vel r2.Vec, extent float64) (r2.Vec, r2.Vec) {
	var hit bool
	pos.X, hit = clampAxis(pos.X, extent, b.HalfW)
	if hit {
		vel.X = -vel.X
	}
	pos.Y, hit = clampAxis(pos.Y, extent, b.HalfH)
	if hit {
		vel.Y = -vel.Y
	}
	return pos, vel
}

// Contains reports whether a body of the given extent at pos lies fully
// inside the arena.
func (b Bounds) Contains(pos r2.Vec, extent float64) bool {
	return pos.X-extent >= -b.HalfW && pos.X+extent <= b.HalfW &&
		pos.Y-extent >= -b.HalfH && pos.Y+extent <= b.HalfH
}

func clampAxis(v, extent, half float64) (float64, bool) {
	if v-extent < -half {
		return -half + extent, true
	}
	if v+extent > half {
		return half - extent, true
	}
	return v, false
}
