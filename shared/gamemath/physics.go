package gamemath

import "gonum.org/v1/gonum/spatial/r2"

// StepControlled advances an input-driven body by one tick. The input is a
// normalised direction; the result is clamped to the arena without any
// velocity bookkeeping. Server and client prediction must both call this.
func StepControlled(pos, input r2.Vec, speed, dt, extent float64, b Bounds) r2.Vec {
	next := r2.Add(pos, r2.Scale(speed*dt, input))
	return b.Clamp(next, extent)
}

// StepPassive advances a velocity-driven body by one tick, reflecting the
// velocity component of any axis whose arena edge was crossed.
func StepPassive(pos, vel r2.Vec, dt, extent float64, b Bounds) (r2.Vec, r2.Vec) {
	next := r2.Add(pos, r2.Scale(dt, vel))
	return b.Reflect(next, vel, extent)
}

// NormalizeIntent returns the unit direction of v, or the zero vector when v
// has no length.
func NormalizeIntent(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}

// Distance returns |a - b|.
func Distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Motion bundles the parameters a controlled body is integrated with. Every
// peer must use the same values; the server sends them on join.
type Motion struct {
	Speed  float64
	Extent float64
	Dt     float64
	Bounds Bounds
}

// Step applies one tick of input to pos.
func (m Motion) Step(pos, input r2.Vec) r2.Vec {
	return StepControlled(pos, input, m.Speed, m.Dt, m.Extent, m.Bounds)
}
