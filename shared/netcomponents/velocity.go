package netcomponents

import (
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

type NetVelocityData struct {
	SpeedX, SpeedY float64
}

var NetVelocity = donburi.NewComponentType[NetVelocityData]()

// Vec returns the velocity as a vector.
func (v NetVelocityData) Vec() r2.Vec { return r2.Vec{X: v.SpeedX, Y: v.SpeedY} }

// VelocityOf wraps a vector as component data.
func VelocityOf(v r2.Vec) NetVelocityData { return NetVelocityData{SpeedX: v.X, SpeedY: v.Y} }
