package netcomponents

import (
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

type NetPositionData struct {
	X, Y float64
}

var NetPosition = donburi.NewComponentType[NetPositionData]()

// Vec returns the position as a vector.
func (p NetPositionData) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// PositionOf wraps a vector as component data.
func PositionOf(v r2.Vec) NetPositionData { return NetPositionData{X: v.X, Y: v.Y} }
