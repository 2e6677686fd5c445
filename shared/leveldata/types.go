// Package leveldata provides TMX arena parsing shared between client and server.
// It depends on nothing client or server specific, only go-tiled and gonum.
package leveldata

import "gonum.org/v1/gonum/spatial/r2"

// Arena holds everything the simulator needs from a TMX arena file, in
// arena units centred on the origin. One tile is one arena unit.
type Arena struct {
	Name         string
	HalfW, HalfH float64
	PlayerSpawns []r2.Vec
	Circles      []Circle
}

// Circle is a passive obstacle spawn.
type Circle struct {
	Position r2.Vec
	Velocity r2.Vec
	Radius   float64
}
