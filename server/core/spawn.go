package core

import (
	"math"

	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/tags"
	"github.com/solarlune/resolv"
	"gonum.org/v1/gonum/spatial/r2"
)

// spawnScale is resolv space units per arena unit; one cell is one arena unit.
const spawnScale = 8

// SpawnPlanner picks spawn points that do not overlap existing bodies. It
// mirrors the arena in a resolv space whose origin is the arena's top-left
// corner.
type SpawnPlanner struct {
	space      *resolv.Space
	bounds     gamemath.Bounds
	candidates []r2.Vec
	occupied   []*resolv.Object
}

// NewSpawnPlanner creates a planner trying candidates in order. With no
// candidates it uses points on a ring around the arena centre.
func NewSpawnPlanner(bounds gamemath.Bounds, candidates []r2.Vec) *SpawnPlanner {
	if len(candidates) == 0 {
		candidates = defaultSpawns(bounds)
	}
	w := int(2*bounds.HalfW*spawnScale) + 1
	h := int(2*bounds.HalfH*spawnScale) + 1
	return &SpawnPlanner{
		space:      resolv.NewSpace(w, h, spawnScale, spawnScale),
		bounds:     bounds,
		candidates: candidates,
	}
}

func defaultSpawns(b gamemath.Bounds) []r2.Vec {
	x, y := b.HalfW*0.6, b.HalfH*0.6
	return []r2.Vec{
		{X: -x}, {X: x}, {Y: -y}, {Y: y},
		{X: -x, Y: -y}, {X: x, Y: y}, {X: -x, Y: y}, {X: x, Y: -y},
	}
}

func (p *SpawnPlanner) object(center r2.Vec, extent float64, tag string) *resolv.Object {
	size := 2 * extent * spawnScale
	x := (center.X - extent + p.bounds.HalfW) * spawnScale
	y := (center.Y - extent + p.bounds.HalfH) * spawnScale
	obj := resolv.NewObject(x, y, size, size, tag)
	obj.SetShape(resolv.NewRectangle(0, 0, size, size))
	return obj
}

// Pick returns the first candidate where a body of extent touches none of
// bodies. When every candidate is taken it returns the one with the most
// clearance to its nearest body.
func (p *SpawnPlanner) Pick(bodies []messages.EntityState, extent float64) r2.Vec {
	p.space.Remove(p.occupied...)
	p.occupied = p.occupied[:0]
	for _, b := range bodies {
		obj := p.object(b.Position(), b.Extent, tags.ResolvBody)
		p.space.Add(obj)
		p.occupied = append(p.occupied, obj)
	}

	for _, c := range p.candidates {
		c = p.bounds.Clamp(c, extent)
		if p.free(c, extent) {
			return c
		}
	}
	return p.roomiest(bodies, extent)
}

func (p *SpawnPlanner) free(c r2.Vec, extent float64) bool {
	probe := p.object(c, extent, tags.ResolvSpawn)
	p.space.Add(probe)
	defer p.space.Remove(probe)

	check := probe.Check(0, 0, tags.ResolvBody)
	if check == nil {
		return true
	}
	for _, o := range check.ObjectsByTags(tags.ResolvBody) {
		if overlaps(probe, o) {
			return false
		}
	}
	return true
}

// overlaps runs a separating-axis test on the two shapes. Shapes that only
// touch share an edge projection of zero length and do not overlap.
func overlaps(a, b *resolv.Object) bool {
	pa, okA := a.Shape.(*resolv.ConvexPolygon)
	pb, okB := b.Shape.(*resolv.ConvexPolygon)
	if !okA || !okB {
		return a.Shape.Intersection(0, 0, b.Shape) != nil
	}
	for _, axis := range append(pa.SATAxes(), pb.SATAxes()...) {
		if !pa.Project(axis).Overlapping(pb.Project(axis)) {
			return false
		}
	}
	return true
}

func (p *SpawnPlanner) roomiest(bodies []messages.EntityState, extent float64) r2.Vec {
	best := p.bounds.Clamp(p.candidates[0], extent)
	bestGap := math.Inf(-1)
	for _, c := range p.candidates {
		c = p.bounds.Clamp(c, extent)
		gap := math.Inf(1)
		for _, b := range bodies {
			gap = math.Min(gap, gamemath.Distance(c, b.Position())-b.Extent)
		}
		if gap > bestGap {
			best, bestGap = c, gap
		}
	}
	return best
}
