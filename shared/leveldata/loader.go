package leveldata

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/lafriks/go-tiled"
	"gonum.org/v1/gonum/spatial/r2"
)

// Object group names read from arena maps.
const (
	GroupPlayerSpawn = "PlayerSpawn"
	GroupCircles     = "Circles"
)

// ErrNoArena is returned for maps with no usable area.
var ErrNoArena = errors.New("arena has no area")

// LoadArena parses a TMX file into an Arena. It takes an fs.FS so callers can
// pass embed.FS or os.DirFS.
func LoadArena(fsys fs.FS, tmxPath string) (*Arena, error) {
	m, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}
	if m.Width <= 0 || m.Height <= 0 || m.TileWidth <= 0 || m.TileHeight <= 0 {
		return nil, fmt.Errorf("%s: %w", tmxPath, ErrNoArena)
	}

	arena := &Arena{
		Name:  strings.TrimSuffix(path.Base(tmxPath), ".tmx"),
		HalfW: float64(m.Width) / 2,
		HalfH: float64(m.Height) / 2,
	}
	tileW := float64(m.TileWidth)
	tileH := float64(m.TileHeight)

	// Pixel space has its origin top-left; arena space is centred.
	toArena := func(px, py float64) r2.Vec {
		return r2.Vec{X: px/tileW - arena.HalfW, Y: py/tileH - arena.HalfH}
	}

	for _, og := range m.ObjectGroups {
		switch og.Name {
		case GroupPlayerSpawn:
			for _, o := range og.Objects {
				arena.PlayerSpawns = append(arena.PlayerSpawns, toArena(o.X, o.Y))
			}
		case GroupCircles:
			for _, o := range og.Objects {
				radius := o.Properties.GetFloat("radius")
				if radius <= 0 {
					radius = o.Width / tileW / 2
				}
				if radius <= 0 {
					continue
				}
				arena.Circles = append(arena.Circles, Circle{
					Position: toArena(o.X+o.Width/2, o.Y+o.Height/2),
					Velocity: r2.Vec{X: o.Properties.GetFloat("vx"), Y: o.Properties.GetFloat("vy")},
					Radius:   radius,
				})
			}
		}
	}

	// Sort spawns left-to-right for consistent assignment
	sort.Slice(arena.PlayerSpawns, func(i, j int) bool {
		return arena.PlayerSpawns[i].X < arena.PlayerSpawns[j].X
	})

	return arena, nil
}
