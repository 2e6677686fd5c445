package network

import (
	"sort"

	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
)

// DecodeWorldSnapshot converts an esync world snapshot into a Snapshot.
// Components that fail to deserialize are skipped, as are entities without a
// body.
func DecodeWorldSnapshot(ws esync.WorldSnapshot) *messages.Snapshot {
	var b snapshotBuilder
	for _, ent := range ws {
		var comps []any
		for _, raw := range ent.State {
			instance, err := esync.Mapper.Deserialize(raw)
			if err != nil {
				continue
			}
			comps = append(comps, instance)
		}
		b.add(comps)
	}
	return b.build()
}

type snapshotBuilder struct {
	snap messages.Snapshot
}

// add folds one entity's component values into the snapshot. The session
// entity contributes the tick and stun state; bodies become entities.
func (b *snapshotBuilder) add(comps []any) {
	var (
		e       messages.EntityState
		hasBody bool
	)
	for _, c := range comps {
		switch v := c.(type) {
		case netcomponents.NetSessionData:
			b.snap.Tick = v.Tick
			b.snap.Stun = v.Stun
		case netcomponents.NetBodyData:
			e.ID = v.ID
			e.Kind = v.Kind
			e.Extent = v.Extent
			hasBody = true
		case netcomponents.NetPositionData:
			e.X, e.Y = v.X, v.Y
		case netcomponents.NetVelocityData:
			e.VX, e.VY = v.SpeedX, v.SpeedY
		case netcomponents.NetAckData:
			e.HighestProcessed = v.HighestProcessed
			e.StunStartSeq = v.StunStartSeq
		}
	}
	if hasBody {
		b.snap.Entities = append(b.snap.Entities, e)
	}
}

func (b *snapshotBuilder) build() *messages.Snapshot {
	snap := b.snap
	sort.Slice(snap.Entities, func(i, j int) bool { return snap.Entities[i].ID < snap.Entities[j].ID })
	return &snap
}
