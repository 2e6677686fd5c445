package netcomponents

import (
	"github.com/automoto/stunsync/shared/messages"
	"github.com/yohamta/donburi"
)

// NetBodyData identifies an entity across peers and carries its collision
// half-extent. IDs are assigned by the server and never reused.
type NetBodyData struct {
	ID     uint32
	Kind   messages.EntityKind
	Extent float64
}

var NetBody = donburi.NewComponentType[NetBodyData]()
