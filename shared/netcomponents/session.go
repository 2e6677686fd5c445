package netcomponents

import (
	"github.com/automoto/stunsync/shared/session"
	"github.com/yohamta/donburi"
)

// NetSessionData is carried by the single session entity and publishes the
// authoritative stun state with the tick it belongs to.
type NetSessionData struct {
	Tick uint64
	Stun session.State
}

var NetSession = donburi.NewComponentType[NetSessionData]()
