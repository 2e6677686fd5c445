package netcomponents

import "github.com/yohamta/donburi"

// NetAckData is the reconciliation anchor of a controlled entity.
type NetAckData struct {
	HighestProcessed uint32 // Monotonic; only the simulator advances it
	StunStartSeq     uint32 // Sequence consumed on the tick the last stun began
}

var NetAck = donburi.NewComponentType[NetAckData]()

// Advance raises HighestProcessed to seq if seq is newer. Out-of-order and
// duplicate sequences never lower it.
func (a *NetAckData) Advance(seq uint32) {
	if seq > a.HighestProcessed {
		a.HighestProcessed = seq
	}
}
