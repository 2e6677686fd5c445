package components

import (
	"github.com/automoto/stunsync/network"
	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/yohamta/donburi"
)

// NetSessionData binds the scene to its connection and the predicted session
// built from the join handshake.
type NetSessionData struct {
	Client  *network.Client
	Session *network.ClientSession
	Join    messages.JoinAccepted
	Bounds  gamemath.Bounds

	LastSent  messages.PlayerInput
	SendError error
}

var NetSession = donburi.NewComponentType[NetSessionData]()
