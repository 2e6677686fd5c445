package systems

import (
	"errors"
	"log"

	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/automoto/stunsync/network"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/yohamta/donburi/ecs"
)

// NewNetworkInputSystem returns an ECS system that runs one predicted tick
// per frame: it hands the newest server snapshot to the session, predicts
// with the polled input and sends the resulting PlayerInput. Every tick is
// sent, so the server sees one sequence number per client tick.
func NewNetworkInputSystem(sendFn func(messages.PlayerInput) error) func(*ecs.ECS) {
	var lastErrLogged error

	return func(e *ecs.ECS) {
		entry, ok := components.NetSession.First(e.World)
		if !ok {
			return
		}
		net := components.NetSession.Get(entry)
		if net.Session == nil {
			return
		}

		if net.Client != nil {
			if snap := net.Client.LatestSnapshot(); snap != nil {
				net.Session.Offer(snap)
			}
		}

		input := getOrCreateInput(e)
		in := net.Session.Tick(input.Intent(), input.JustPressed(cfg.ActionStun))
		net.LastSent = in

		err := sendFn(in)
		net.SendError = err
		if err != nil && err != lastErrLogged && !errors.Is(err, network.ErrNotConnected) {
			log.Printf("[netinput] send error: %v", err)
		}
		lastErrLogged = err
	}
}
