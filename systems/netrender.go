package systems

import (
	"fmt"
	"image/color"
	"time"

	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/automoto/stunsync/network"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi/ecs"
)

// DrawNetworkedEntities renders the session's views: controlled entities as
// squares, passive ones as circles.
func DrawNetworkedEntities(e *ecs.ECS, screen *ebiten.Image) {
	net, t, ok := sessionTransform(e, screen)
	if !ok {
		return
	}
	debug := getOrCreateSettings(e).Debug

	for _, v := range net.Session.Views() {
		x, y := t.point(v.Position)
		r := t.length(v.Extent)
		c := viewColor(v)

		switch v.Kind {
		case messages.KindPassive:
			vector.DrawFilledCircle(screen, x, y, r, c, true)
			if v.Catching {
				vector.StrokeCircle(screen, x, y, r+2, 1.5, cfg.Palette.CatchingUp, true)
			}
		default:
			vector.DrawFilledRect(screen, x-r, y-r, 2*r, 2*r, c, false)
		}

		if debug {
			ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d", v.ID), int(x-r), int(y-r)-14)
		}
	}

	if debug {
		drawOwnGhost(screen, net, t)
	}
}

func viewColor(v network.View) color.RGBA {
	switch {
	case v.Frozen:
		return cfg.Palette.Frozen
	case v.Owned:
		return cfg.Palette.Own
	case v.Kind == messages.KindPassive:
		return cfg.Palette.Passive
	}
	colors := cfg.Palette.PlayerColors
	return colors[int(v.ID)%len(colors)]
}

// drawOwnGhost outlines the last authoritative position of the local player.
func drawOwnGhost(screen *ebiten.Image, net *components.NetSessionData, t arenaTransform) {
	own, ok := net.Session.Applied().Find(net.Session.EntityID())
	if !ok {
		return
	}
	x, y := t.point(own.Position())
	r := t.length(own.Extent)
	vector.StrokeRect(screen, x-r, y-r, 2*r, 2*r, 1, cfg.Palette.OwnGhost, false)
}

// DrawNetworkHUD prints connection and reconciliation state.
func DrawNetworkHUD(e *ecs.ECS, screen *ebiten.Image) {
	entry, ok := components.NetSession.First(e.World)
	if !ok {
		return
	}
	net := components.NetSession.Get(entry)

	state := "offline"
	if net.Client != nil {
		state = net.Client.State().String()
	}
	if net.Session == nil {
		ebitenutil.DebugPrintAt(screen, "Online - "+state, 4, 4)
		return
	}

	s := net.Session
	stun := "idle"
	if s.Stun.IsPredictedLocally() {
		stun = fmt.Sprintf("stunned (%d)", s.Stun.PredictedFramesLeft())
	}
	info := fmt.Sprintf("%s - %s  entity %d  entities %d\nrtt %s  seq %d  ack %d  corrections %d\nstun %s  server %s",
		net.Join.ServerName, state, s.EntityID(), len(s.Views()),
		s.RTT.Duration().Round(time.Millisecond), net.LastSent.Sequence, s.Reconciler.LastAck(), s.Reconciler.Corrections(),
		stun, s.Stun.Phase())
	ebitenutil.DebugPrintAt(screen, info, 4, 4)

	if !getOrCreateSettings(e).Debug {
		return
	}
	if snap := s.Applied(); snap != nil {
		ebitenutil.DebugPrintAt(screen,
			fmt.Sprintf("server tick %d  buffered %d  tps %.0f", snap.Tick, s.Predictor.Buffer.Len(), ebiten.ActualTPS()),
			4, screen.Bounds().Dy()-18)
	}
}
