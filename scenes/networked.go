package scenes

import (
	"log"
	"sync"

	"github.com/automoto/stunsync/archetypes"
	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/automoto/stunsync/network"
	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// NetworkedScene runs the predicted session for one joined server.
type NetworkedScene struct {
	ecsWorld     *ecs.ECS
	sceneChanger SceneChanger
	netClient    *network.Client
	join         messages.JoinAccepted
	once         sync.Once
}

func NewNetworkedScene(sc SceneChanger, client *network.Client, join messages.JoinAccepted) *NetworkedScene {
	return &NetworkedScene{
		sceneChanger: sc,
		netClient:    client,
		join:         join,
	}
}

func (ns *NetworkedScene) Update() {
	ns.once.Do(ns.configure)

	state := ns.netClient.State()
	if state == network.StateDisconnected || state == network.StateError {
		log.Println("[networked] disconnected, reconnecting")
		ns.netClient.Disconnect()
		ebiten.SetTPS(ebiten.DefaultTPS)
		ns.sceneChanger.ChangeScene(NewConnectScene(ns.sceneChanger))
		return
	}

	ns.ecsWorld.Update()
}

func (ns *NetworkedScene) Draw(screen *ebiten.Image) {
	screen.Fill(cfg.Palette.Background)

	if ns.ecsWorld == nil {
		return
	}
	ns.ecsWorld.Draw(screen)
}

func (ns *NetworkedScene) configure() {
	// One frame is one simulation tick.
	ebiten.SetTPS(ns.join.TickRate)

	ns.ecsWorld = ecs.NewECS(donburi.NewWorld())

	sessionCfg := network.SessionConfigFromJoin(ns.join)
	session := network.NewClientSession(sessionCfg, ns.netClient.RTT())

	entry := archetypes.Session.Spawn(ns.ecsWorld)
	components.NetSession.SetValue(entry, components.NetSessionData{
		Client:  ns.netClient,
		Session: session,
		Join:    ns.join,
		Bounds:  gamemath.Bounds{HalfW: ns.join.HalfW, HalfH: ns.join.HalfH},
	})
	components.Settings.SetValue(entry, components.SettingsData{
		Debug:           cfg.Debug.Overlay,
		Fullscreen:      ebiten.IsFullscreen(),
		ResolutionIndex: cfg.SettingsMenu.DefaultResolutionIndex,
		PlayerName:      cfg.Net.PlayerName,
		Address:         cfg.Net.Address,
	})

	sendFn := func(in messages.PlayerInput) error {
		if ns.netClient.State() != network.StateJoinedGame {
			return nil
		}
		return ns.netClient.SendInput(in)
	}
	ns.ecsWorld.AddSystem(systems.UpdateInput)
	ns.ecsWorld.AddSystem(systems.UpdateSettings)
	ns.ecsWorld.AddSystem(systems.NewNetworkInputSystem(sendFn))
	ns.ecsWorld.AddSystem(systems.UpdateStunFlash)
	ns.ecsWorld.AddRenderer(cfg.Default, systems.DrawArena)
	ns.ecsWorld.AddRenderer(cfg.Default, systems.DrawNetworkedEntities)
	ns.ecsWorld.AddRenderer(cfg.Overlay, systems.DrawStunFlash)
	ns.ecsWorld.AddRenderer(cfg.Overlay, systems.DrawNetworkHUD)

	log.Printf("[networked] joined %q as entity %d at (%.2f, %.2f)",
		ns.join.ServerName, ns.join.EntityID, ns.join.SpawnX, ns.join.SpawnY)
}
