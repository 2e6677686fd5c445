package scenes

import (
	"fmt"
	"log"

	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/automoto/stunsync/network"
	"github.com/automoto/stunsync/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// ConnectScene dials the server and waits for the join handshake. Enter
// retries after a failure.
type ConnectScene struct {
	ecsWorld     *ecs.ECS
	sceneChanger SceneChanger
	netClient    *network.Client
	status       string
	failed       bool
}

func NewConnectScene(sc SceneChanger) *ConnectScene {
	s := &ConnectScene{
		sceneChanger: sc,
		ecsWorld:     ecs.NewECS(donburi.NewWorld()),
	}
	s.ecsWorld.AddSystem(systems.UpdateInput)
	s.ecsWorld.AddSystem(systems.UpdateSettings)
	s.connect()
	return s
}

func (s *ConnectScene) connect() {
	rtt := network.NewRTTEstimator(cfg.Net.RTTWindow, cfg.Net.InitialRTT)
	s.netClient = network.NewClient(rtt)
	s.netClient.Connect(cfg.Net.Address, cfg.Net.Version, cfg.Net.PlayerName)
	s.failed = false
	s.status = fmt.Sprintf("Connecting to %s...", cfg.Net.Address)
	log.Printf("[connect] dialing %s as %q", cfg.Net.Address, cfg.Net.PlayerName)
}

func (s *ConnectScene) Update() {
	s.ecsWorld.Update()

	if s.failed {
		if entry, ok := components.Input.First(s.ecsWorld.World); ok {
			if components.Input.Get(entry).JustPressed(cfg.ActionReconnect) {
				s.connect()
			}
		}
		return
	}

	select {
	case join := <-s.netClient.JoinEvents():
		s.sceneChanger.ChangeScene(NewNetworkedScene(s.sceneChanger, s.netClient, join))
		return
	default:
	}

	switch s.netClient.State() {
	case network.StateConnected:
		s.status = "Connected, joining game..."
	case network.StateError:
		msg := "Connection failed"
		if err := s.netClient.LastError(); err != nil {
			msg = err.Error()
		}
		s.fail(msg)
	case network.StateDisconnected:
		s.fail("Disconnected")
	}
}

func (s *ConnectScene) fail(msg string) {
	s.netClient.Disconnect()
	s.failed = true
	s.status = msg + "\nPress ENTER to retry"
}

func (s *ConnectScene) Draw(screen *ebiten.Image) {
	screen.Fill(cfg.Palette.Background)
	ebitenutil.DebugPrintAt(screen, s.status, 16, screen.Bounds().Dy()/2)
}
