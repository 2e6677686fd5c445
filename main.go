package main

import (
	"flag"
	"image"
	"log"

	cfg "github.com/automoto/stunsync/config"
	"github.com/automoto/stunsync/scenes"
	"github.com/automoto/stunsync/shared/protocol"
	"github.com/automoto/stunsync/systems"
	"github.com/hajimehoshi/ebiten/v2"
)

type Scene interface {
	Update()
	Draw(screen *ebiten.Image)
}

type Game struct {
	bounds image.Rectangle
	scene  Scene
}

// ChangeScene switches to a new scene
func (g *Game) ChangeScene(scene interface{}) {
	g.scene = scene.(Scene)
}

func NewGame() *Game {
	g := &Game{
		bounds: image.Rectangle{},
	}
	g.scene = scenes.NewConnectScene(g)
	return g
}

func (g *Game) Update() error {
	g.scene.Update()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
}

func (g *Game) Layout(width, height int) (int, int) {
	g.bounds = image.Rect(0, 0, cfg.C.Width, cfg.C.Height)
	return cfg.C.Width, cfg.C.Height
}

func main() {
	// Initialize persistence and load saved settings before flags so the
	// command line wins.
	if err := systems.InitPersistence(); err != nil {
		log.Printf("Warning: Could not initialize persistence: %v", err)
	}
	ebiten.SetWindowSize(cfg.C.Width, cfg.C.Height)
	if saved, err := systems.LoadSettings(); err == nil && saved != nil {
		systems.ApplySavedSettingsGlobal(saved)
	}

	flag.StringVar(&cfg.Net.Address, "addr", cfg.Net.Address, "Server address (host:port)")
	flag.StringVar(&cfg.Net.PlayerName, "name", cfg.Net.PlayerName, "Player name")
	flag.StringVar(&cfg.Net.Version, "version", cfg.Net.Version, "Client version sent on join")
	flag.BoolVar(&cfg.Debug.Overlay, "debug", cfg.Debug.Overlay, "Show the reconciliation overlay")
	flag.Parse()

	// Register network components for client-side deserialization
	if err := protocol.RegisterComponents(); err != nil {
		log.Fatalf("Failed to register network components: %v", err)
	}

	ebiten.SetWindowTitle("stunsync")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(NewGame()); err != nil {
		log.Fatal(err)
	}
}
