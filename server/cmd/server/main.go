package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/automoto/stunsync/server/core"
	"github.com/automoto/stunsync/shared/leveldata"
	"github.com/automoto/stunsync/shared/protocol"
	"github.com/automoto/stunsync/shared/tuning"
	"github.com/joho/godotenv"
)

// envOr returns the environment variable key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint) uint {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return uint(n)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	port := flag.Uint("port", envUint("STUNSYNC_PORT", 7373), "Server port")
	httpAddr := flag.String("http", envOr("STUNSYNC_HTTP", ":7374"), "Address for /metrics and /spectate (empty disables)")
	name := flag.String("name", envOr("STUNSYNC_NAME", "Stunsync Server"), "Server display name")
	version := flag.String("version", envOr("STUNSYNC_VERSION", ""), "Required client version (empty = accept any)")
	configPath := flag.String("config", envOr("STUNSYNC_CONFIG", ""), "Tuning YAML overriding the defaults")
	mapPath := flag.String("map", envOr("STUNSYNC_MAP", ""), "TMX arena (overrides arena.map in the tuning)")
	maxPlayers := flag.Int("maxplayers", 0, "Maximum players (0 = unlimited)")
	directory := flag.String("directory", envOr("STUNSYNC_DIRECTORY", ""), "Server directory URL to announce to (empty disables)")
	advertise := flag.String("advertise", envOr("STUNSYNC_ADVERTISE", ""), "Address announced to the directory (default: localhost:<port>)")
	flag.Parse()

	cfg, err := tuning.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatalf("Failed to register components: %v", err)
	}

	opts := core.Options{
		Name:       *name,
		Version:    *version,
		MaxPlayers: *maxPlayers,
		Metrics:    core.NewMetrics(),
	}

	arenaPath := cfg.Arena.Map
	if *mapPath != "" {
		arenaPath = *mapPath
	}
	if arenaPath != "" {
		arena, err := leveldata.LoadArena(os.DirFS(filepath.Dir(arenaPath)), filepath.Base(arenaPath))
		if err != nil {
			log.Fatalf("Failed to load arena: %v", err)
		}
		opts.Arena = arena
	}

	server, err := core.NewServer(cfg, opts)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if *httpAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", opts.Metrics.Handler())
		mux.Handle("/spectate", server.Spectators())
		go func() {
			log.Printf("Serving metrics and spectators on %s", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, mux); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	var announcer *core.Announcer
	if *directory != "" {
		addr := *advertise
		if addr == "" {
			addr = fmt.Sprintf("localhost:%d", *port)
		}
		arenaName := "default"
		if opts.Arena != nil {
			arenaName = opts.Arena.Name
		}
		announcer = core.NewAnnouncer(core.AnnounceConfig{
			DirectoryURL: *directory,
			Name:         *name,
			Address:      addr,
			Version:      *version,
			Arena:        arenaName,
			TickRate:     cfg.TickRate,
			MaxPlayers:   *maxPlayers,
		}, server)
		announcer.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down server...")
		if announcer != nil {
			announcer.Stop()
		}
		server.Stop()
		os.Exit(0)
	}()

	log.Printf("Starting stunsync server %q on port %d (tick rate: %d/s, broadcast: %d/s, version: %s)",
		*name, *port, cfg.TickRate, cfg.BroadcastRate, *version)
	if err := server.Start(*port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
