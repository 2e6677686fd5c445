// Command simulate runs the server and scripted clients over lossy
// in-memory links and writes a per-tick CSV trace of prediction error.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/stunsync/server/harness"
	"github.com/automoto/stunsync/shared/transport"
	"github.com/automoto/stunsync/shared/tuning"
)

func main() {
	clients := flag.Int("clients", 2, "Scripted clients")
	active := flag.Int("ticks", 600, "Ticks of scripted input")
	idle := flag.Int("idle", 180, "Ticks of standing still after the script")
	delay := flag.Int("delay", 3, "One-way link delay in ticks")
	jitter := flag.Int("jitter", 0, "Extra random delay in ticks (reorders)")
	drop := flag.Float64("drop", 0, "Per-message loss probability")
	stunEvery := flag.Int("stun-every", 180, "Ticks between scripted stuns per client (0 disables)")
	seed := flag.Int64("seed", 1, "Random seed")
	configPath := flag.String("config", "", "Tuning YAML overriding the defaults")
	out := flag.String("out", "", "CSV output path (default stdout)")
	flag.Parse()

	cfg, err := tuning.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	h, err := harness.New(cfg, harness.Options{
		Clients:   *clients,
		Link:      transport.Options{Delay: *delay, Jitter: *jitter, DropRate: *drop},
		StunEvery: *stunEvery,
		Seed:      *seed,
	})
	if err != nil {
		log.Fatalf("Failed to start harness: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	samples, err := h.Run(ctx, *active, *idle)
	if err != nil {
		log.Printf("Run interrupted after %d samples: %v", len(samples), err)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := harness.WriteCSV(w, samples); err != nil {
		log.Fatalf("Failed to write trace: %v", err)
	}

	sum := harness.Summarize(samples)
	log.Printf("mean error %.4f, max %.4f, final %.4f, corrections %d",
		sum.MeanError, sum.MaxError, sum.FinalError, sum.Corrections)
}
