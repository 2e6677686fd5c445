package harness

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/automoto/stunsync/shared/transport"
	"github.com/automoto/stunsync/shared/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestHarnessCleanLinkNeverCorrects(t *testing.T) {
	cfg := tuning.Default()
	h, err := New(cfg, Options{Clients: 2, Link: transport.Options{Delay: 3}, Seed: 1})
	require.NoError(t, err)

	samples, err := h.Run(context.Background(), 300, 60)
	require.NoError(t, err)
	require.Len(t, samples, 2*360)

	sum := Summarize(samples)
	assert.Zero(t, sum.Corrections)
	assert.InDelta(t, 0, sum.FinalError, 1e-9)
	assert.Equal(t, 2, h.Server().PlayerCount())
}

func TestHarnessConvergesUnderLossAndStuns(t *testing.T) {
	cfg := tuning.Default()
	h, err := New(cfg, Options{
		Clients:   3,
		Link:      transport.Options{Delay: 4, Jitter: 3, DropRate: 0.1},
		StunEvery: 120,
		Seed:      7,
	})
	require.NoError(t, err)

	samples, err := h.Run(context.Background(), 480, 300)
	require.NoError(t, err)

	sum := Summarize(samples)
	assert.LessOrEqual(t, sum.FinalError, cfg.Reconcile.Epsilon+1e-9)
	assert.Positive(t, sum.Corrections, "losses must force at least one replay")

	bounds := cfg.Bounds()
	for _, s := range samples {
		require.LessOrEqual(t, s.Ack, s.Seq, "tick %d client %d", s.Tick, s.Client)
		require.True(t, bounds.Contains(r2.Vec{X: s.PredX, Y: s.PredY}, cfg.Player.Extent), "tick %d client %d", s.Tick, s.Client)
	}
}

func TestHarnessRunHonoursContext(t *testing.T) {
	h, err := New(tuning.Default(), Options{Clients: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	samples, err := h.Run(ctx, 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, samples)
}

func TestHarnessRejectsNoClients(t *testing.T) {
	_, err := New(tuning.Default(), Options{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Sample{{Tick: 1, Client: 0, Entity: 4, Seq: 1, PredX: 0.5}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "tick,client,entity,seq,ack,buffered,pred_x,pred_y"))
	assert.True(t, strings.HasPrefix(lines[1], "1,0,4,1,0,0,0.5,0"))
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]Sample{
		{Tick: 1, Error: 0.2},
		{Tick: 1, Error: 0.4},
		{Tick: 2, Error: 0.1, Corrections: 2},
		{Tick: 2, Error: 0.3, Corrections: 1},
	})
	assert.InDelta(t, 0.25, sum.MeanError, 1e-12)
	assert.Equal(t, 0.4, sum.MaxError)
	assert.Equal(t, 0.3, sum.FinalError)
	assert.Equal(t, uint64(3), sum.Corrections)
	assert.Equal(t, Summary{}, Summarize(nil))
}
