package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkDelaysDelivery(t *testing.T) {
	l := NewLink[int](Options{Delay: 3})
	require.True(t, l.Send(1))

	for i := 0; i < 2; i++ {
		l.Advance()
		assert.Empty(t, l.Drain())
	}
	l.Advance()
	assert.Equal(t, []int{1}, l.Drain())
}

func TestLinkZeroDelayDeliversNextAdvance(t *testing.T) {
	l := NewLink[string](Options{})
	l.Send("a")
	l.Send("b")
	l.Advance()
	assert.Equal(t, []string{"a", "b"}, l.Drain())
}

func TestLinkDropsDeterministically(t *testing.T) {
	run := func() []int {
		l := NewLink[int](Options{DropRate: 0.5, Seed: 42})
		for i := 0; i < 100; i++ {
			l.Send(i)
		}
		l.Advance()
		return l.Drain()
	}
	first := run()
	assert.Equal(t, first, run(), "same seed, same losses")
	assert.Greater(t, len(first), 20)
	assert.Less(t, len(first), 80)
}

func TestLinkJitterReorders(t *testing.T) {
	l := NewLink[int](Options{Delay: 1, Jitter: 4, Seed: 9})
	for i := 0; i < 50; i++ {
		l.Send(i)
	}
	var got []int
	for i := 0; i < 10; i++ {
		l.Advance()
		got = append(got, l.Drain()...)
	}
	require.Len(t, got, 50)

	inOrder := true
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			inOrder = false
		}
	}
	assert.False(t, inOrder)
}

func TestLinkCapacityBoundsInFlight(t *testing.T) {
	l := NewLink[int](Options{Delay: 10, Capacity: 4})
	for i := 0; i < 4; i++ {
		require.True(t, l.Send(i))
	}
	assert.False(t, l.Send(99))
	_, overflow := l.Stats()
	assert.Equal(t, uint64(1), overflow)
}
