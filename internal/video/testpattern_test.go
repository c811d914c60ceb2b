package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestPatternFetchRelease(t *testing.T) {
	tp := NewTestPattern(64, 48, 2, 1000)
	require.NoError(t, tp.Start())
	defer tp.Stop()

	f1 := tp.Fetch()
	require.NotNil(t, f1)
	assert.Equal(t, uint64(1), f1.Seq)
	assert.Equal(t, 64, f1.Width)
	assert.Equal(t, 48, f1.Height)
	assert.Len(t, f1.Data, 64*48*3/2)
	assert.Len(t, f1.Luma(), 64*48)
	tp.Release(f1)

	f2 := tp.Fetch()
	require.NotNil(t, f2)
	assert.Equal(t, uint64(2), f2.Seq)
	tp.Release(f2)
}

// Fetch must block once every pooled buffer is checked out, and resume when
// one is released.
func TestTestPatternPoolExhaustion(t *testing.T) {
	tp := NewTestPattern(32, 32, 1, 1000)
	require.NoError(t, tp.Start())
	defer tp.Stop()

	held := tp.Fetch()
	require.NotNil(t, held)

	got := make(chan *Frame, 1)
	go func() { got <- tp.Fetch() }()

	select {
	case <-got:
		t.Fatal("Fetch returned while the pool was exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	tp.Release(held)

	select {
	case f := <-got:
		require.NotNil(t, f)
		tp.Release(f)
	case <-time.After(time.Second):
		t.Fatal("Fetch did not resume after Release")
	}
}

func TestTestPatternMaxFrames(t *testing.T) {
	tp := NewTestPattern(32, 32, 2, 1000)
	tp.MaxFrames = 2
	require.NoError(t, tp.Start())
	defer tp.Stop()

	f := tp.Fetch()
	require.NotNil(t, f)
	tp.Release(f)

	f = tp.Fetch()
	require.NotNil(t, f)
	tp.Release(f)

	assert.Nil(t, tp.Fetch())
}

func TestTestPatternStop(t *testing.T) {
	tp := NewTestPattern(32, 32, 2, 1000)
	require.NoError(t, tp.Start())

	tp.Stop()
	assert.Nil(t, tp.Fetch())
	// Stop is idempotent.
	tp.Stop()
}

func TestTestPatternPaintsActiveLamp(t *testing.T) {
	tp := NewTestPattern(1280, 720, 1, 1000)
	require.NoError(t, tp.Start())
	defer tp.Stop()

	f := tp.Fetch()
	require.NotNil(t, f)
	defer tp.Release(f)

	// The first frames light the red lamp of the default geometry.
	luma := f.Luma()
	lampCenter := luma[(207+33)*1280+385+42]
	assert.Equal(t, byte(235), lampCenter)
	assert.Equal(t, byte(24), luma[0])
}
