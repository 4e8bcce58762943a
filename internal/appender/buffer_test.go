package appender

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/appendlog/internal/model"
)

func TestBufferDrainStartsNewCycle(t *testing.T) {
	b := NewBuffer(4)
	n, ok := b.Accept(event("a", zerolog.InfoLevel))
	require.True(t, ok)
	require.Equal(t, 1, n)
	n, _ = b.Accept(event("b", zerolog.InfoLevel))
	require.Equal(t, 2, n)

	batch := b.Drain()
	require.Len(t, batch, 2)
	require.Equal(t, "a", batch[0].Message)
	require.Equal(t, "b", batch[1].Message)
	require.Zero(t, b.Len())
	require.Nil(t, b.Drain())

	// The drained batch is not aliased by the next cycle.
	b.Accept(event("c", zerolog.InfoLevel))
	require.Equal(t, "a", batch[0].Message)
	require.Len(t, batch, 2)
}

func TestBufferSeal(t *testing.T) {
	b := NewBuffer(0)
	b.Accept(event("kept", zerolog.InfoLevel))
	b.Seal()
	_, ok := b.Accept(event("rejected", zerolog.InfoLevel))
	require.False(t, ok)
	batch := b.Drain()
	require.Len(t, batch, 1)
	require.Equal(t, "kept", batch[0].Message)
}

func TestTriggers(t *testing.T) {
	info := event("i", zerolog.InfoLevel)
	errEv := event("e", zerolog.ErrorLevel)
	none := model.LogEvent{Level: zerolog.NoLevel}

	size := SizeTrigger(3)
	require.False(t, size.ShouldFlush(&info, 2))
	require.True(t, size.ShouldFlush(&info, 3))
	require.True(t, SizeTrigger(1).ShouldFlush(&info, 1))

	level := LevelTrigger(zerolog.WarnLevel)
	require.False(t, level.ShouldFlush(&info, 1))
	require.True(t, level.ShouldFlush(&errEv, 1))
	require.False(t, level.ShouldFlush(&none, 1))

	either := AnyTrigger(nil, size, level)
	require.True(t, either.ShouldFlush(&errEv, 1))
	require.True(t, either.ShouldFlush(&info, 5))
	require.False(t, either.ShouldFlush(&info, 1))
}

func TestParseFlushLevel(t *testing.T) {
	lvl, ok, err := ParseFlushLevel("ERROR")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, zerolog.ErrorLevel, lvl)

	for _, off := range []string{"", "none", " None "} {
		_, ok, err = ParseFlushLevel(off)
		require.NoError(t, err)
		require.False(t, ok)
	}

	_, _, err = ParseFlushLevel("disabled")
	require.Error(t, err)
	_, _, err = ParseFlushLevel("loud")
	require.Error(t, err)
}
