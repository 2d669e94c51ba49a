package facade

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/ring"
	"github.com/ringflow/ringcore/wait"
	"github.com/stretchr/testify/require"
)

func TestSPSCConsumerDrainOnceCommitsAndReportsEndOfBatch(t *testing.T) {
	r, err := ring.NewSPSC[ringcore.Fixed64, *ringcore.Fixed64](8, obs.Nop())
	require.NoError(t, err)
	start, err := r.TryClaim(3)
	require.NoError(t, err)
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, r.Slot(start+i).SetData([]byte{byte(i)}))
	}
	r.Publish(start, 3)

	c := NewSPSCConsumer[ringcore.Fixed64, *ringcore.Fixed64](r, r.Commit)

	var seen []uint64
	var endFlags []bool
	err = c.DrainOnce(8, func(event *ringcore.Fixed64, seq uint64, end bool) error {
		seen = append(seen, seq)
		endFlags = append(endFlags, end)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2}, seen)
	require.Equal(t, []bool{false, false, true}, endFlags)

	// Committed: space is free again.
	_, err = r.TryClaim(8)
	require.NoError(t, err)
}

func TestSPSCConsumerRunDrainsUntilShutdown(t *testing.T) {
	r, err := ring.NewSPSC[ringcore.Fixed64, *ringcore.Fixed64](8, obs.Nop())
	require.NoError(t, err)
	start, err := r.TryClaim(2)
	require.NoError(t, err)
	r.Publish(start, 2)

	var shutdown atomic.Bool
	c := NewSPSCConsumer[ringcore.Fixed64, *ringcore.Fixed64](r, r.Commit)

	shutdown.Store(true)
	var seen int
	err = c.Run(context.Background(), 8, wait.BusySpin{}, &shutdown, func(*ringcore.Fixed64, uint64, bool) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, seen)
}

func TestMPSCConsumerDrainOnce(t *testing.T) {
	r, err := ring.NewMPSC[ringcore.Fixed64, *ringcore.Fixed64](8, obs.Nop())
	require.NoError(t, err)
	start, err := r.TryClaim(2)
	require.NoError(t, err)
	r.Publish(start, 2)

	c := NewNoErrCommitConsumer[ringcore.Fixed64, *ringcore.Fixed64](r, r.Commit)

	var seen []uint64
	require.NoError(t, c.DrainOnce(8, func(_ *ringcore.Fixed64, seq uint64, _ bool) error {
		seen = append(seen, seq)
		return nil
	}))
	require.Equal(t, []uint64{0, 1}, seen)
}

func TestMessageRingBufferConsumerDrainOnce(t *testing.T) {
	r, err := ring.NewMessageRingBuffer(8, obs.Nop())
	require.NoError(t, err)
	start, err := r.TryClaim(2)
	require.NoError(t, err)
	require.NoError(t, r.Slot(start).SetData(1, 0, ringcore.MessageTypeData, []byte("a")))
	require.NoError(t, r.Slot(start+1).SetData(1, 0, ringcore.MessageTypeData, []byte("b")))
	r.Publish(start, 2)

	c := NewNoErrCommitConsumer[ringcore.MessageSlot, *ringcore.MessageSlot](r, r.Commit)

	var payloads []string
	require.NoError(t, c.DrainOnce(8, func(event *ringcore.MessageSlot, _ uint64, _ bool) error {
		payloads = append(payloads, string(event.Payload()))
		return nil
	}))
	require.Equal(t, []string{"a", "b"}, payloads)
}
