package facade

import (
	"errors"
	"sync"
	"testing"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/ring"
	"github.com/stretchr/testify/require"
)

func TestGuardedConsumerSPMCCommitsOnEarlyReturn(t *testing.T) {
	r, err := ring.NewSPMC[ringcore.Fixed64, *ringcore.Fixed64](8, obs.Nop())
	require.NoError(t, err)
	start, err := r.TryClaim(4)
	require.NoError(t, err)
	r.Publish(start, 4)

	c := NewGuardedConsumer[ringcore.Fixed64, *ringcore.Fixed64](r)

	errStop := errors.New("stop")
	err = c.DrainOnce(4, func(event *ringcore.Fixed64, seq uint64, end bool) error {
		if seq == 1 {
			return errStop // handler returns early on this sequence
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	require.EqualValues(t, 4, r.Tracker().CompletedCursor())
}

func TestGuardedConsumerMPMCVerifiesBeforeDelivering(t *testing.T) {
	r, err := ring.NewMPMC[ringcore.Fixed64, *ringcore.Fixed64](8, obs.Nop())
	require.NoError(t, err)

	const n = 6
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := r.TryClaim(1)
			for err != nil {
				seq, err = r.TryClaim(1)
			}
			_ = r.Slot(seq).SetData([]byte{byte(seq)})
			r.Publish(seq)
		}()
	}
	wg.Wait()

	c := NewGuardedMPMCConsumer[ringcore.Fixed64, *ringcore.Fixed64](r)
	seen := make(map[uint64]bool)
	var mu sync.Mutex
	for len(seen) < n {
		_ = c.DrainOnce(n, func(event *ringcore.Fixed64, seq uint64, end bool) error {
			mu.Lock()
			seen[seq] = true
			mu.Unlock()
			return nil
		})
	}
	require.Len(t, seen, n)
}
