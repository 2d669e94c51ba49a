package ring

import (
	"sync"
	"testing"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/stretchr/testify/require"
)

func TestSPMCOutOfOrderCompletionBoundary(t *testing.T) {
	// Boundary scenario 3 (spec §8), at the ring level: capacity 8, one
	// producer publishes 0..2, three readers claim 0, 1, 2.
	r, err := NewSPMC[ringcore.Fixed8, *ringcore.Fixed8](8, obs.Nop())
	require.NoError(t, err)

	start, err := r.TryClaim(3)
	require.NoError(t, err)
	for i := uint64(0); i < 3; i++ {
		r.Slot(start + i).SetValue(start + i)
	}
	r.Publish(start, 3)

	s0, n0, err := r.TryClaimRead(1)
	require.NoError(t, err)
	s1, n1, err := r.TryClaimRead(1)
	require.NoError(t, err)
	s2, n2, err := r.TryClaimRead(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, n0)
	require.EqualValues(t, 1, n1)
	require.EqualValues(t, 1, n2)

	require.NoError(t, r.Complete(s2))
	require.EqualValues(t, 0, r.Tracker().CompletedCursor())
	require.NoError(t, r.Complete(s1))
	require.EqualValues(t, 0, r.Tracker().CompletedCursor())
	require.NoError(t, r.Complete(s0))
	require.EqualValues(t, 3, r.Tracker().CompletedCursor())
}

func TestSPMCGuardCommitsOnEarlyReturn(t *testing.T) {
	r, err := NewSPMC[ringcore.Fixed8, *ringcore.Fixed8](8, obs.Nop())
	require.NoError(t, err)
	start, err := r.TryClaim(4)
	require.NoError(t, err)
	r.Publish(start, 4)

	func() {
		g, err := r.ClaimReadGuard(4)
		require.NoError(t, err)
		defer g.Release()
		return
	}()

	require.EqualValues(t, 4, r.Tracker().CompletedCursor())
}

func TestSPMCFanOutEveryPublishedSequenceConsumedOnceTotal(t *testing.T) {
	r, err := NewSPMC[ringcore.Fixed64, *ringcore.Fixed64](64, obs.Nop())
	require.NoError(t, err)

	const total = 2000
	var published uint64
	go func() {
		for published < total {
			n := uint64(4)
			if total-published < n {
				n = total - published
			}
			start, err := r.TryClaim(n)
			if err != nil {
				continue
			}
			for i := uint64(0); i < n; i++ {
				r.Slot(start + i).SetSequence(start + i)
			}
			r.Publish(start, n)
			published += n
		}
	}()

	var mu sync.Mutex
	seen := make(map[uint64]int)
	var wg sync.WaitGroup
	for c := 0; c < 6; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				done := len(seen) >= total
				mu.Unlock()
				if done {
					return
				}
				g, err := r.ClaimReadGuard(8)
				if err != nil {
					continue
				}
				mu.Lock()
				for i := uint64(0); i < g.Count(); i++ {
					seen[r.Slot(g.Start()+i).Sequence()]++
				}
				mu.Unlock()
				g.Release()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, total)
	for seq, n := range seen {
		require.Equalf(t, 1, n, "sequence %d consumed %d times", seq, n)
	}
}
