package ring

import (
	"context"
	"testing"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/stretchr/testify/require"
)

func TestSPSCFullEmptyBoundary(t *testing.T) {
	// Boundary scenario 1 (spec §8): capacity 8, eight TryClaim(1) succeed,
	// a ninth returns Full; after the consumer reads five, five more
	// claims succeed, a sixth returns Full.
	r, err := NewSPSC[ringcore.Fixed8, *ringcore.Fixed8](8, obs.Nop())
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		start, err := r.TryClaim(1)
		require.NoError(t, err)
		r.Slot(start).SetValue(uint64(i))
		r.Publish(start, 1)
	}
	_, err = r.TryClaim(1)
	require.ErrorIs(t, err, ringcore.ErrFull)

	start, count, err := r.TryRead(5)
	require.NoError(t, err)
	require.EqualValues(t, 5, count)
	require.NoError(t, r.Commit(start, count))

	for i := 0; i < 5; i++ {
		start, err := r.TryClaim(1)
		require.NoError(t, err)
		r.Slot(start).SetValue(uint64(100 + i))
		r.Publish(start, 1)
	}
	_, err = r.TryClaim(1)
	require.ErrorIs(t, err, ringcore.ErrFull)
}

func TestSPSCReadEmpty(t *testing.T) {
	r, err := NewSPSC[ringcore.Fixed8, *ringcore.Fixed8](4, obs.Nop())
	require.NoError(t, err)
	_, _, err = r.TryRead(1)
	require.ErrorIs(t, err, ringcore.ErrEmpty)
}

func TestSPSCPublishedValuesConsumedInOrder(t *testing.T) {
	r, err := NewSPSC[ringcore.Fixed8, *ringcore.Fixed8](16, obs.Nop())
	require.NoError(t, err)

	go func() {
		for i := uint64(0); i < 100; i++ {
			start, err := r.Claim(context.Background(), 1, nil, nil)
			if err != nil {
				return
			}
			r.Slot(start).SetValue(i)
			r.Publish(start, 1)
		}
	}()

	var got []uint64
	for len(got) < 100 {
		start, count, err := r.Read(context.Background(), 16, nil, nil)
		require.NoError(t, err)
		for i := uint64(0); i < count; i++ {
			got = append(got, r.Slot(start+i).Value())
		}
		require.NoError(t, r.Commit(start, count))
	}

	for i, v := range got {
		require.EqualValues(t, i, v)
	}
}

func TestNewSPSCRejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewSPSC[ringcore.Fixed8, *ringcore.Fixed8](3, obs.Nop())
	require.ErrorIs(t, err, ringcore.ErrConfiguration)
}
