package facade

import (
	"testing"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/ring"
	"github.com/stretchr/testify/require"
)

func TestProducerPublishWritesAndAdvances(t *testing.T) {
	r, err := ring.NewSPSC[ringcore.Fixed64, *ringcore.Fixed64](8, obs.Nop())
	require.NoError(t, err)
	p := NewProducer[ringcore.Fixed64, *ringcore.Fixed64](r)

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, p.Publish(func(s *ringcore.Fixed64) {
			require.NoError(t, s.SetData([]byte{byte(i)}))
		}))
	}
	require.EqualValues(t, 3, r.Len())
}

func TestProducerPublishBatch(t *testing.T) {
	r, err := ring.NewMPSC[ringcore.Fixed64, *ringcore.Fixed64](8, obs.Nop())
	require.NoError(t, err)
	p := NewProducer[ringcore.Fixed64, *ringcore.Fixed64](r)

	require.NoError(t, p.PublishBatch(4, func(i uint64, s *ringcore.Fixed64) {
		require.NoError(t, s.SetData([]byte{byte(i)}))
	}))

	start, count, err := r.TryRead(8)
	require.NoError(t, err)
	require.EqualValues(t, 0, start)
	require.EqualValues(t, 4, count)
}

func TestProducerPublishFailsWhenFull(t *testing.T) {
	r, err := ring.NewSPSC[ringcore.Fixed64, *ringcore.Fixed64](2, obs.Nop())
	require.NoError(t, err)
	p := NewProducer[ringcore.Fixed64, *ringcore.Fixed64](r)

	require.NoError(t, p.Publish(func(*ringcore.Fixed64) {}))
	require.NoError(t, p.Publish(func(*ringcore.Fixed64) {}))
	require.ErrorIs(t, p.Publish(func(*ringcore.Fixed64) {}), ringcore.ErrFull)
}
