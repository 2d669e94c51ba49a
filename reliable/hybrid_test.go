package reliable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHybridWindowBuffersFarFutureThenDrains(t *testing.T) {
	h, err := NewHybridWindow(4)
	require.NoError(t, err)

	// Sequences 10 and 11 are far beyond the 4-wide indexable window
	// starting at 0, so they land in the overflow map.
	require.True(t, h.Insert(10, []byte("k")))
	require.True(t, h.Insert(11, []byte("l")))
	require.Equal(t, 2, h.OverflowLen())

	var delivered []string
	drain := func(_ uint64, payload []byte) { delivered = append(delivered, string(payload)) }

	// Nothing deliverable yet; 0..3 are all still missing.
	h.DeliverInOrder(drain)
	require.Empty(t, delivered)

	for seq := uint64(0); seq < 10; seq++ {
		require.True(t, h.Insert(seq, []byte{byte(seq)}))
		h.DeliverInOrder(drain)
	}

	require.Len(t, delivered, 12)
	require.EqualValues(t, 12, h.NextExpected())
	require.Equal(t, 0, h.OverflowLen())
}

func TestHybridWindowDropsStaleBeforeNextExpected(t *testing.T) {
	h, err := NewHybridWindow(4)
	require.NoError(t, err)
	require.True(t, h.Insert(0, []byte("a")))
	h.DeliverInOrder(func(uint64, []byte) {})
	require.False(t, h.Insert(0, []byte("stale")))
}

func TestHybridWindowRejectsDuplicateOverflowInsert(t *testing.T) {
	h, err := NewHybridWindow(4)
	require.NoError(t, err)
	require.True(t, h.Insert(20, []byte("a")))
	require.False(t, h.Insert(20, []byte("b")))
	require.Equal(t, []uint64{20}, h.overflowKeysSorted())
}
