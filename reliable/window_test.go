package reliable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingWindowGapFillBoundary(t *testing.T) {
	// Boundary scenario 4: window 8, next_expected=0. Insert 0,2,3,1. A
	// delivery attempt runs after each insert.
	w, err := NewRingWindow(8)
	require.NoError(t, err)

	var delivered [][]byte
	drain := func(seq uint64, payload []byte) { delivered = append(delivered, append([]byte(nil), payload...)) }

	require.True(t, w.Insert(0, []byte("a")))
	w.DeliverInOrder(drain)
	require.Len(t, delivered, 1)

	require.True(t, w.Insert(2, []byte("c")))
	w.DeliverInOrder(drain)
	require.Len(t, delivered, 1)

	require.True(t, w.Insert(3, []byte("d")))
	w.DeliverInOrder(drain)
	require.Len(t, delivered, 1)

	require.True(t, w.Insert(1, []byte("b")))
	w.DeliverInOrder(drain)
	require.Len(t, delivered, 4)

	require.EqualValues(t, 4, w.NextExpected())
	require.Equal(t, []byte("a"), delivered[0])
	require.Equal(t, []byte("b"), delivered[1])
	require.Equal(t, []byte("c"), delivered[2])
	require.Equal(t, []byte("d"), delivered[3])
}

func TestRingWindowDuplicateBoundary(t *testing.T) {
	// Boundary scenario 5: next_expected=0. Insert(0,"A") true;
	// Insert(0,"B") false; delivery yields "A" once.
	w, err := NewRingWindow(8)
	require.NoError(t, err)

	require.True(t, w.Insert(0, []byte("A")))
	require.False(t, w.Insert(0, []byte("B")))

	var delivered []string
	w.DeliverInOrder(func(seq uint64, payload []byte) { delivered = append(delivered, string(payload)) })
	require.Equal(t, []string{"A"}, delivered)
}

func TestRingWindowDropsStaleAndBeyondWindow(t *testing.T) {
	w, err := NewRingWindow(4)
	require.NoError(t, err)
	require.True(t, w.Insert(0, []byte("x")))
	w.DeliverInOrder(func(uint64, []byte) {})
	require.False(t, w.Insert(0, []byte("stale"))) // before next_expected
	require.False(t, w.Insert(5, []byte("far")))   // beyond [1, 1+4)
}

func TestRingWindowMissingRangesCoalesce(t *testing.T) {
	// Property P7: the union of emitted NAK ranges equals the set of
	// missing sequences in the current window.
	w, err := NewRingWindow(8)
	require.NoError(t, err)
	require.True(t, w.Insert(0, []byte("a")))
	require.True(t, w.Insert(3, []byte("d")))
	require.True(t, w.Insert(4, []byte("e")))
	require.True(t, w.Insert(7, []byte("h")))

	// next_expected is still 0 (no delivery has run), so the indexable
	// window is [0, 8) and 0/3/4/7 are the only present sequences.
	ranges := w.MissingRanges()
	require.Equal(t, [][2]uint64{{1, 2}, {5, 6}}, ranges)
}

func TestRingWindowInsertTruncatesOversizePayload(t *testing.T) {
	w, err := NewRingWindow(4)
	require.NoError(t, err)
	big := make([]byte, MaxPacket+500)
	require.True(t, w.Insert(0, big))
	var got []byte
	w.DeliverInOrder(func(_ uint64, payload []byte) { got = payload })
	require.Len(t, got, MaxPacket)
}
