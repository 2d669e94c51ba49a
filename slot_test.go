package ringcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageSlotChecksumRoundTrip(t *testing.T) {
	var s MessageSlot
	require.NoError(t, s.SetData(7, 1000, MessageTypeData, []byte("hello disruptor")))
	require.True(t, s.VerifyChecksum())
	require.Equal(t, uint32(7), s.SessionID())
	require.EqualValues(t, len("hello disruptor"), s.PayloadLen())
}

func TestMessageSlotChecksumDetectsMutation(t *testing.T) {
	var s MessageSlot
	require.NoError(t, s.SetData(1, 0, MessageTypeData, []byte("payload-bytes")))
	require.True(t, s.VerifyChecksum())

	s.payload[0] ^= 0xFF
	require.False(t, s.VerifyChecksum())
}

func TestMessageSlotOversizePayloadRejectedBeforeMutation(t *testing.T) {
	var s MessageSlot
	require.NoError(t, s.SetData(1, 0, MessageTypeData, []byte("first")))

	oversized := make([]byte, MaxPayloadSize+1)
	err := s.SetData(2, 0, MessageTypeData, oversized)
	require.ErrorIs(t, err, ErrInvalidMessage)

	// slot must be unchanged: "a write... fails... before mutating the slot"
	require.Equal(t, uint32(1), s.SessionID())
	require.Equal(t, "first", string(s.Payload()))
}

func TestMessageSlotResetZeroesEverything(t *testing.T) {
	var s MessageSlot
	require.NoError(t, s.SetData(3, 42, MessageTypeHeartbeat, []byte("x")))
	s.Reset()
	require.Zero(t, s.Sequence())
	require.Zero(t, s.SessionID())
	require.Zero(t, s.PayloadLen())
	require.Zero(t, s.Checksum())
}

func TestFixed8IsPureSequenceChannel(t *testing.T) {
	var s Fixed8
	s.SetValue(12345)
	require.EqualValues(t, 12345, s.Sequence())
	s.SetSequence(99)
	require.EqualValues(t, 99, s.Value())
}

func TestFixedSlotsRejectOversizePayload(t *testing.T) {
	var s16 Fixed16
	require.NoError(t, s16.SetData([]byte("12345678")))
	require.Error(t, s16.SetData([]byte("123456789")))

	var s32 Fixed32
	require.NoError(t, s32.SetData(make([]byte, 24)))
	require.Error(t, s32.SetData(make([]byte, 25)))

	var s64 Fixed64
	require.NoError(t, s64.SetData(make([]byte, 56)))
	require.Error(t, s64.SetData(make([]byte, 57)))
}

func TestSeqDiffWrapsCorrectly(t *testing.T) {
	require.Equal(t, int64(1), SeqDiff(1, 0))
	require.Equal(t, int64(-1), SeqDiff(0, 1))
	// wraps around math.MaxUint64
	require.Equal(t, int64(1), SeqDiff(0, ^uint64(0)))
	require.True(t, SeqLess(^uint64(0), 0))
}

func TestIsPowerOfTwo(t *testing.T) {
	require.True(t, IsPowerOfTwo(1))
	require.True(t, IsPowerOfTwo(1024))
	require.False(t, IsPowerOfTwo(0))
	require.False(t, IsPowerOfTwo(3))
}
