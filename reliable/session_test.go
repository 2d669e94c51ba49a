package reliable

import (
	"testing"
	"time"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/stretchr/testify/require"
)

// pipeTransport is an in-memory Transport: WriteTo on one end is visible to
// ReadFrom on the matching peer, standing in for the UDP socket spec §1
// treats as an external collaborator.
type pipeTransport struct {
	out chan []byte
	in  chan []byte
}

func newPipePair() (a, b *pipeTransport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	return &pipeTransport{out: ab, in: ba}, &pipeTransport{out: ba, in: ab}
}

func (p *pipeTransport) WriteTo(datagram []byte) error {
	buf := make([]byte, len(datagram))
	copy(buf, datagram)
	p.out <- buf
	return nil
}

func (p *pipeTransport) ReadFrom(buf []byte) (int, error) {
	d := <-p.in
	return copy(buf, d), nil
}

func TestSessionSendAndDeliverInOrder(t *testing.T) {
	clientTransport, serverTransport := newPipePair()

	client, err := NewSession(SessionConfig{WindowSize: 8, Transport: clientTransport, Logger: obs.Nop()})
	require.NoError(t, err)
	server, err := NewSession(SessionConfig{WindowSize: 8, Transport: serverTransport, Logger: obs.Nop()})
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	require.NoError(t, client.Send([]byte("one"), now))
	require.NoError(t, client.Send([]byte("two"), now))
	require.NoError(t, client.Send([]byte("three"), now))

	var delivered []string
	for i := 0; i < 3; i++ {
		buf := make([]byte, 2048)
		n, err := serverTransport.ReadFrom(buf)
		require.NoError(t, err)
		require.NoError(t, server.HandleDatagram(buf[:n], now, func(_ uint64, payload []byte) {
			delivered = append(delivered, string(payload))
		}, nil))
	}

	require.Equal(t, []string{"one", "two", "three"}, delivered)
	require.EqualValues(t, 3, server.Stats.PacketsReceived.Load())
}

func TestSessionHandlesNAKByRetransmitting(t *testing.T) {
	clientTransport, serverTransport := newPipePair()
	client, err := NewSession(SessionConfig{WindowSize: 8, Transport: clientTransport, Logger: obs.Nop()})
	require.NoError(t, err)

	now := time.Unix(0, 0)
	require.NoError(t, client.Send([]byte("zero"), now))
	require.NoError(t, client.Send([]byte("one"), now))

	// Drain the two Data datagrams client already wrote before simulating
	// a peer NAK for sequence 0.
	buf := make([]byte, 2048)
	_, err = serverTransport.ReadFrom(buf)
	require.NoError(t, err)
	_, err = serverTransport.ReadFrom(buf)
	require.NoError(t, err)

	nak := ToBytes(Header{SessionID: client.ID(), MsgType: ringcore.MessageTypeNAK}, EncodeNAKSingle(0))
	var resent [][]byte
	require.NoError(t, client.HandleDatagram(nak, now, nil, func(d []byte) error {
		resent = append(resent, d)
		return nil
	}))

	require.Len(t, resent, 1)
	require.EqualValues(t, 1, client.Stats.NAKsReceived.Load())
	require.EqualValues(t, 1, client.Stats.Retransmits.Load())

	_, payload, err := HeaderFromBytes(resent[0])
	require.NoError(t, err)
	require.Equal(t, []byte("zero"), payload)
}

func TestSessionStateTransitions(t *testing.T) {
	transport, _ := newPipePair()
	s, err := NewSession(SessionConfig{WindowSize: 4, Transport: transport, Logger: obs.Nop()})
	require.NoError(t, err)
	require.Equal(t, SessionPending, s.State())

	require.NoError(t, s.SendSessionStart(time.Now()))
	require.Equal(t, SessionActive, s.State())

	require.NoError(t, s.SendSessionEnd(time.Now()))
	require.Equal(t, SessionClosed, s.State())
}

func TestSessionExpiresAfterTimeout(t *testing.T) {
	transport, _ := newPipePair()
	s, err := NewSession(SessionConfig{WindowSize: 4, Transport: transport, SessionTimeout: time.Second, Logger: obs.Nop()})
	require.NoError(t, err)

	start := time.Unix(0, 0)
	s.markActivity(start)
	require.False(t, s.IsExpired(start.Add(500*time.Millisecond)))
	require.True(t, s.IsExpired(start.Add(2*time.Second)))
}
