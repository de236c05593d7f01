package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rvult/riftnet/internal/transport"
	"github.com/rvult/riftnet/internal/wire"
)

type fakeServer struct {
	pool *wire.Pool
	sent []wire.PacketKind
}

func newFakeServer() *fakeServer { return &fakeServer{pool: wire.NewPool(64)} }

func (f *fakeServer) SendTo(transport.PeerID, *wire.Packet, wire.Channel) error { return nil }
func (f *fakeServer) BroadcastToInGame(*wire.Packet, wire.Channel)              {}
func (f *fakeServer) BroadcastExcept(transport.PeerID, *wire.Packet, wire.Channel) {}
func (f *fakeServer) Disconnect(transport.PeerID, string)                      {}
func (f *fakeServer) Pool() *wire.Pool                                         { return f.pool }
func (f *fakeServer) CurrentTick() uint32                                      { return 7 }

func TestDispatchRoutesByPacketKind(t *testing.T) {
	r := NewRegistry()
	var called wire.PacketKind
	r.OnPacket(wire.KindPing, func(ctx Context, pkt *wire.Packet) {
		called = pkt.Kind
		ctx.Server.Pool().Put(pkt)
	})

	srv := newFakeServer()
	pkt := srv.pool.Get()
	pkt.Kind = wire.KindPing

	r.Dispatch(Context{Server: srv}, pkt)
	require.Equal(t, wire.KindPing, called)
}

func TestDispatchUnknownPacketKindIsCounted(t *testing.T) {
	r := NewRegistry()
	srv := newFakeServer()
	pkt := srv.pool.Get()
	pkt.Kind = wire.KindEntitySpawn

	r.Dispatch(Context{Server: srv}, pkt)
	require.EqualValues(t, 1, r.UnknownPacketCount())
}

func TestDispatchRoutesDataByMessageKind(t *testing.T) {
	r := NewRegistry()
	var gotTick uint32
	r.OnMessage(wire.MsgPlayerInput, func(ctx Context, dec *wire.Decoder) {
		gotTick = ctx.Tick
	})

	srv := newFakeServer()
	enc := wire.NewEncoder(wire.MsgPlayerInput)
	enc.PutUint32(1)
	pkt := srv.pool.Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(enc.Bytes())

	r.Dispatch(Context{Server: srv, Tick: 42}, pkt)
	require.Equal(t, uint32(42), gotTick)
}

func TestDispatchUnknownMessageKindIsCounted(t *testing.T) {
	r := NewRegistry()
	srv := newFakeServer()
	enc := &wire.Encoder{}
	enc.PutUint16(0xABCD)
	pkt := srv.pool.Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(enc.Bytes())

	r.Dispatch(Context{Server: srv}, pkt)
	require.EqualValues(t, 1, r.UnknownMessageCount())
}
