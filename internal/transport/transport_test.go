package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rvult/riftnet/internal/testutil"
	"github.com/rvult/riftnet/internal/wire"
)

func startTestServer(t *testing.T) (*Server, context.CancelFunc) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.BindAddress = "127.0.0.1"
	cfg.ReliableRetryInterval = 20 * time.Millisecond
	srv := NewServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		addr := &net.UDPAddr{IP: net.ParseIP(cfg.BindAddress), Port: cfg.Port}
		conn, err := net.ListenUDP("udp", addr)
		require.NoError(t, err)
		srv.conn = conn
		close(ready)

		go srv.readLoop(ctx)
		go srv.retransmitLoop(ctx)
		<-ctx.Done()
		_ = conn.Close()
	}()
	<-ready
	t.Cleanup(cancel)
	return srv, cancel
}

func dialTestServer(t *testing.T, srv *Server) *net.UDPConn {
	t.Helper()
	raddr := srv.conn.LocalAddr().(*net.UDPAddr)
	conn, err := net.DialUDP("udp", nil, raddr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHandshakeRegistersPeerAndEmitsConnected(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dialTestServer(t, srv)

	raw, err := (&wire.Packet{Kind: wire.KindHandshake}).EncodeDatagram()
	require.NoError(t, err)
	_, err = client.Write(raw)
	require.NoError(t, err)

	var connected Event
	testutil.WaitForCleanup(t, func() bool {
		found := false
		srv.ProcessIncoming(func(ev Event) {
			if ev.Kind == EventPeerConnected {
				connected = ev
				found = true
			}
		})
		return found
	}, 2*time.Second)

	require.Equal(t, PeerID(1), connected.Peer)
}

func TestCapacityRefusesHandshakeOverLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.BindAddress = "127.0.0.1"
	cfg.Capacity = 0
	srv := NewServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	addr := &net.UDPAddr{IP: net.ParseIP(cfg.BindAddress), Port: cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	require.NoError(t, err)
	srv.conn = conn
	go srv.readLoop(ctx)

	client := dialTestServer(t, srv)
	raw, _ := (&wire.Packet{Kind: wire.KindHandshake}).EncodeDatagram()
	_, err = client.Write(raw)
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 256)
	n, err := client.Read(buf)
	require.NoError(t, err)

	reply := &wire.Packet{}
	require.NoError(t, reply.DecodeDatagram(buf[:n]))
	require.Equal(t, wire.KindDisconnect, reply.Kind)
}

func TestPacketReceivedRoundTrip(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dialTestServer(t, srv)

	hs, _ := (&wire.Packet{Kind: wire.KindHandshake}).EncodeDatagram()
	_, err := client.Write(hs)
	require.NoError(t, err)

	var peerID PeerID
	testutil.WaitForCleanup(t, func() bool {
		got := false
		srv.ProcessIncoming(func(ev Event) {
			if ev.Kind == EventPeerConnected {
				peerID = ev.Peer
				got = true
			}
		})
		return got
	}, 2*time.Second)

	movePkt, _ := (&wire.Packet{Kind: wire.KindPlayerMove, Channel: wire.ChannelUnreliable, Payload: []byte{1, 2, 3}}).EncodeDatagram()
	_, err = client.Write(movePkt)
	require.NoError(t, err)

	var received *wire.Packet
	testutil.WaitForCleanup(t, func() bool {
		got := false
		srv.ProcessIncoming(func(ev Event) {
			if ev.Kind == EventPacketReceived {
				received = ev.Packet
				got = true
				require.Equal(t, peerID, ev.Peer)
			}
		})
		return got
	}, 2*time.Second)

	require.Equal(t, wire.KindPlayerMove, received.Kind)
	require.Equal(t, []byte{1, 2, 3}, received.Payload)
}

func TestSequencedChannelDropsOlderArrivals(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dialTestServer(t, srv)

	hs, _ := (&wire.Packet{Kind: wire.KindHandshake}).EncodeDatagram()
	_, err := client.Write(hs)
	require.NoError(t, err)
	testutil.WaitForCleanup(t, func() bool {
		got := false
		srv.ProcessIncoming(func(ev Event) { got = got || ev.Kind == EventPeerConnected })
		return got
	}, 2*time.Second)

	newer, _ := (&wire.Packet{Kind: wire.KindPlayerState, Channel: wire.ChannelSequenced, Seq: 10}).EncodeDatagram()
	older, _ := (&wire.Packet{Kind: wire.KindPlayerState, Channel: wire.ChannelSequenced, Seq: 3}).EncodeDatagram()
	_, err = client.Write(newer)
	require.NoError(t, err)
	_, err = client.Write(older)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	var seqs []uint16
	srv.ProcessIncoming(func(ev Event) {
		if ev.Kind == EventPacketReceived {
			seqs = append(seqs, ev.Packet.Seq)
		}
	})
	require.Equal(t, []uint16{10}, seqs)
}
