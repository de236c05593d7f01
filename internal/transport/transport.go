package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rvult/riftnet/internal/wire"
)

// Config controls one Server's listening and channel behavior.
type Config struct {
	BindAddress string
	Port        int
	Capacity    int // max simultaneous peers

	ReliableRetryInterval time.Duration
	ReliableMaxAttempts   int

	ReadBufferSize int

	// ConnectionKey, if non-empty, is a cleartext preshared admission key
	// the handshake payload must match exactly (§6.4 connection-key; see
	// the open question in §9 about its strength).
	ConnectionKey string
}

// DefaultConfig mirrors the values a GameServer runs with at 30 Hz.
func DefaultConfig() Config {
	return Config{
		BindAddress:           "0.0.0.0",
		Port:                  7777,
		Capacity:              2000,
		ReliableRetryInterval: 150 * time.Millisecond,
		ReliableMaxAttempts:   12,
		ReadBufferSize:        2048,
	}
}

// Server is the UDP-style transport described in §4.2: it terminates
// sockets, frames bytes into Packets on its own worker, and hands
// everything else to the simulation thread through a drain-per-tick queue.
type Server struct {
	cfg  Config
	conn *net.UDPConn
	pool *wire.Pool

	mu        sync.Mutex
	peers     map[PeerID]*peer
	addrIndex map[string]PeerID
	nextID    PeerID

	events chan Event

	ready chan struct{}
}

// NewServer constructs a Server bound to cfg.BindAddress:cfg.Port. The
// socket is not opened until Run is called.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:       cfg,
		pool:      wire.NewPool(cfg.ReadBufferSize),
		peers:     make(map[PeerID]*peer),
		addrIndex: make(map[string]PeerID),
		events:    make(chan Event, 4096),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the socket is bound and the transport is accepting
// datagrams, useful for tests that need the ephemeral port Run chose.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// LocalAddr returns the bound address. Only valid after Ready is closed.
func (s *Server) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Pool returns the transport's shared packet pool, so callers elsewhere in
// the process can rent/return Packets without constructing their own.
func (s *Server) Pool() *wire.Pool { return s.pool }

// Run opens the socket and runs the read loop and reliable-retransmit loop
// until ctx is canceled. It blocks until both workers have exited.
func (s *Server) Run(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.cfg.BindAddress), Port: s.cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen udp %s: %w", addr, err)
	}
	s.conn = conn
	close(s.ready)
	slog.Info("transport listening", "addr", addr.String())

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.readLoop(gctx)
		return nil
	})
	group.Go(func() error {
		s.retransmitLoop(gctx)
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		return s.conn.Close()
	})

	return group.Wait()
}

// readLoop is the transport's own worker: it decodes datagrams into
// Packets and pushes transport Events onto the ingress queue. No handler
// logic runs here (§4.2's ingress contract).
func (s *Server) readLoop(ctx context.Context) {
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.emit(Event{Kind: EventError, Err: fmt.Errorf("transport: read: %w", err)})
			continue
		}
		s.handleDatagram(buf[:n], raddr)
	}
}

func (s *Server) handleDatagram(data []byte, raddr *net.UDPAddr) {
	pkt := s.pool.Get()
	if err := pkt.DecodeDatagram(data); err != nil {
		s.pool.Put(pkt)
		s.emit(Event{Kind: EventError, Err: fmt.Errorf("transport: decode from %s: %w", raddr, err)})
		return
	}

	id, known := s.lookupPeer(raddr)

	if pkt.Kind == wire.KindHandshake && !known {
		s.handleHandshake(pkt, raddr)
		return
	}

	if !known {
		// Silently drop traffic from unregistered peers rather than
		// auto-registering, so a forged first packet can't bypass the
		// handshake / capacity check.
		s.pool.Put(pkt)
		return
	}

	p := s.peerByID(id)
	if p == nil {
		s.pool.Put(pkt)
		return
	}
	p.touch()
	p.ackReliable(pkt.Ack, pkt.AckBits)

	if pkt.Kind == wire.KindDisconnect {
		s.disconnectPeer(id, "peer requested disconnect")
		s.pool.Put(pkt)
		return
	}

	if pkt.Channel == wire.ChannelSequenced && !p.acceptsSequenced(pkt.Seq) {
		s.pool.Put(pkt)
		return
	}

	s.emit(Event{Kind: EventPacketReceived, Peer: id, Packet: pkt})
}

func (s *Server) handleHandshake(pkt *wire.Packet, raddr *net.UDPAddr) {
	if s.cfg.ConnectionKey != "" && string(pkt.Payload) != s.cfg.ConnectionKey {
		s.pool.Put(pkt)
		s.sendRaw(raddr, &wire.Packet{Kind: wire.KindDisconnect, Payload: []byte("invalid connection key")})
		return
	}

	s.mu.Lock()
	full := len(s.peers) >= s.cfg.Capacity
	var id PeerID
	if !full {
		s.nextID++
		id = s.nextID
		p := newPeer(id, raddr)
		s.peers[id] = p
		s.addrIndex[raddr.String()] = id
	}
	s.mu.Unlock()
	s.pool.Put(pkt)

	if full {
		s.sendRaw(raddr, &wire.Packet{Kind: wire.KindDisconnect, Payload: []byte("server full")})
		return
	}

	ack := &wire.Packet{Kind: wire.KindHandshakeAck}
	s.sendRaw(raddr, ack)
	s.emit(Event{Kind: EventPeerConnected, Peer: id, Addr: raddr.String()})
}

func (s *Server) lookupPeer(raddr *net.UDPAddr) (PeerID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.addrIndex[raddr.String()]
	return id, ok
}

func (s *Server) peerByID(id PeerID) *peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[id]
}

// disconnectPeer removes a peer from the registry and emits a
// peer-disconnected event. Safe to call more than once for the same id.
func (s *Server) disconnectPeer(id PeerID, reason string) {
	s.mu.Lock()
	p, ok := s.peers[id]
	if ok {
		delete(s.peers, id)
		delete(s.addrIndex, p.addr.String())
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.emit(Event{Kind: EventPeerDisconnected, Peer: id, Reason: reason})
}

// Disconnect is the handler-facing entry point for a forced teardown (e.g.
// auth timeout, kicked for a protocol violation).
func (s *Server) Disconnect(id PeerID, reason string) {
	if p := s.peerByID(id); p != nil {
		s.sendRaw(p.addr, &wire.Packet{Kind: wire.KindDisconnect, Payload: []byte(reason)})
	}
	s.disconnectPeer(id, reason)
}

// IdleTimeouts returns peers whose last activity is older than timeout,
// for the simulation thread's per-tick maintenance pass (§4.3).
func (s *Server) IdleTimeouts(timeout time.Duration) []PeerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var idle []PeerID
	for id, p := range s.peers {
		if p.idleSince() > timeout {
			idle = append(idle, id)
		}
	}
	return idle
}

func (s *Server) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		slog.Warn("transport: ingress queue full, dropping event", "kind", ev.Kind)
	}
}

// ProcessIncoming drains every event queued since the last call and invokes
// the matching callback synchronously. It must be called exactly once per
// simulation tick (§4.2); no transport-driven handler runs at any other
// time.
func (s *Server) ProcessIncoming(onEvent func(Event)) {
	for {
		select {
		case ev := <-s.events:
			onEvent(ev)
		default:
			return
		}
	}
}

// SendTo frames and sends packet to peer over channel, then returns packet
// to the pool: ownership transfers to the transport (§4.2's egress
// contract). Reliable sends are tracked for retry until acknowledged.
func (s *Server) SendTo(id PeerID, pkt *wire.Packet, ch wire.Channel) error {
	p := s.peerByID(id)
	if p == nil {
		s.pool.Put(pkt)
		return fmt.Errorf("transport: unknown peer %d", id)
	}

	pkt.Channel = ch
	pkt.Seq = p.nextSeq(ch)
	seq := pkt.Seq

	raw, err := pkt.EncodeDatagram()
	s.pool.Put(pkt)
	if err != nil {
		return fmt.Errorf("transport: encode to peer %d: %w", id, err)
	}

	if ch == wire.ChannelReliable {
		p.trackReliable(seq, raw)
	}

	return s.writeRaw(p.addr, raw)
}

func (s *Server) sendRaw(addr *net.UDPAddr, pkt *wire.Packet) {
	raw, err := pkt.EncodeDatagram()
	if err != nil {
		s.emit(Event{Kind: EventError, Err: err})
		return
	}
	if err := s.writeRaw(addr, raw); err != nil {
		s.emit(Event{Kind: EventError, Err: err})
	}
}

func (s *Server) writeRaw(addr *net.UDPAddr, raw []byte) error {
	if s.conn == nil {
		return errors.New("transport: socket not open")
	}
	_, err := s.conn.WriteToUDP(raw, addr)
	return err
}

// retransmitLoop resends tracked reliable packets that have gone
// unacknowledged past the configured retry interval, and disconnects peers
// that exceed the retry budget entirely.
func (s *Server) retransmitLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReliableRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.retransmitOnce()
		}
	}
}

func (s *Server) retransmitOnce() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		due, dead := p.dueForRetry(s.cfg.ReliableRetryInterval, s.cfg.ReliableMaxAttempts)
		for _, pr := range due {
			if err := s.writeRaw(p.addr, pr.data); err != nil {
				s.emit(Event{Kind: EventError, Err: fmt.Errorf("transport: retransmit to %d: %w", p.id, err)})
			}
		}
		if len(dead) > 0 {
			s.disconnectPeer(p.id, "reliable channel exceeded retry budget")
		}
	}
}
