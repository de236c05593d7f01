package gameserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rvult/riftnet/internal/authtoken"
	"github.com/rvult/riftnet/internal/dispatch"
	"github.com/rvult/riftnet/internal/session"
	"github.com/rvult/riftnet/internal/tickloop"
	"github.com/rvult/riftnet/internal/transport"
	"github.com/rvult/riftnet/internal/wire"
)

// Server is the authoritative GameServer: it wires the transport,
// dispatch registry, player registry, and tick scheduler together exactly
// per the single-writer discipline of §5 — every handler below runs on
// the simulation thread, inside tickloop's per-tick step.
type Server struct {
	cfg      Config
	tr       *transport.Server
	registry *session.Registry
	dispatch *dispatch.Registry
	loop     *tickloop.Loop
	verifier *authtoken.Verifier
}

// NewServer constructs a GameServer from cfg. Run opens the socket and
// starts the tick loop.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	verifier, err := authtoken.NewVerifier(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("gameserver: %w", err)
	}

	trCfg := transport.DefaultConfig()
	trCfg.BindAddress = cfg.BindAddress
	trCfg.Port = cfg.Port
	trCfg.Capacity = cfg.MaxPlayers
	trCfg.ConnectionKey = cfg.ConnectionKey

	s := &Server{
		cfg:      cfg,
		tr:       transport.NewServer(trCfg),
		registry: session.NewRegistry(),
		dispatch: dispatch.NewRegistry(),
		loop:     tickloop.NewLoop(cfg.TickRateHz),
		verifier: verifier,
	}
	s.registerHandlers()
	return s, nil
}

// Run starts the transport and the tick loop together, returning when ctx
// is canceled or either fails (§5 cancellation).
func (s *Server) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.tr.Run(gctx) })
	group.Go(func() error {
		s.loop.Run(gctx, s.step)
		return nil
	})
	return group.Wait()
}

// step is called once per tick by the tick loop: drain transport events,
// then run maintenance (idle/auth-timeout disconnects).
func (s *Server) step(ctx context.Context, tick uint32) {
	s.tr.ProcessIncoming(func(ev transport.Event) {
		s.handleTransportEvent(ctx, tick, ev)
	})
	s.runMaintenance(tick)
}

func (s *Server) handleTransportEvent(ctx context.Context, tick uint32, ev transport.Event) {
	switch ev.Kind {
	case transport.EventPeerConnected:
		sess := session.NewSession(ev.Peer, ev.Addr, s.cfg.authGrace())
		s.registry.Add(sess)
		slog.Info("gameserver: peer connected", "peer", ev.Peer, "addr", ev.Addr)

	case transport.EventPeerDisconnected:
		s.registry.Remove(ev.Peer)
		slog.Info("gameserver: peer disconnected", "peer", ev.Peer, "reason", ev.Reason)

	case transport.EventPacketReceived:
		sess, ok := s.registry.ByPeer(ev.Peer)
		if !ok {
			s.tr.Pool().Put(ev.Packet)
			return
		}
		sess.Touch()
		s.dispatchPacket(ctx, tick, sess, ev.Peer, ev.Packet)

	case transport.EventError:
		slog.Warn("gameserver: transport error", "err", ev.Err)
	}
}

func (s *Server) dispatchPacket(ctx context.Context, tick uint32, sess *session.Session, peer transport.PeerID, pkt *wire.Packet) {
	if pkt.Kind == wire.KindData {
		if kind, ok := wire.PeekMessageKind(pkt.Payload); ok {
			// A GameAuthRequest always reaches its handler, which answers an
			// already-authenticated session with AlreadyConnected before
			// disconnecting it.
			if verr := session.ValidateMessageForState(sess.State, kind); verr != nil && kind != wire.MsgGameAuthRequest {
				slog.Warn("gameserver: illegal message for state", "peer", peer, "state", sess.State, "kind", kind, "err", verr)
				s.tr.Pool().Put(pkt)
				s.forceDisconnect(peer, sess, "illegal message for session state")
				return
			}
		}
	}

	s.dispatch.Dispatch(dispatch.Context{Peer: peer, Session: sess, Server: s, Tick: tick, Ctx: ctx}, pkt)
}

func (s *Server) forceDisconnect(peer transport.PeerID, sess *session.Session, reason string) {
	if sess != nil {
		sess.BeginDisconnect()
	}
	s.tr.Disconnect(peer, reason)
	s.registry.Remove(peer)
}

// runMaintenance disconnects idle and auth-timed-out sessions during the
// tick's maintenance pass (§4.3).
func (s *Server) runMaintenance(tick uint32) {
	for _, sess := range s.registry.Snapshot() {
		if sess.Idle() > s.cfg.disconnectTimeout() {
			s.forceDisconnect(sess.Peer, sess, "idle timeout")
			continue
		}
		if sess.State != session.Authenticated && sess.State != session.InGame {
			if time.Now().After(sess.AuthTimeoutAt) {
				s.forceDisconnect(sess.Peer, sess, "auth timeout")
			}
		}
	}
}

// --- dispatch.ServerHandle ---

func (s *Server) SendTo(peer transport.PeerID, pkt *wire.Packet, ch wire.Channel) error {
	return s.tr.SendTo(peer, pkt, ch)
}

func (s *Server) BroadcastToInGame(pkt *wire.Packet, ch wire.Channel) {
	raw, err := pkt.EncodeDatagram()
	s.tr.Pool().Put(pkt)
	if err != nil {
		slog.Warn("gameserver: broadcast encode failed", "err", err)
		return
	}
	for _, sess := range s.registry.Snapshot() {
		if sess.State != session.InGame {
			continue
		}
		clone := s.tr.Pool().Get()
		if derr := clone.DecodeDatagram(raw); derr != nil {
			s.tr.Pool().Put(clone)
			continue
		}
		if serr := s.tr.SendTo(sess.Peer, clone, ch); serr != nil {
			slog.Warn("gameserver: broadcast send failed", "peer", sess.Peer, "err", serr)
		}
	}
}

func (s *Server) BroadcastExcept(except transport.PeerID, pkt *wire.Packet, ch wire.Channel) {
	raw, err := pkt.EncodeDatagram()
	s.tr.Pool().Put(pkt)
	if err != nil {
		slog.Warn("gameserver: broadcast encode failed", "err", err)
		return
	}
	for _, sess := range s.registry.Snapshot() {
		if sess.State != session.InGame || sess.Peer == except {
			continue
		}
		clone := s.tr.Pool().Get()
		if derr := clone.DecodeDatagram(raw); derr != nil {
			s.tr.Pool().Put(clone)
			continue
		}
		if serr := s.tr.SendTo(sess.Peer, clone, ch); serr != nil {
			slog.Warn("gameserver: broadcast send failed", "peer", sess.Peer, "err", serr)
		}
	}
}

func (s *Server) Disconnect(peer transport.PeerID, reason string) {
	if sess, ok := s.registry.ByPeer(peer); ok {
		s.forceDisconnect(peer, sess, reason)
		return
	}
	s.tr.Disconnect(peer, reason)
}

func (s *Server) Pool() *wire.Pool { return s.tr.Pool() }

func (s *Server) CurrentTick() uint32 { return s.loop.CurrentTick() }

// PlayerCount exposes the current registry size for diagnostics.
func (s *Server) PlayerCount() int { return s.registry.Count() }

// Ready is closed once the transport socket is bound, for tests that need
// to learn an ephemeral port before connecting.
func (s *Server) Ready() <-chan struct{} { return s.tr.Ready() }

// LocalAddr returns the transport's bound address. Only valid after Ready
// is closed.
func (s *Server) LocalAddr() net.Addr { return s.tr.LocalAddr() }
