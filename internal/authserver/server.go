// Package authserver implements the credential subsystem of §4.9: account
// registration, login (with per-IP rate limiting and AuthToken issuance),
// and token validation. It reuses the same transport/dispatch/tickloop
// backbone the GameServer runs, ticking at 10 Hz rather than 30 Hz since
// there is no physics to simulate — only I/O-bound repository calls.
package authserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rvult/riftnet/internal/accounts"
	"github.com/rvult/riftnet/internal/authtoken"
	"github.com/rvult/riftnet/internal/dispatch"
	"github.com/rvult/riftnet/internal/tickloop"
	"github.com/rvult/riftnet/internal/transport"
	"github.com/rvult/riftnet/internal/wire"
)

// Server is the AuthServer.
type Server struct {
	cfg      Config
	tr       *transport.Server
	dispatch *dispatch.Registry
	loop     *tickloop.Loop
	repo     accounts.Repository
	issuer   *authtoken.Issuer
	verifier *authtoken.Verifier
	limiter  *RateLimiter

	lastCleanup time.Time
}

// NewServer constructs an AuthServer backed by repo.
func NewServer(cfg Config, repo accounts.Repository) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	issuer, err := authtoken.NewIssuer(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("authserver: %w", err)
	}
	verifier, err := authtoken.NewVerifier(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("authserver: %w", err)
	}

	trCfg := transport.DefaultConfig()
	trCfg.BindAddress = cfg.BindAddress
	trCfg.Port = cfg.Port
	trCfg.Capacity = cfg.MaxClients
	trCfg.ConnectionKey = cfg.ConnectionKey

	s := &Server{
		cfg:      cfg,
		tr:       transport.NewServer(trCfg),
		dispatch: dispatch.NewRegistry(),
		loop:     tickloop.NewLoop(cfg.TickRateHz),
		repo:     repo,
		issuer:   issuer,
		verifier: verifier,
		limiter:  NewRateLimiter(repo, cfg.rateLimitWindow(), cfg.RateLimitMaxAttempts),
	}
	s.registerHandlers()
	return s, nil
}

// Run starts the transport and tick loop together, returning when ctx is
// canceled or either fails.
func (s *Server) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.tr.Run(gctx) })
	group.Go(func() error {
		s.loop.Run(gctx, s.step)
		return nil
	})
	return group.Wait()
}

func (s *Server) step(ctx context.Context, tick uint32) {
	s.tr.ProcessIncoming(func(ev transport.Event) {
		s.handleTransportEvent(ctx, tick, ev)
	})
	s.runCleanup(ctx, tick)
}

func (s *Server) handleTransportEvent(ctx context.Context, tick uint32, ev transport.Event) {
	switch ev.Kind {
	case transport.EventPeerConnected:
		slog.Info("authserver: peer connected", "peer", ev.Peer, "addr", ev.Addr)
	case transport.EventPeerDisconnected:
		slog.Info("authserver: peer disconnected", "peer", ev.Peer, "reason", ev.Reason)
	case transport.EventPacketReceived:
		s.dispatch.Dispatch(dispatch.Context{Peer: ev.Peer, Server: s, Tick: tick, Ctx: ctx}, ev.Packet)
	case transport.EventError:
		slog.Warn("authserver: transport error", "err", ev.Err)
	}
}

// runCleanup prunes stale login attempts on cfg.cleanupInterval, the
// "periodically pruned by the cleanup maintenance pass" of §3
// LoginAttempt.
func (s *Server) runCleanup(ctx context.Context, tick uint32) {
	now := time.Now()
	if !s.lastCleanup.IsZero() && now.Sub(s.lastCleanup) < s.cfg.cleanupInterval() {
		return
	}
	s.lastCleanup = now
	removed, err := s.repo.CleanupLoginAttempts(ctx, s.cfg.loginAttemptRetention())
	if err != nil {
		slog.Warn("authserver: login attempt cleanup failed", "err", err)
		return
	}
	if removed > 0 {
		slog.Info("authserver: pruned stale login attempts", "removed", removed)
	}
}

// --- dispatch.ServerHandle ---

func (s *Server) SendTo(peer transport.PeerID, pkt *wire.Packet, ch wire.Channel) error {
	return s.tr.SendTo(peer, pkt, ch)
}

// BroadcastToInGame/BroadcastExcept have no meaning for the AuthServer
// (there is no in-game concept here); they exist only to satisfy
// dispatch.ServerHandle, which gameserver.Server's handlers do use.
func (s *Server) BroadcastToInGame(pkt *wire.Packet, _ wire.Channel) { s.tr.Pool().Put(pkt) }
func (s *Server) BroadcastExcept(_ transport.PeerID, pkt *wire.Packet, _ wire.Channel) {
	s.tr.Pool().Put(pkt)
}

func (s *Server) Disconnect(peer transport.PeerID, reason string) { s.tr.Disconnect(peer, reason) }

func (s *Server) Pool() *wire.Pool { return s.tr.Pool() }

func (s *Server) CurrentTick() uint32 { return s.loop.CurrentTick() }

// Ready is closed once the transport socket is bound.
func (s *Server) Ready() <-chan struct{} { return s.tr.Ready() }

// LocalAddr returns the transport's bound address. Only valid after Ready
// is closed.
func (s *Server) LocalAddr() net.Addr { return s.tr.LocalAddr() }
