package gameserver

import (
	"log/slog"
	"sort"

	"github.com/rvult/riftnet/internal/authtoken"
	"github.com/rvult/riftnet/internal/dispatch"
	"github.com/rvult/riftnet/internal/physics"
	"github.com/rvult/riftnet/internal/protocol"
	"github.com/rvult/riftnet/internal/session"
	"github.com/rvult/riftnet/internal/wire"
)

func (s *Server) registerHandlers() {
	s.dispatch.OnPacket(wire.KindPing, s.handlePing)
	s.dispatch.OnMessage(wire.MsgGameAuthRequest, s.handleGameAuthRequest)
	s.dispatch.OnMessage(wire.MsgPlayerInput, s.handlePlayerInput)
	s.dispatch.OnMessage(wire.MsgPlayerInputBatch, s.handlePlayerInputBatch)
	s.dispatch.OnMessage(wire.MsgChatMessage, s.handleChatMessage)
}

// handlePing echoes a Ping packet's raw timestamp payload back as Pong,
// on the unreliable channel (§4.8).
func (s *Server) handlePing(ctx dispatch.Context, pkt *wire.Packet) {
	reply := s.tr.Pool().Get()
	reply.Kind = wire.KindPong
	reply.SetPayload(pkt.Payload)
	s.tr.Pool().Put(pkt)

	if err := s.SendTo(ctx.Peer, reply, wire.ChannelUnreliable); err != nil {
		slog.Warn("gameserver: pong send failed", "peer", ctx.Peer, "err", err)
	}
}

// handleGameAuthRequest implements §4.5 end to end.
func (s *Server) handleGameAuthRequest(ctx dispatch.Context, dec *wire.Decoder) {
	req, err := protocol.DecodeGameAuthRequest(dec)
	if err != nil {
		slog.Warn("gameserver: malformed GameAuthRequest", "peer", ctx.Peer, "err", err)
		s.forceDisconnect(ctx.Peer, ctx.Session, "malformed auth request")
		return
	}

	if ctx.Session == nil {
		s.replyGameAuth(ctx, wire.AuthInvalidToken, "", "")
		s.forceDisconnect(ctx.Peer, ctx.Session, "invalid auth state")
		return
	}
	if ctx.Session.State == session.Authenticated || ctx.Session.State == session.InGame {
		s.replyGameAuth(ctx, wire.AuthAlreadyConnected, "", "")
		s.forceDisconnect(ctx.Peer, ctx.Session, "already authenticated")
		return
	}

	if req.ClientVersion < s.cfg.MinClientVersion {
		s.replyGameAuth(ctx, wire.AuthVersionMismatch, "", "")
		s.forceDisconnect(ctx.Peer, ctx.Session, "client version mismatch")
		return
	}

	result := s.verifier.Verify(req.Token)
	if !result.Valid {
		reason := mapVerifyFailure(result.Reason)
		s.replyGameAuth(ctx, reason, "", "")
		s.forceDisconnect(ctx.Peer, ctx.Session, "token rejected: "+reason.String())
		return
	}

	if s.registry.IsUserConnected(result.UserID) {
		s.replyGameAuth(ctx, wire.AuthAlreadyConnected, result.UserID.String(), result.Username)
		s.forceDisconnect(ctx.Peer, ctx.Session, "duplicate login")
		return
	}

	if err := ctx.Session.BeginAuth(); err != nil {
		s.replyGameAuth(ctx, wire.AuthInternalError, "", "")
		s.forceDisconnect(ctx.Peer, ctx.Session, "bad session state")
		return
	}
	if err := ctx.Session.CompleteAuth(result.UserID, result.Username, req.Token); err != nil {
		s.replyGameAuth(ctx, wire.AuthInternalError, "", "")
		s.forceDisconnect(ctx.Peer, ctx.Session, "bad session state")
		return
	}
	if !s.registry.MarkAuthenticated(ctx.Session, result.UserID) {
		s.replyGameAuth(ctx, wire.AuthAlreadyConnected, result.UserID.String(), result.Username)
		s.forceDisconnect(ctx.Peer, ctx.Session, "duplicate login (race)")
		return
	}
	if err := ctx.Session.EnterGame(physics.StateSnapshot{Flags: physics.StateGrounded}); err != nil {
		s.replyGameAuth(ctx, wire.AuthInternalError, "", "")
		s.forceDisconnect(ctx.Peer, ctx.Session, "bad session state")
		return
	}

	s.replyGameAuth(ctx, wire.AuthSuccess, result.UserID.String(), result.Username)
}

func mapVerifyFailure(reason authtoken.FailureReason) wire.GameAuthResult {
	switch reason {
	case authtoken.ReasonTokenExpired:
		return wire.AuthTokenExpired
	case authtoken.ReasonInvalidSignature:
		// §6.3 has no distinct "bad signature" wire code; folds into AuthInvalidToken.
		return wire.AuthInvalidToken
	default:
		return wire.AuthInvalidToken
	}
}

func (s *Server) replyGameAuth(ctx dispatch.Context, result wire.GameAuthResult, userID, username string) {
	pkt := s.tr.Pool().Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(protocol.EncodeGameAuthResponse(protocol.GameAuthResponse{
		Result:     result,
		UserID:     userID,
		Username:   username,
		ServerTick: ctx.Tick,
	}))
	if err := s.SendTo(ctx.Peer, pkt, wire.ChannelReliable); err != nil {
		slog.Warn("gameserver: GameAuthResponse send failed", "peer", ctx.Peer, "err", err)
	}
}

// handlePlayerInput implements §4.6 for a single input.
func (s *Server) handlePlayerInput(ctx dispatch.Context, dec *wire.Decoder) {
	msg, err := protocol.DecodePlayerInput(dec)
	if err != nil {
		slog.Warn("gameserver: malformed PlayerInput", "peer", ctx.Peer, "err", err)
		return
	}
	s.applyInputs(ctx, []physics.InputData{msg.Input})
}

// handlePlayerInputBatch implements §4.6 step 7.
func (s *Server) handlePlayerInputBatch(ctx dispatch.Context, dec *wire.Decoder) {
	msg, err := protocol.DecodePlayerInputBatch(dec)
	if err != nil {
		slog.Warn("gameserver: malformed PlayerInputBatch", "peer", ctx.Peer, "err", err)
		return
	}
	sort.Slice(msg.Inputs, func(i, j int) bool { return msg.Inputs[i].Sequence < msg.Inputs[j].Sequence })
	s.applyInputs(ctx, msg.Inputs)
}

// applyInputs is the algorithmic core of §4.6: validate, apply
// deterministic physics, validate the outcome, commit, and reply with one
// snapshot for the final applied input.
func (s *Server) applyInputs(ctx dispatch.Context, inputs []physics.InputData) {
	sess := ctx.Session
	if sess == nil || sess.State != session.InGame {
		slog.Warn("gameserver: input rejected, not InGame", "peer", ctx.Peer)
		return
	}

	dt := float32(1) / float32(s.cfg.TickRateHz)
	maxSpeed := s.cfg.Movement.SprintSpeed * 1.2 * dt

	applied := false
	for _, in := range inputs {
		if in.Sequence <= sess.LastProcessedInputSeq {
			continue
		}
		if in.Move.SqrMagnitude() > 1.1 {
			slog.Warn("gameserver: input rejected, move out of range", "peer", ctx.Peer, "sqr", in.Move.SqrMagnitude())
			continue
		}

		prev := sess.StateSnapshot
		next := physics.Execute(prev, in, s.cfg.Movement, dt)

		horizontal := next.Position.Sub(prev.Position)
		horizontal.Y = 0
		if horizontal.Magnitude() > maxSpeed {
			slog.Warn("gameserver: soft speed violation, rejecting update", "peer", ctx.Peer, "seq", in.Sequence)
			continue
		}

		sess.StateSnapshot = next
		sess.LastProcessedInputSeq = in.Sequence
		applied = true
	}

	if !applied {
		return
	}

	pkt := s.tr.Pool().Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(protocol.EncodePlayerState(protocol.PlayerStateMessage{State: sess.StateSnapshot}))
	if err := s.SendTo(ctx.Peer, pkt, wire.ChannelReliable); err != nil {
		slog.Warn("gameserver: PlayerState send failed", "peer", ctx.Peer, "err", err)
	}
}

func (s *Server) handleChatMessage(ctx dispatch.Context, dec *wire.Decoder) {
	msg, err := protocol.DecodeChatMessage(dec)
	if err != nil {
		slog.Warn("gameserver: malformed ChatMessage", "peer", ctx.Peer, "err", err)
		return
	}
	if ctx.Session == nil || ctx.Session.State != session.InGame {
		return
	}
	msg.From = ctx.Session.Username

	pkt := s.tr.Pool().Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(protocol.EncodeChatMessage(msg))
	s.BroadcastExcept(ctx.Peer, pkt, wire.ChannelReliable)
}
