package authserver

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rvult/riftnet/internal/accounts"
	"github.com/rvult/riftnet/internal/dispatch"
	"github.com/rvult/riftnet/internal/protocol"
	"github.com/rvult/riftnet/internal/wire"
)

func (s *Server) registerHandlers() {
	s.dispatch.OnPacket(wire.KindPing, s.handlePing)
	s.dispatch.OnMessage(wire.MsgRegisterRequest, s.handleRegister)
	s.dispatch.OnMessage(wire.MsgLoginRequest, s.handleLogin)
	s.dispatch.OnMessage(wire.MsgTokenValidationRequest, s.handleValidateToken)
}

func (s *Server) handlePing(ctx dispatch.Context, pkt *wire.Packet) {
	reply := s.tr.Pool().Get()
	reply.Kind = wire.KindPong
	reply.SetPayload(pkt.Payload)
	s.tr.Pool().Put(pkt)
	if err := s.SendTo(ctx.Peer, reply, wire.ChannelUnreliable); err != nil {
		slog.Warn("authserver: pong send failed", "peer", ctx.Peer, "err", err)
	}
}

// handleRegister implements §4.9 Register.
func (s *Server) handleRegister(ctx dispatch.Context, dec *wire.Decoder) {
	req, err := protocol.DecodeRegisterRequest(dec)
	if err != nil {
		slog.Warn("authserver: malformed RegisterRequest", "peer", ctx.Peer, "err", err)
		return
	}

	if req.Password != req.Confirm {
		s.replyRegister(ctx, protocol.RegisterPasswordMismatch, "", "")
		return
	}
	if len(req.Password) < s.cfg.MinPasswordLength {
		s.replyRegister(ctx, protocol.RegisterWeakPassword, "", "")
		return
	}

	background := ctx.Ctx
	if _, err := s.repo.GetByUsername(background, req.Username); err == nil {
		s.replyRegister(ctx, protocol.RegisterUsernameTaken, "", "")
		return
	} else if !errors.Is(err, accounts.ErrNotFound) {
		slog.Error("authserver: register username lookup failed", "err", err)
		s.replyRegister(ctx, protocol.RegisterInternalError, "", "")
		return
	}
	if _, err := s.repo.GetByEmail(background, req.Email); err == nil {
		s.replyRegister(ctx, protocol.RegisterEmailTaken, "", "")
		return
	} else if !errors.Is(err, accounts.ErrNotFound) {
		slog.Error("authserver: register email lookup failed", "err", err)
		s.replyRegister(ctx, protocol.RegisterInternalError, "", "")
		return
	}

	hash, err := accounts.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		slog.Error("authserver: hashing password failed", "err", err)
		s.replyRegister(ctx, protocol.RegisterInternalError, "", "")
		return
	}

	acc, err := s.repo.CreateAccount(background, accounts.Account{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrAlreadyExists) {
			s.replyRegister(ctx, protocol.RegisterUsernameTaken, "", "")
			return
		}
		slog.Error("authserver: creating account failed", "err", err)
		s.replyRegister(ctx, protocol.RegisterInternalError, "", "")
		return
	}

	s.replyRegister(ctx, protocol.RegisterSuccess, acc.ID.String(), acc.Username)
}

func (s *Server) replyRegister(ctx dispatch.Context, result protocol.RegisterResultCode, userID, username string) {
	pkt := s.tr.Pool().Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(protocol.EncodeRegisterResponse(protocol.RegisterResponseMessage{
		Result: result, UserID: userID, Username: username,
	}))
	if err := s.SendTo(ctx.Peer, pkt, wire.ChannelReliable); err != nil {
		slog.Warn("authserver: RegisterResponse send failed", "peer", ctx.Peer, "err", err)
	}
}

// handleLogin implements §4.9 Login end to end: rate limit, lookup,
// constant-time password check, token issuance, audit log, last-login
// update.
func (s *Server) handleLogin(ctx dispatch.Context, dec *wire.Decoder) {
	req, err := protocol.DecodeLoginRequest(dec)
	if err != nil {
		slog.Warn("authserver: malformed LoginRequest", "peer", ctx.Peer, "err", err)
		return
	}
	background := ctx.Ctx

	decision := s.limiter.Check(background, req.IP)
	if decision.Limited {
		s.replyLogin(ctx, protocol.LoginRateLimited, "", "", "", uint32(decision.RetryAfterSeconds))
		return
	}

	var acc accounts.Account
	if strings.Contains(req.Identifier, "@") {
		acc, err = s.repo.GetByEmail(background, req.Identifier)
	} else {
		acc, err = s.repo.GetByUsername(background, req.Identifier)
	}

	success := false
	defer func() {
		if aerr := s.repo.RecordLoginAttempt(background, accounts.LoginAttempt{
			IP: req.IP, Identifier: req.Identifier, Success: success, OccurredAt: time.Now(),
		}); aerr != nil {
			slog.Warn("authserver: recording login attempt failed", "err", aerr)
		}
	}()

	if err != nil {
		if !errors.Is(err, accounts.ErrNotFound) {
			slog.Error("authserver: login lookup failed", "err", err)
			s.replyLogin(ctx, protocol.LoginInternalError, "", "", "", 0)
			return
		}
		// Still run a hash comparison against a throwaway value so a
		// missing account takes the same time as a wrong password.
		accounts.VerifyPassword(unknownAccountHash, req.Password)
		s.replyLogin(ctx, protocol.LoginInvalidCredentials, "", "", "", 0)
		return
	}

	if !accounts.VerifyPassword(acc.PasswordHash, req.Password) {
		s.replyLogin(ctx, protocol.LoginInvalidCredentials, "", "", "", 0)
		return
	}

	token, err := s.issuer.Issue(acc.ID, acc.Username)
	if err != nil {
		slog.Error("authserver: issuing token failed", "err", err)
		s.replyLogin(ctx, protocol.LoginInternalError, "", "", "", 0)
		return
	}

	if err := s.repo.UpdateLastLogin(background, acc.ID, req.IP, time.Now()); err != nil {
		slog.Warn("authserver: updating last login failed", "err", err)
	}

	success = true
	s.replyLogin(ctx, protocol.LoginSuccess, token, acc.ID.String(), acc.Username, 0)
}

// unknownAccountHash is a fixed bcrypt hash compared against on a
// missing-account lookup, so Login's failure path takes the same time
// whether the identifier exists or not.
const unknownAccountHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8Nf0Q9eEwxe9P6Rjs8d5oWh1q4t4Ki"

func (s *Server) replyLogin(ctx dispatch.Context, result protocol.LoginResultCode, token, userID, username string, retryAfter uint32) {
	pkt := s.tr.Pool().Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(protocol.EncodeLoginResponse(protocol.LoginResponseMessage{
		Result: result, Token: token, UserID: userID, Username: username, RetryAfterSecs: retryAfter,
	}))
	if err := s.SendTo(ctx.Peer, pkt, wire.ChannelReliable); err != nil {
		slog.Warn("authserver: LoginResponse send failed", "peer", ctx.Peer, "err", err)
	}
}

// handleValidateToken implements §4.9 ValidateToken.
func (s *Server) handleValidateToken(ctx dispatch.Context, dec *wire.Decoder) {
	req, err := protocol.DecodeTokenValidationRequest(dec)
	if err != nil {
		slog.Warn("authserver: malformed TokenValidationRequest", "peer", ctx.Peer, "err", err)
		return
	}

	result := s.verifier.Verify(req.Token)
	resp := protocol.TokenValidationResponseMessage{IsValid: result.Valid}
	if result.Valid {
		resp.UserID = result.UserID.String()
		resp.Username = result.Username
		resp.ExpiryUnix = result.Expiry.Unix()
	}

	pkt := s.tr.Pool().Get()
	pkt.Kind = wire.KindData
	pkt.SetPayload(protocol.EncodeTokenValidationResponse(resp))
	if err := s.SendTo(ctx.Peer, pkt, wire.ChannelReliable); err != nil {
		slog.Warn("authserver: TokenValidationResponse send failed", "peer", ctx.Peer, "err", err)
	}
}
