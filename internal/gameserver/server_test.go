package gameserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rvult/riftnet/internal/authtoken"
	"github.com/rvult/riftnet/internal/physics"
	"github.com/rvult/riftnet/internal/protocol"
	"github.com/rvult/riftnet/internal/wire"
)

func startTestGameServer(t *testing.T) (*Server, *authtoken.Issuer) {
	t.Helper()
	cfg := Default()
	cfg.Port = 0
	cfg.BindAddress = "127.0.0.1"
	cfg.Token.Secret = "01234567890123456789012345678901"
	cfg.Token.Issuer = "riftnet-auth"
	cfg.Token.Audience = "riftnet-game"
	cfg.Token.ExpirationMinutes = 60
	cfg.Token.ClockSkew = time.Minute

	srv, err := NewServer(cfg)
	require.NoError(t, err)

	issuer, err := authtoken.NewIssuer(cfg.Token)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("gameserver did not become ready in time")
	}
	return srv, issuer
}

func handshakeAndAuth(t *testing.T, srv *Server, token string) *net.UDPConn {
	t.Helper()
	raddr := srv.LocalAddr().(*net.UDPAddr)
	client, err := net.DialUDP("udp", nil, raddr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	hs, _ := (&wire.Packet{Kind: wire.KindHandshake}).EncodeDatagram()
	_, err = client.Write(hs)
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, err := client.Read(buf) // handshake ack
	require.NoError(t, err)
	ack := &wire.Packet{}
	require.NoError(t, ack.DecodeDatagram(buf[:n]))
	require.Equal(t, wire.KindHandshakeAck, ack.Kind)

	authPkt := &wire.Packet{Kind: wire.KindData}
	authPkt.SetPayload(protocol.EncodeGameAuthRequest(protocol.GameAuthRequest{Token: token, ClientVersion: 1}))
	raw, _ := authPkt.EncodeDatagram()
	_, err = client.Write(raw)
	require.NoError(t, err)

	n, err = client.Read(buf)
	require.NoError(t, err)
	resp := &wire.Packet{}
	require.NoError(t, resp.DecodeDatagram(buf[:n]))
	require.Equal(t, wire.KindData, resp.Kind)

	dec, kind, err := wire.NewDecoder(resp.Payload)
	require.NoError(t, err)
	require.Equal(t, wire.MsgGameAuthResponse, kind)
	authResp, err := protocol.DecodeGameAuthResponse(dec)
	require.NoError(t, err)
	require.Equal(t, wire.AuthSuccess, authResp.Result)

	return client
}

func TestGameJoinHappyPath(t *testing.T) {
	srv, issuer := startTestGameServer(t)
	tok, err := issuer.Issue(uuid.New(), "alice")
	require.NoError(t, err)

	client := handshakeAndAuth(t, srv, tok)
	_ = client
}

func TestGameJoinExpiredTokenRejected(t *testing.T) {
	srv, _ := startTestGameServer(t)
	cfg := Default()
	cfg.Token.Secret = "01234567890123456789012345678901"
	cfg.Token.Issuer = "riftnet-auth"
	cfg.Token.Audience = "riftnet-game"
	cfg.Token.ExpirationMinutes = -5
	_, err := authtoken.NewIssuer(cfg.Token)
	require.Error(t, err, "NewIssuer refuses a non-positive expiration window")
	// Sign a token that expired five minutes ago by hand, past the
	// verifier's one-minute clock skew.
	now := time.Now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, authtoken.Claims{
		Name: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    cfg.Token.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Token.Audience},
			IssuedAt:  jwt.NewNumericDate(now.Add(-10 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.Token.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}).SignedString([]byte(cfg.Token.Secret))
	require.NoError(t, err)

	raddr := srv.LocalAddr().(*net.UDPAddr)
	client, err := net.DialUDP("udp", nil, raddr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	hs, _ := (&wire.Packet{Kind: wire.KindHandshake}).EncodeDatagram()
	_, err = client.Write(hs)
	require.NoError(t, err)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	_, err = client.Read(buf) // handshake ack
	require.NoError(t, err)

	authPkt := &wire.Packet{Kind: wire.KindData}
	authPkt.SetPayload(protocol.EncodeGameAuthRequest(protocol.GameAuthRequest{Token: tok, ClientVersion: 1}))
	raw, _ := authPkt.EncodeDatagram()
	_, err = client.Write(raw)
	require.NoError(t, err)

	n, err := client.Read(buf)
	require.NoError(t, err)
	resp := &wire.Packet{}
	require.NoError(t, resp.DecodeDatagram(buf[:n]))
	dec, _, err := wire.NewDecoder(resp.Payload)
	require.NoError(t, err)
	authResp, err := protocol.DecodeGameAuthResponse(dec)
	require.NoError(t, err)
	require.Equal(t, wire.AuthTokenExpired, authResp.Result)
}

func TestPlayerInputForwardWalkProducesExpectedSnapshot(t *testing.T) {
	srv, issuer := startTestGameServer(t)
	tok, err := issuer.Issue(uuid.New(), "alice")
	require.NoError(t, err)
	client := handshakeAndAuth(t, srv, tok)

	buf := make([]byte, 512)
	var lastState physics.StateSnapshot
	for seq := uint32(1); seq <= 5; seq++ {
		pkt := &wire.Packet{Kind: wire.KindData}
		pkt.SetPayload(protocol.EncodePlayerInput(protocol.PlayerInputMessage{Input: physics.InputData{
			Tick: seq, Sequence: seq, Move: physics.Vector2{Y: 1},
		}}))
		raw, _ := pkt.EncodeDatagram()
		_, err := client.Write(raw)
		require.NoError(t, err)

		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, err := client.Read(buf)
		require.NoError(t, err)
		resp := &wire.Packet{}
		require.NoError(t, resp.DecodeDatagram(buf[:n]))
		dec, _, err := wire.NewDecoder(resp.Payload)
		require.NoError(t, err)
		stateMsg, err := protocol.DecodePlayerState(dec)
		require.NoError(t, err)
		lastState = stateMsg.State
	}

	require.Equal(t, uint32(5), lastState.LastProcessedInput)
	dt := float32(1) / float32(srv.cfg.TickRateHz)
	expectedZ := 5 * srv.cfg.Movement.WalkSpeed * dt
	require.InDelta(t, float64(expectedZ), float64(lastState.Position.Z), 1e-4)
}
