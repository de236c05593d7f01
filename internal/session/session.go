package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rvult/riftnet/internal/physics"
	"github.com/rvult/riftnet/internal/transport"
	"github.com/rvult/riftnet/internal/wire"
)

// Session mirrors one connected peer's identity and state (§3
// PlayerSession). It is mutated only from the simulation thread; no
// internal locking is needed against handlers, per §5 — callers in the
// transport worker only ever touch a session through the Registry's
// mutex-guarded lookups.
type Session struct {
	Peer          transport.PeerID
	IP            string
	ConnectedAt   time.Time
	LastActivity  time.Time
	State         State
	AuthTimeoutAt time.Time

	UserID   uuid.UUID
	HasUser  bool
	Username string
	Token    string

	physics.StateSnapshot
	LastProcessedInputSeq uint32
}

// NewSession creates a Connected session for a freshly accepted peer.
func NewSession(peer transport.PeerID, ip string, authGrace time.Duration) *Session {
	now := time.Now()
	return &Session{
		Peer:          peer,
		IP:            ip,
		ConnectedAt:   now,
		LastActivity:  now,
		State:         Connected,
		AuthTimeoutAt: now.Add(authGrace),
	}
}

// Touch records activity, resetting the idle-disconnect clock (§4.3).
func (s *Session) Touch() { s.LastActivity = time.Now() }

// Idle reports how long it has been since the last received packet.
func (s *Session) Idle() time.Duration { return time.Since(s.LastActivity) }

// TransitionTo moves the session to next, validating against the state
// machine, and returns an error describing the illegal move otherwise.
func (s *Session) TransitionTo(next State) error {
	if err := Transition(s.State, next); err != nil {
		return err
	}
	s.State = next
	return nil
}

// BeginAuth moves Connected -> Authenticating.
func (s *Session) BeginAuth() error { return s.TransitionTo(Authenticating) }

// CompleteAuth records the authenticated identity and moves
// Authenticating -> Authenticated.
func (s *Session) CompleteAuth(userID uuid.UUID, username, token string) error {
	if err := s.TransitionTo(Authenticated); err != nil {
		return err
	}
	s.UserID = userID
	s.HasUser = true
	s.Username = username
	s.Token = token
	return nil
}

// EnterGame moves Authenticated -> InGame, resetting motion state to spawn
// per §4.5 step 5.
func (s *Session) EnterGame(spawn physics.StateSnapshot) error {
	if err := s.TransitionTo(InGame); err != nil {
		return err
	}
	s.StateSnapshot = spawn
	return nil
}

// BeginDisconnect moves any state to Disconnecting; it is always legal.
func (s *Session) BeginDisconnect() { s.State = Disconnecting }

// ValidateMessageForState enforces the per-state message legality rules of
// §4.3: before authentication only the game-join handshake and the system
// Ping/Pong/Disconnect messages are legal, auth messages are illegal
// afterward, and movement requires InGame.
func ValidateMessageForState(state State, kind wire.MessageKind) error {
	switch state {
	case Connected, Authenticating:
		switch kind {
		case wire.MsgGameAuthRequest, wire.MsgPing, wire.MsgPong, wire.MsgDisconnect:
			return nil
		default:
			return fmt.Errorf("session: message %d illegal before authentication", kind)
		}
	case Authenticated, InGame:
		switch kind {
		case wire.MsgGameAuthRequest:
			return fmt.Errorf("session: already authenticated")
		case wire.MsgPlayerInput, wire.MsgPlayerInputBatch:
			if state != InGame {
				return fmt.Errorf("session: movement requires InGame, have %s", state)
			}
			return nil
		default:
			return nil
		}
	case Disconnecting:
		return fmt.Errorf("session: session is disconnecting")
	default:
		return fmt.Errorf("session: unknown state %v", state)
	}
}
