// Package protocol defines the positional application messages carried
// inside Data packets (§6.2): one struct and one Encode/Decode pair per
// MessageKind, built on top of internal/wire's Encoder/Decoder.
package protocol

import (
	"fmt"

	"github.com/rvult/riftnet/internal/physics"
	"github.com/rvult/riftnet/internal/wire"
)

// PingMessage/PongMessage carry a timestamp for round-trip latency
// measurement (§4.8).
type PingMessage struct {
	ClientTimeMillis int64
}

func EncodePing(m PingMessage) []byte {
	e := wire.NewEncoder(wire.MsgPing)
	e.PutUint64(uint64(m.ClientTimeMillis))
	return e.Bytes()
}

func DecodePing(dec *wire.Decoder) (PingMessage, error) {
	m := PingMessage{ClientTimeMillis: int64(dec.Uint64())}
	return m, dec.Err()
}

type PongMessage struct {
	ClientTimeMillis int64
	ServerTick       uint32
}

func EncodePong(m PongMessage) []byte {
	e := wire.NewEncoder(wire.MsgPong)
	e.PutUint64(uint64(m.ClientTimeMillis))
	e.PutUint32(m.ServerTick)
	return e.Bytes()
}

func DecodePong(dec *wire.Decoder) (PongMessage, error) {
	m := PongMessage{ClientTimeMillis: int64(dec.Uint64()), ServerTick: dec.Uint32()}
	return m, dec.Err()
}

// GameAuthRequest presents an AuthServer-issued token to the GameServer
// (§4.5, §4.9).
type GameAuthRequest struct {
	Token         string
	ClientVersion uint32
}

func EncodeGameAuthRequest(m GameAuthRequest) []byte {
	e := wire.NewEncoder(wire.MsgGameAuthRequest)
	e.PutString(m.Token)
	e.PutUint32(m.ClientVersion)
	return e.Bytes()
}

func DecodeGameAuthRequest(dec *wire.Decoder) (GameAuthRequest, error) {
	m := GameAuthRequest{Token: dec.String(), ClientVersion: dec.Uint32()}
	return m, dec.Err()
}

// GameAuthResponse is the reply to GameAuthRequest (§4.5 step 6).
type GameAuthResponse struct {
	Result     wire.GameAuthResult
	UserID     string
	Username   string
	ServerTick uint32
}

func EncodeGameAuthResponse(m GameAuthResponse) []byte {
	e := wire.NewEncoder(wire.MsgGameAuthResponse)
	e.PutUint8(uint8(m.Result))
	e.PutString(m.UserID)
	e.PutString(m.Username)
	e.PutUint32(m.ServerTick)
	return e.Bytes()
}

func DecodeGameAuthResponse(dec *wire.Decoder) (GameAuthResponse, error) {
	m := GameAuthResponse{
		Result:     wire.GameAuthResult(dec.Uint8()),
		UserID:     dec.String(),
		Username:   dec.String(),
		ServerTick: dec.Uint32(),
	}
	return m, dec.Err()
}

// encodeInputData/decodeInputData write/read one InputData record without
// the MessageKind prefix, shared by PlayerInput and PlayerInputBatch.
func encodeInputData(e *wire.Encoder, in physics.InputData) {
	e.PutUint32(in.Tick)
	e.PutUint32(in.Sequence)
	e.PutFloat32(in.Move.X)
	e.PutFloat32(in.Move.Y)
	e.PutFloat32(in.Rotation)
	e.PutUint8(uint8(in.Actions))
}

func decodeInputData(dec *wire.Decoder) physics.InputData {
	return physics.InputData{
		Tick:     dec.Uint32(),
		Sequence: dec.Uint32(),
		Move:     physics.Vector2{X: dec.Float32(), Y: dec.Float32()},
		Rotation: dec.Float32(),
		Actions:  physics.ActionFlags(dec.Uint8()),
	}
}

// PlayerInputMessage carries a single input tick (§3 InputData, §4.6).
type PlayerInputMessage struct {
	Input physics.InputData
}

func EncodePlayerInput(m PlayerInputMessage) []byte {
	e := wire.NewEncoder(wire.MsgPlayerInput)
	encodeInputData(e, m.Input)
	return e.Bytes()
}

func DecodePlayerInput(dec *wire.Decoder) (PlayerInputMessage, error) {
	m := PlayerInputMessage{Input: decodeInputData(dec)}
	return m, dec.Err()
}

// MaxBatchInputs bounds how many inputs one PlayerInputBatch may carry, so
// a corrupt count field cannot force an unbounded allocation.
const MaxBatchInputs = 64

// PlayerInputBatchMessage carries several ordered inputs in one packet
// (§4.6 step 7), used to recover after transient packet loss.
type PlayerInputBatchMessage struct {
	Inputs []physics.InputData
}

func EncodePlayerInputBatch(m PlayerInputBatchMessage) []byte {
	e := wire.NewEncoder(wire.MsgPlayerInputBatch)
	e.PutUint16(uint16(len(m.Inputs)))
	for _, in := range m.Inputs {
		encodeInputData(e, in)
	}
	return e.Bytes()
}

func DecodePlayerInputBatch(dec *wire.Decoder) (PlayerInputBatchMessage, error) {
	count := int(dec.Uint16())
	if count > MaxBatchInputs {
		return PlayerInputBatchMessage{}, fmt.Errorf("protocol: input batch of %d exceeds max %d", count, MaxBatchInputs)
	}
	inputs := make([]physics.InputData, 0, count)
	for i := 0; i < count; i++ {
		inputs = append(inputs, decodeInputData(dec))
	}
	if err := dec.Err(); err != nil {
		return PlayerInputBatchMessage{}, err
	}
	return PlayerInputBatchMessage{Inputs: inputs}, nil
}

// PlayerStateMessage carries the server's authoritative (or, client-side,
// predicted) StateSnapshot (§3, §4.6 step 6, §4.7).
type PlayerStateMessage struct {
	State physics.StateSnapshot
}

func EncodePlayerState(m PlayerStateMessage) []byte {
	e := wire.NewEncoder(wire.MsgPlayerState)
	encodeStateSnapshot(e, m.State)
	return e.Bytes()
}

func DecodePlayerState(dec *wire.Decoder) (PlayerStateMessage, error) {
	m := PlayerStateMessage{State: decodeStateSnapshot(dec)}
	return m, dec.Err()
}

func encodeStateSnapshot(e *wire.Encoder, s physics.StateSnapshot) {
	e.PutUint32(s.Tick)
	e.PutUint32(s.LastProcessedInput)
	e.PutFloat32(s.Position.X)
	e.PutFloat32(s.Position.Y)
	e.PutFloat32(s.Position.Z)
	e.PutFloat32(s.Velocity.X)
	e.PutFloat32(s.Velocity.Y)
	e.PutFloat32(s.Velocity.Z)
	e.PutFloat32(s.Rotation)
	e.PutUint8(uint8(s.Flags))
}

func decodeStateSnapshot(dec *wire.Decoder) physics.StateSnapshot {
	return physics.StateSnapshot{
		Tick:               dec.Uint32(),
		LastProcessedInput: dec.Uint32(),
		Position:           physics.Vector3{X: dec.Float32(), Y: dec.Float32(), Z: dec.Float32()},
		Velocity:           physics.Vector3{X: dec.Float32(), Y: dec.Float32(), Z: dec.Float32()},
		Rotation:           dec.Float32(),
		Flags:              physics.StateFlags(dec.Uint8()),
	}
}

// MaxWorldSnapshotEntities bounds WorldSnapshotMessage's entity count.
const MaxWorldSnapshotEntities = 512

// WorldSnapshotEntity is one other player's broadcast state.
type WorldSnapshotEntity struct {
	UserID string
	State  physics.StateSnapshot
}

// WorldSnapshotMessage is the transient broadcast of every in-game
// player's state, for the unreliable channel (§4.10). No server in this
// module sends it.
type WorldSnapshotMessage struct {
	Entities []WorldSnapshotEntity
}

func EncodeWorldSnapshot(m WorldSnapshotMessage) []byte {
	e := wire.NewEncoder(wire.MsgWorldSnapshot)
	e.PutUint16(uint16(len(m.Entities)))
	for _, ent := range m.Entities {
		e.PutString(ent.UserID)
		encodeStateSnapshot(e, ent.State)
	}
	return e.Bytes()
}

func DecodeWorldSnapshot(dec *wire.Decoder) (WorldSnapshotMessage, error) {
	count := int(dec.Uint16())
	if count > MaxWorldSnapshotEntities {
		return WorldSnapshotMessage{}, fmt.Errorf("protocol: world snapshot of %d entities exceeds max %d", count, MaxWorldSnapshotEntities)
	}
	entities := make([]WorldSnapshotEntity, 0, count)
	for i := 0; i < count; i++ {
		userID := dec.String()
		state := decodeStateSnapshot(dec)
		entities = append(entities, WorldSnapshotEntity{UserID: userID, State: state})
	}
	if err := dec.Err(); err != nil {
		return WorldSnapshotMessage{}, err
	}
	return WorldSnapshotMessage{Entities: entities}, nil
}

// ChatMessage is a player chat line (§6.3 MessageKind Chat=300).
type ChatMessage struct {
	From string
	Text string
}

func EncodeChatMessage(m ChatMessage) []byte {
	e := wire.NewEncoder(wire.MsgChatMessage)
	e.PutString(m.From)
	e.PutString(m.Text)
	return e.Bytes()
}

func DecodeChatMessage(dec *wire.Decoder) (ChatMessage, error) {
	m := ChatMessage{From: dec.String(), Text: dec.String()}
	return m, dec.Err()
}
