package dispatch

import (
	"context"
	"log/slog"

	"github.com/rvult/riftnet/internal/session"
	"github.com/rvult/riftnet/internal/transport"
	"github.com/rvult/riftnet/internal/wire"
)

// ServerHandle is the slice of server functionality a handler needs,
// closed over rather than reached for through a global (§9 "singletons").
// The gameserver package implements it; dispatch never imports gameserver,
// avoiding a cycle.
type ServerHandle interface {
	SendTo(peer transport.PeerID, pkt *wire.Packet, ch wire.Channel) error
	BroadcastToInGame(pkt *wire.Packet, ch wire.Channel)
	BroadcastExcept(except transport.PeerID, pkt *wire.Packet, ch wire.Channel)
	Disconnect(peer transport.PeerID, reason string)
	Pool() *wire.Pool
	CurrentTick() uint32
}

// Context is handed to every handler (§4.4): which peer, its session
// (nil if the registry has none yet), the server-handle, and the tick the
// packet is being processed on.
type Context struct {
	Peer    transport.PeerID
	Session *session.Session
	Server  ServerHandle
	Tick    uint32

	// Ctx is the tick's context, for handlers whose work suspends on I/O
	// (the AuthServer's repository calls); handlers that never touch the
	// repository can ignore it.
	Ctx context.Context
}

// PacketHandler handles one PacketKind. It owns pkt thereafter — it must
// return it to the pool on every exit path (§4.1/§9).
type PacketHandler func(ctx Context, pkt *wire.Packet)

// MessageHandler handles one MessageKind inside a Data packet. dec has
// already consumed the MessageKind tag; the handler reads the remaining
// positional fields.
type MessageHandler func(ctx Context, dec *wire.Decoder)

// Registry is the O(1) tagged dispatch table described in §4.4 and §9:
// a map keyed by PacketKind, with a secondary map keyed by MessageKind for
// packets of kind Data.
type Registry struct {
	packetHandlers  map[wire.PacketKind]PacketHandler
	messageHandlers map[wire.MessageKind]MessageHandler

	unknownPacketCount  uint64
	unknownMessageCount uint64
}

// NewRegistry returns an empty dispatch Registry.
func NewRegistry() *Registry {
	return &Registry{
		packetHandlers:  make(map[wire.PacketKind]PacketHandler),
		messageHandlers: make(map[wire.MessageKind]MessageHandler),
	}
}

// OnPacket registers the handler for a PacketKind.
func (r *Registry) OnPacket(kind wire.PacketKind, h PacketHandler) {
	r.packetHandlers[kind] = h
}

// OnMessage registers the handler for a MessageKind carried inside Data
// packets.
func (r *Registry) OnMessage(kind wire.MessageKind, h MessageHandler) {
	r.messageHandlers[kind] = h
}

// Dispatch routes pkt to its registered handler. Unknown PacketKinds and
// MessageKinds are logged and counted, and the packet is returned to the
// pool — protocol errors never propagate (§7).
func (r *Registry) Dispatch(ctx Context, pkt *wire.Packet) {
	if pkt.Kind == wire.KindData {
		r.dispatchMessage(ctx, pkt)
		return
	}

	h, ok := r.packetHandlers[pkt.Kind]
	if !ok {
		r.unknownPacketCount++
		slog.Warn("dispatch: unknown packet kind", "kind", pkt.Kind, "peer", ctx.Peer)
		ctx.Server.Pool().Put(pkt)
		return
	}
	h(ctx, pkt)
}

func (r *Registry) dispatchMessage(ctx Context, pkt *wire.Packet) {
	dec, kind, err := wire.NewDecoder(pkt.Payload)
	if err != nil {
		slog.Warn("dispatch: malformed data payload", "peer", ctx.Peer, "err", err)
		ctx.Server.Pool().Put(pkt)
		return
	}

	h, ok := r.messageHandlers[kind]
	if !ok {
		r.unknownMessageCount++
		slog.Warn("dispatch: unknown message kind", "kind", kind, "peer", ctx.Peer)
		ctx.Server.Pool().Put(pkt)
		return
	}

	h(ctx, dec)
	ctx.Server.Pool().Put(pkt)
}

// UnknownPacketCount reports how many packets arrived with an
// unregistered PacketKind, for metrics/logging.
func (r *Registry) UnknownPacketCount() uint64 { return r.unknownPacketCount }

// UnknownMessageCount reports how many Data payloads arrived with an
// unregistered MessageKind.
func (r *Registry) UnknownMessageCount() uint64 { return r.unknownMessageCount }
