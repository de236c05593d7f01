package transport

import "github.com/rvult/riftnet/internal/wire"

// EventKind discriminates the four observable transport events (§4.2).
type EventKind uint8

const (
	EventPeerConnected EventKind = iota
	EventPeerDisconnected
	EventPacketReceived
	EventError
)

// Event is one entry drained by ProcessIncoming. Only one of the payload
// fields is populated, depending on Kind.
type Event struct {
	Kind EventKind

	Peer   PeerID
	Addr   string // dotted IP:port, valid on PeerConnected
	Reason string // valid on PeerDisconnected

	Packet *wire.Packet // valid on PacketReceived; caller must return it to the pool

	Err error // valid on Error
}
