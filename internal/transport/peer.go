package transport

import (
	"net"
	"sync"
	"time"

	"github.com/rvult/riftnet/internal/wire"
)

// PeerID identifies one connected endpoint for the lifetime of its
// connection. Assigned by the transport on first handshake.
type PeerID uint64

// pendingReliable is one not-yet-acknowledged reliable send awaiting retry.
type pendingReliable struct {
	seq      uint16
	data     []byte
	sentAt   time.Time
	attempts int
}

// peer tracks the per-connection bookkeeping the transport needs to run the
// three channels (§4.2): outgoing sequence counters, the reliable
// retransmit queue, and the highest sequenced-channel sequence seen so
// later arrivals can drop anything older.
type peer struct {
	id   PeerID
	addr *net.UDPAddr

	mu sync.Mutex

	outSeq struct {
		reliable   uint16
		unreliable uint16
		sequenced  uint16
	}
	lastSequencedSeqSeen uint16
	haveSequencedSeen    bool

	pendingReliable []*pendingReliable

	lastActivity time.Time
}

func newPeer(id PeerID, addr *net.UDPAddr) *peer {
	return &peer{id: id, addr: addr, lastActivity: time.Now()}
}

func (p *peer) touch() {
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()
}

func (p *peer) idleSince() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastActivity)
}

// acceptsSequenced reports whether seq is newer than the last sequenced
// packet delivered to the application, dropping stale out-of-order arrivals
// per the "sequenced" channel's drop-older contract (§4.2).
func (p *peer) acceptsSequenced(seq uint16) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.haveSequencedSeen || wire.IsSequenceNewer(seq, p.lastSequencedSeqSeen) {
		p.lastSequencedSeqSeen = seq
		p.haveSequencedSeen = true
		return true
	}
	return false
}

func (p *peer) nextSeq(ch wire.Channel) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ch {
	case wire.ChannelReliable:
		p.outSeq.reliable++
		return p.outSeq.reliable
	case wire.ChannelSequenced:
		p.outSeq.sequenced++
		return p.outSeq.sequenced
	default:
		p.outSeq.unreliable++
		return p.outSeq.unreliable
	}
}

func (p *peer) trackReliable(seq uint16, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	p.pendingReliable = append(p.pendingReliable, &pendingReliable{seq: seq, data: buf, sentAt: time.Now()})
}

// ackReliable drops pending sends covered by the peer's latest ack/ack-bits.
func (p *peer) ackReliable(ack uint16, ackBits uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.pendingReliable[:0]
	for _, pr := range p.pendingReliable {
		if wire.IsAcked(pr.seq, ack, ackBits) {
			continue
		}
		kept = append(kept, pr)
	}
	p.pendingReliable = kept
}

func (p *peer) dueForRetry(after time.Duration, maxAttempts int) ([]*pendingReliable, []*pendingReliable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var due []*pendingReliable
	var dead []*pendingReliable
	now := time.Now()
	for _, pr := range p.pendingReliable {
		if pr.attempts >= maxAttempts {
			dead = append(dead, pr)
			continue
		}
		if now.Sub(pr.sentAt) >= after {
			pr.sentAt = now
			pr.attempts++
			due = append(due, pr)
		}
	}
	return due, dead
}
