package wire

import "sync"

// Pool hands out reset *Packet values and reclaims them on Put, avoiding a
// per-datagram allocation on the hot path (§4.1). Grounded on the teacher's
// BytePool: a thin sync.Pool wrapper with a Get/Put surface callers can't
// misuse by forgetting to reset state.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool whose Packets start with a payload buffer of the
// given capacity.
func NewPool(initialPayloadCap int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &Packet{buf: make([]byte, 0, initialPayloadCap)}
			},
		},
	}
}

// Get rents a zeroed Packet from the pool.
func (p *Pool) Get() *Packet {
	pkt := p.pool.Get().(*Packet)
	pkt.Reset()
	return pkt
}

// Put returns pkt to the pool. Callers must not retain pkt, or any slice
// derived from pkt.Payload, after calling Put.
func (p *Pool) Put(pkt *Packet) {
	pkt.Reset()
	p.pool.Put(pkt)
}
