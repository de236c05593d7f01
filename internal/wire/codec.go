package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder builds the positional binary body of a message carried inside a
// KindData packet's Payload (§6.2). The first field written is always the
// MessageKind tag, mirroring the teacher's serverpackets convention of
// leading every outgoing buffer with its opcode.
type Encoder struct {
	buf []byte
}

// NewEncoder starts an encoder for the given message kind.
func NewEncoder(kind MessageKind) *Encoder {
	e := &Encoder{buf: make([]byte, 0, 64)}
	e.PutUint16(uint16(kind))
	return e
}

func (e *Encoder) PutUint8(v uint8)   { e.buf = append(e.buf, v) }
func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint8(1)
	} else {
		e.PutUint8(0)
	}
}

func (e *Encoder) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutInt32(v int32)   { e.PutUint32(uint32(v)) }
func (e *Encoder) PutFloat32(v float32) { e.PutUint32(math.Float32bits(v)) }
func (e *Encoder) PutFloat64(v float64) { e.PutUint64(math.Float64bits(v)) }

// PutString writes a length-prefixed (uint16) UTF-8 string.
func (e *Encoder) PutString(s string) {
	e.PutUint16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

// PutBytes writes a length-prefixed (uint16) raw byte slice.
func (e *Encoder) PutBytes(b []byte) {
	e.PutUint16(uint16(len(b)))
	e.buf = append(e.buf, b...)
}

// Bytes returns the encoded message body.
func (e *Encoder) Bytes() []byte { return e.buf }

// Decoder reads the positional fields written by an Encoder, in order.
// Decoder accumulates the first error encountered; callers should check
// Err once after the final field read, matching the teacher's
// read-then-check pattern in its opcode handlers.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder wraps a KindData payload for field-by-field reading. The
// leading MessageKind tag is consumed and returned separately so dispatch
// can route before the rest of the body is parsed.
func NewDecoder(payload []byte) (*Decoder, MessageKind, error) {
	d := &Decoder{buf: payload}
	kind := d.Uint16()
	if d.err != nil {
		return nil, 0, d.err
	}
	return d, MessageKind(kind), nil
}

func (d *Decoder) fail(need int) bool {
	if d.err != nil {
		return true
	}
	if d.off+need > len(d.buf) {
		d.err = fmt.Errorf("wire: decode past end of buffer (need %d, have %d)", need, len(d.buf)-d.off)
		return true
	}
	return false
}

func (d *Decoder) Uint8() uint8 {
	if d.fail(1) {
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *Decoder) Bool() bool { return d.Uint8() != 0 }

func (d *Decoder) Uint16() uint16 {
	if d.fail(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *Decoder) Uint32() uint32 {
	if d.fail(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *Decoder) Uint64() uint64 {
	if d.fail(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *Decoder) Int32() int32     { return int32(d.Uint32()) }
func (d *Decoder) Float32() float32 { return math.Float32frombits(d.Uint32()) }
func (d *Decoder) Float64() float64 { return math.Float64frombits(d.Uint64()) }

func (d *Decoder) String() string {
	n := int(d.Uint16())
	if d.fail(n) {
		return ""
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += n
	return s
}

func (d *Decoder) Bytes() []byte {
	n := int(d.Uint16())
	if d.fail(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, d.buf[d.off:d.off+n])
	d.off += n
	return b
}

// Err returns the first decode error encountered, if any.
func (d *Decoder) Err() error { return d.err }

// PeekMessageKind reads just the leading MessageKind tag from a Data
// packet's payload without allocating a Decoder, per §4.4's "peeking the
// first field ... without fully deserializing".
func PeekMessageKind(payload []byte) (MessageKind, bool) {
	if len(payload) < 2 {
		return 0, false
	}
	return MessageKind(binary.LittleEndian.Uint16(payload)), true
}
