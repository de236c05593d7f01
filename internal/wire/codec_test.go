package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncoderDecoderRoundTrip(t *testing.T) {
	enc := NewEncoder(MsgPlayerInput)
	enc.PutUint32(7)
	enc.PutFloat32(1.5)
	enc.PutString("forward")
	enc.PutBool(true)
	enc.PutBytes([]byte{9, 8, 7})

	dec, kind, err := NewDecoder(enc.Bytes())
	require.NoError(t, err)
	require.Equal(t, MsgPlayerInput, kind)

	require.Equal(t, uint32(7), dec.Uint32())
	require.Equal(t, float32(1.5), dec.Float32())
	require.Equal(t, "forward", dec.String())
	require.True(t, dec.Bool())
	require.Equal(t, []byte{9, 8, 7}, dec.Bytes())
	require.NoError(t, dec.Err())
}

func TestDecoderReportsTruncatedBuffer(t *testing.T) {
	enc := NewEncoder(MsgPing)
	dec, _, err := NewDecoder(enc.Bytes())
	require.NoError(t, err)

	_ = dec.Uint32() // nothing left to read
	require.Error(t, dec.Err())
}

func TestDecoderOnUnknownKindStillParses(t *testing.T) {
	enc := &Encoder{}
	enc.PutUint16(0xBEEF)
	enc.PutUint8(1)

	dec, kind, err := NewDecoder(enc.Bytes())
	require.NoError(t, err)
	require.Equal(t, MessageKind(0xBEEF), kind)
	require.Equal(t, uint8(1), dec.Uint8())
}
