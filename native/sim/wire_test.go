package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketFraming(t *testing.T) {
	pkt, err := encodePacket(nil, 9, 1234, []byte("payload"))
	require.NoError(t, err)
	assert.Len(t, pkt, headerSize+len("payload"))

	flowID, ts, payload, err := decodePacket(nil, pkt)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), flowID)
	assert.Equal(t, uint64(1234), ts)
	assert.Equal(t, []byte("payload"), payload)

	// The payload must not alias the packet buffer.
	pkt[headerSize] = 'X'
	assert.Equal(t, byte('p'), payload[0])
}

func TestPacketRejects(t *testing.T) {
	aead, err := newSealer("s3cret")
	require.NoError(t, err)
	other, err := newSealer("different")
	require.NoError(t, err)

	plain, err := encodePacket(nil, 1, 1, []byte("x"))
	require.NoError(t, err)
	sealed, err := encodePacket(aead, 1, 1, []byte("x"))
	require.NoError(t, err)

	_, _, _, err = decodePacket(nil, plain[:4])
	assert.ErrorIs(t, err, errShortPacket)

	bad := append([]byte(nil), plain...)
	bad[0] = 'Z'
	_, _, _, err = decodePacket(nil, bad)
	assert.ErrorIs(t, err, errBadMagic)

	_, _, _, err = decodePacket(aead, plain)
	assert.ErrorIs(t, err, errSealed)
	_, _, _, err = decodePacket(nil, sealed)
	assert.ErrorIs(t, err, errSealed)

	_, _, _, err = decodePacket(other, sealed)
	assert.Error(t, err)

	_, _, payload, err := decodePacket(aead, sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), payload)
}
