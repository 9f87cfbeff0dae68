package sim

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	headerSize = 16
	// maxPayload matches RIST_MAX_PACKET_SIZE minus protocol overhead.
	maxPayload = 10000

	wireVersion   = 1
	flagSealed    = 0x01
	kdfIterations = 4096
)

var wireMagic = [2]byte{'R', 'S'}

var (
	errShortPacket = errors.New("sim: short packet")
	errBadMagic    = errors.New("sim: bad packet magic")
	errSealed      = errors.New("sim: sealed packet without matching secret")
)

// ntpEpochOffset is the number of seconds between 1900 and 1970.
const ntpEpochOffset = 2208988800

// ntpNow returns the current time as a 64-bit NTP timestamp.
func ntpNow() uint64 {
	now := time.Now()
	secs := uint64(now.Unix()) + ntpEpochOffset
	frac := (uint64(now.Nanosecond()) << 32) / uint64(time.Second)
	return secs<<32 | frac
}

// newSealer derives the payload AEAD for a shared secret.
func newSealer(secret string) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(secret), []byte("rist-sim"), kdfIterations, chacha20poly1305.KeySize, sha256.New)
	return chacha20poly1305.New(key)
}

// encodePacket frames payload as header | [nonce] | body.
func encodePacket(aead cipher.AEAD, flowID uint32, ts uint64, payload []byte) ([]byte, error) {
	hdr := make([]byte, headerSize)
	copy(hdr, wireMagic[:])
	hdr[2] = wireVersion
	binary.BigEndian.PutUint32(hdr[4:8], flowID)
	binary.BigEndian.PutUint64(hdr[8:16], ts)

	if aead == nil {
		return append(hdr, payload...), nil
	}

	hdr[3] |= flagSealed
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := append(hdr, nonce...)
	return aead.Seal(out, nonce, payload, hdr), nil
}

// decodePacket reverses encodePacket. The returned payload is a fresh
// slice owned by the caller.
func decodePacket(aead cipher.AEAD, pkt []byte) (flowID uint32, ts uint64, payload []byte, err error) {
	if len(pkt) < headerSize {
		return 0, 0, nil, errShortPacket
	}
	if pkt[0] != wireMagic[0] || pkt[1] != wireMagic[1] || pkt[2] != wireVersion {
		return 0, 0, nil, errBadMagic
	}
	hdr := pkt[:headerSize]
	flowID = binary.BigEndian.Uint32(hdr[4:8])
	ts = binary.BigEndian.Uint64(hdr[8:16])
	body := pkt[headerSize:]

	sealed := hdr[3]&flagSealed != 0
	if sealed != (aead != nil) {
		return 0, 0, nil, errSealed
	}
	if !sealed {
		return flowID, ts, append([]byte(nil), body...), nil
	}

	ns := aead.NonceSize()
	if len(body) < ns {
		return 0, 0, nil, errShortPacket
	}
	payload, err = aead.Open(nil, body[:ns], body[ns:], hdr)
	if err != nil {
		return 0, 0, nil, err
	}
	return flowID, ts, payload, nil
}
