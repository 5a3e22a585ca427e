package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 26-character Crockford Base32 strings with a millisecond
// timestamp prefix, so listings sort by creation time.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	// Timestamp in first 6 bytes (big-endian 48-bit).
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	// Random in remaining 10 bytes, with a sequence counter in bytes 6-7 so
	// IDs minted within the same millisecond stay unique and ordered.
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeCrockford(b)
}

// encodeCrockford packs the 128 bits into 26 base-32 characters, walking the
// bytes as one continuous bit stream (the leading 2 bits are zero padding).
func encodeCrockford(b [16]byte) string {
	var out [26]byte
	bits := 130 // 26 chars * 5 bits, the input is left-padded by 2 zero bits
	for i := range out {
		bits -= 5
		var v byte
		for j := 0; j < 5; j++ {
			pos := bits + j
			bytePos := (pos - 2) / 8
			bitPos := 7 - (pos-2)%8
			v <<= 1
			if pos >= 2 && b[bytePos]>>bitPos&1 == 1 {
				v |= 1
			}
		}
		out[25-i] = crockford[v]
	}
	return string(out[:])
}
