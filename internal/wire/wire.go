// Package wire frames memo entries stored in a provider. The envelope embeds
// the artifact's content key so a read can be validated against the key it
// was looked up under before the (pluggable) codec ever runs; anything that
// fails validation is treated as corrupt and self-healed by the caller.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

// ErrCorrupt marks bytes that do not decode as a well-formed entry.
var ErrCorrupt = errors.New("arrowbridge: corrupt memo entry")

var magic4 = [...]byte{'A', 'B', 'R', 'G'}

const maxKeyLen = 0xFFFF

// EncodeEntry frames a codec payload together with its content key.
//
// Layout: magic(4) | ver(1) | klen(u16 be) | key(klen) | vlen(u32 be) | payload(vlen)
func EncodeEntry(contentKey string, payload []byte) ([]byte, error) {
	if l := len(contentKey); l == 0 || l > maxKeyLen {
		return nil, errors.New("arrowbridge: invalid content key length")
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 2 + len(contentKey) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u2 [2]byte
	var u4 [4]byte

	binary.BigEndian.PutUint16(u2[:], uint16(len(contentKey)))
	buf.Write(u2[:])
	buf.WriteString(contentKey)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])
	buf.Write(payload)

	return buf.Bytes(), nil
}

// DecodeEntry validates the framing and returns the embedded content key and
// payload. Trailing bytes are rejected.
func DecodeEntry(b []byte) (contentKey string, payload []byte, err error) {
	const hdr = 4 + 1 + 2
	if len(b) < hdr || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return "", nil, ErrCorrupt
	}
	off := 5

	klen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if klen == 0 || klen > len(b)-off {
		return "", nil, ErrCorrupt
	}
	keyBytes := b[off : off+klen]
	off += klen

	if off+4 > len(b) {
		return "", nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen > len(b)-off {
		return "", nil, ErrCorrupt
	}
	if off+vlen != len(b) {
		return "", nil, ErrCorrupt // strict framing: no trailing bytes
	}

	return string(keyBytes), b[off : off+vlen], nil
}
