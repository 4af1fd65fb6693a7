package pasetox

import "encoding/binary"

// pae implements Pre-Authentication Encoding: an unambiguous serialisation
// of an ordered list of byte strings. Both v2 flavours authenticate
// pae(header, ..., footer) rather than raw concatenation, which is what
// binds the footer to the payload and blocks segment-splicing attacks.
func pae(pieces ...[]byte) []byte {
	size := 8
	for _, p := range pieces {
		size += 8 + len(p)
	}

	out := make([]byte, 0, size)
	out = appendLE64(out, uint64(len(pieces)))
	for _, p := range pieces {
		out = appendLE64(out, uint64(len(p)))
		out = append(out, p...)
	}
	return out
}

// appendLE64 encodes n as 8 little-endian bytes with the top bit cleared,
// matching the reference encoding for unsigned counts.
func appendLE64(dst []byte, n uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n&0x7FFFFFFFFFFFFFFF)
	return append(dst, buf[:]...)
}
