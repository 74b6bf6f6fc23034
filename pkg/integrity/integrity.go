// Package integrity produces the digests and identifiers that tie glyphs,
// publications and chain links together. SHA-512 throughout: corruption
// detection needs nothing stronger, but chain linking rules out anything
// weaker than a real hash.
package integrity

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"

	"github.com/glyphweave/glyphweave/pkg/types"
)

// DigestBytes returns the SHA-512 digest of b.
func DigestBytes(b []byte) types.Hash {
	return types.Hash(sha512.Sum512(b))
}

// DigestString returns the SHA-512 digest of the UTF-8 bytes of s.
func DigestString(s string) types.Hash {
	return DigestBytes([]byte(s))
}

// ContentIdentity derives the stable id of a publication from its author,
// title and creation time. Deterministic: the same inputs always yield the
// same id, which doubles as the ScrollID of the manifest.
func ContentIdentity(authorID, title string, createdAt int64) types.Hash {
	var buffer bytes.Buffer

	buffer.WriteString(authorID)
	buffer.WriteByte(0)
	buffer.WriteString(title)
	buffer.WriteByte(0)

	tsBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(tsBytes, uint64(createdAt))
	buffer.Write(tsBytes)

	return types.Hash(sha512.Sum512(buffer.Bytes()))
}
