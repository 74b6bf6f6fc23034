package types

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the byte length of a Hash: SHA-512 throughout.
const HashSize = 64

type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Equal(other Hash) bool {
	return h == other
}

func (h *Hash) HashFromBytes(b []byte) error {
	if len(b) != HashSize {
		return fmt.Errorf("invalid byte length for Hash: %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// HashFromHex parses the hex form produced by Hash.String.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if err := h.HashFromBytes(b); err != nil {
		return h, err
	}
	return h, nil
}

// GlyphStatus is the lifecycle state of one glyph. Pending and Failed may
// alternate across retries and resumes; Published is terminal.
type GlyphStatus uint8

const (
	GlyphPending GlyphStatus = iota
	GlyphPublished
	GlyphFailed
)

func (s GlyphStatus) String() string {
	switch s {
	case GlyphPending:
		return "Pending"
	case GlyphPublished:
		return "Published"
	case GlyphFailed:
		return "Failed"
	}
	return "Unknown"
}

// ContentStatus is the lifecycle state of a working content record.
type ContentStatus uint8

const (
	ContentDraft ContentStatus = iota
	ContentInProgress
	ContentPartiallyPublished
	// ContentPublished means every glyph committed; the record is deleted
	// once the manifest is stored, so a persisted record in this state marks
	// a publication still waiting for its manifest.
	ContentPublished
	ContentFailed
)

func (s ContentStatus) String() string {
	switch s {
	case ContentDraft:
		return "Draft"
	case ContentInProgress:
		return "InProgress"
	case ContentPartiallyPublished:
		return "PartiallyPublished"
	case ContentPublished:
		return "Published"
	case ContentFailed:
		return "Failed"
	}
	return "Unknown"
}
