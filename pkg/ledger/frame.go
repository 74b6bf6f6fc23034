package ledger

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/glyphweave/glyphweave/pkg/types"
)

// Kind is the one-byte frame discriminator leading every payload.
type Kind byte

const (
	// KindGlyph frames one non-anchor glyph: index, digest prefix, data.
	KindGlyph Kind = 0x01
	// KindAnchor frames glyph 0 of a publication. It additionally carries
	// the author, the creation time and the embedded pointer to the
	// author's previous publication, which is what chain walking follows.
	KindAnchor Kind = 0x02
)

// DigestPrefixLen is how many bytes of the glyph digest ride along in the
// frame for inline corruption checks. The manifest holds the full digest.
const DigestPrefixLen = 8

// GlyphFrame is the wire form of glyphs with index >= 1.
type GlyphFrame struct {
	Index        uint32 `cbor:"i"`
	DigestPrefix []byte `cbor:"d"`
	Data         []byte `cbor:"p"`
}

// AnchorFrame is the wire form of glyph 0. PrevTxID is the anchor transaction
// id of the author's previous publication, "" for a first publication.
type AnchorFrame struct {
	AuthorID     string `cbor:"a"`
	Username     string `cbor:"u"`
	CreatedAt    int64  `cbor:"t"` // unix nanoseconds
	TotalCount   uint32 `cbor:"n"`
	PrevTxID     string `cbor:"v,omitempty"`
	DigestPrefix []byte `cbor:"d"`
	Data         []byte `cbor:"p"`
}

// Frame is the decoded form of a payload; exactly one of Glyph and Anchor is
// set, matching Kind.
type Frame struct {
	Kind   Kind
	Glyph  *GlyphFrame
	Anchor *AnchorFrame
}

func (f AnchorFrame) Timestamp() time.Time {
	return time.Unix(0, f.CreatedAt)
}

// EncodeGlyphPayload frames one non-anchor glyph for submission.
func EncodeGlyphPayload(index uint32, digest types.Hash, data []byte) ([]byte, error) {
	frame := GlyphFrame{
		Index:        index,
		DigestPrefix: digest.Bytes()[:DigestPrefixLen],
		Data:         data,
	}
	body, err := cbor.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encoding glyph frame: %w", err)
	}
	return append([]byte{byte(KindGlyph)}, body...), nil
}

// EncodeAnchorPayload frames glyph 0 for submission.
func EncodeAnchorPayload(content *types.Content, digest types.Hash, data []byte) ([]byte, error) {
	frame := AnchorFrame{
		AuthorID:     content.AuthorID,
		Username:     content.Username,
		CreatedAt:    content.CreatedAt.UnixNano(),
		TotalCount:   uint32(len(content.Glyphs)),
		PrevTxID:     content.PreviousChainID,
		DigestPrefix: digest.Bytes()[:DigestPrefixLen],
		Data:         data,
	}
	body, err := cbor.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encoding anchor frame: %w", err)
	}
	return append([]byte{byte(KindAnchor)}, body...), nil
}

// DecodeFrame parses a transaction payload back into its frame.
func DecodeFrame(payload []byte) (Frame, error) {
	if len(payload) < 2 {
		return Frame{}, fmt.Errorf("payload too short: %d bytes", len(payload))
	}

	switch Kind(payload[0]) {
	case KindGlyph:
		var f GlyphFrame
		if err := cbor.Unmarshal(payload[1:], &f); err != nil {
			return Frame{}, fmt.Errorf("decoding glyph frame: %w", err)
		}
		return Frame{Kind: KindGlyph, Glyph: &f}, nil
	case KindAnchor:
		var f AnchorFrame
		if err := cbor.Unmarshal(payload[1:], &f); err != nil {
			return Frame{}, fmt.Errorf("decoding anchor frame: %w", err)
		}
		return Frame{Kind: KindAnchor, Anchor: &f}, nil
	}
	return Frame{}, fmt.Errorf("unknown frame kind 0x%02x", payload[0])
}

// CompressedData returns the compressed glyph bytes carried by the frame,
// whichever kind it is.
func (f Frame) CompressedData() []byte {
	if f.Anchor != nil {
		return f.Anchor.Data
	}
	if f.Glyph != nil {
		return f.Glyph.Data
	}
	return nil
}
