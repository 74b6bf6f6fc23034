package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphweave/glyphweave/pkg/integrity"
	"github.com/glyphweave/glyphweave/pkg/types"
)

func TestGlyphFrameRoundTrip(t *testing.T) {
	digest := integrity.DigestString("piece three")
	data := []byte{0x78, 0x01, 0x02, 0x03}

	payload, err := EncodeGlyphPayload(3, digest, data)
	require.NoError(t, err)
	assert.Equal(t, byte(KindGlyph), payload[0])

	frame, err := DecodeFrame(payload)
	require.NoError(t, err)
	require.Equal(t, KindGlyph, frame.Kind)
	require.NotNil(t, frame.Glyph)
	assert.Nil(t, frame.Anchor)

	assert.Equal(t, uint32(3), frame.Glyph.Index)
	assert.Equal(t, digest.Bytes()[:DigestPrefixLen], frame.Glyph.DigestPrefix)
	assert.Equal(t, data, frame.Glyph.Data)
	assert.Equal(t, data, frame.CompressedData())
}

func TestAnchorFrameRoundTrip(t *testing.T) {
	created := time.Unix(0, 1700000000123456789)
	content := &types.Content{
		AuthorID:        "author-1",
		Username:        "scribe",
		PreviousChainID: "anchor-tx-prev",
		CreatedAt:       created,
		Glyphs:          make([]types.Glyph, 4),
	}
	digest := integrity.DigestString("piece zero")
	data := []byte{0x78, 0xaa, 0xbb}

	payload, err := EncodeAnchorPayload(content, digest, data)
	require.NoError(t, err)
	assert.Equal(t, byte(KindAnchor), payload[0])

	frame, err := DecodeFrame(payload)
	require.NoError(t, err)
	require.Equal(t, KindAnchor, frame.Kind)
	require.NotNil(t, frame.Anchor)
	assert.Nil(t, frame.Glyph)

	anchor := frame.Anchor
	assert.Equal(t, "author-1", anchor.AuthorID)
	assert.Equal(t, "scribe", anchor.Username)
	assert.Equal(t, uint32(4), anchor.TotalCount)
	assert.Equal(t, "anchor-tx-prev", anchor.PrevTxID)
	assert.Equal(t, digest.Bytes()[:DigestPrefixLen], anchor.DigestPrefix)
	assert.Equal(t, data, anchor.Data)
	assert.True(t, anchor.Timestamp().Equal(created))
	assert.Equal(t, data, frame.CompressedData())
}

func TestAnchorFrameFirstPublication(t *testing.T) {
	content := &types.Content{
		AuthorID:  "author-1",
		CreatedAt: time.Unix(0, 1700000000000000000),
		Glyphs:    make([]types.Glyph, 1),
	}

	payload, err := EncodeAnchorPayload(content, integrity.DigestString("x"), []byte{0x78})
	require.NoError(t, err)

	frame, err := DecodeFrame(payload)
	require.NoError(t, err)
	assert.Empty(t, frame.Anchor.PrevTxID)
}

func TestDecodeFrameRejectsBadInput(t *testing.T) {
	_, err := DecodeFrame(nil)
	assert.Error(t, err)

	_, err = DecodeFrame([]byte{byte(KindGlyph)})
	assert.Error(t, err)

	_, err = DecodeFrame([]byte{0x7f, 0x01, 0x02})
	assert.Error(t, err, "unknown frame kinds must be rejected")
}
