package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashHexRoundTrip(t *testing.T) {
	var h Hash
	for i := range h {
		h[i] = byte(i)
	}

	parsed, err := HashFromHex(h.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(h))
}

func TestHashFromHexRejectsBadInput(t *testing.T) {
	_, err := HashFromHex("not hex")
	assert.Error(t, err)

	_, err = HashFromHex("abcd")
	assert.Error(t, err, "a short hash must be rejected")
}

func TestHashIsZero(t *testing.T) {
	var zero Hash
	assert.True(t, zero.IsZero())

	zero[0] = 1
	assert.False(t, zero.IsZero())
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "Pending", GlyphPending.String())
	assert.Equal(t, "Published", GlyphPublished.String())
	assert.Equal(t, "Failed", GlyphFailed.String())
	assert.Equal(t, "Unknown", GlyphStatus(99).String())

	assert.Equal(t, "Draft", ContentDraft.String())
	assert.Equal(t, "InProgress", ContentInProgress.String())
	assert.Equal(t, "PartiallyPublished", ContentPartiallyPublished.String())
	assert.Equal(t, "Published", ContentPublished.String())
	assert.Equal(t, "Failed", ContentFailed.String())
	assert.Equal(t, "Unknown", ContentStatus(99).String())
}

func TestPublishedPrefix(t *testing.T) {
	c := &Content{Glyphs: []Glyph{
		{Index: 0, Status: GlyphPublished, TxID: "tx-0"},
		{Index: 1, Status: GlyphPublished, TxID: "tx-1"},
		{Index: 2, Status: GlyphFailed},
		{Index: 3, Status: GlyphPending},
	}}

	assert.Equal(t, uint32(2), c.PublishedPrefix())
	assert.Equal(t, []string{"tx-0", "tx-1"}, c.TransactionIDs())
}

func TestPublishedPrefixStopsAtGap(t *testing.T) {
	// A published glyph after a gap must not count toward the prefix.
	c := &Content{Glyphs: []Glyph{
		{Index: 0, Status: GlyphPublished, TxID: "tx-0"},
		{Index: 1, Status: GlyphPending},
		{Index: 2, Status: GlyphPublished, TxID: "tx-2"},
	}}

	assert.Equal(t, uint32(1), c.PublishedPrefix())
}

func TestScrollManifestMarshalJSON(t *testing.T) {
	var id Hash
	id[0] = 0xab

	m := ScrollManifest{
		ScrollID:    id,
		Title:       "A Scroll",
		TotalChunks: 1,
		Chunks:      []ChunkRef{{Index: 0, TxID: "tx-0"}},
	}

	data, err := m.MarshalJSON()
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.Contains(out, `"title": "A Scroll"`))
	assert.True(t, strings.Contains(out, id.String()))
	assert.True(t, strings.Contains(out, "tx-0"))
}
