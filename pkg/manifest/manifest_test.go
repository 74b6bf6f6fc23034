package manifest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphweave/glyphweave/pkg/integrity"
	"github.com/glyphweave/glyphweave/pkg/types"
)

func publishedContent(glyphs int) *types.Content {
	c := &types.Content{
		ContentID:    integrity.DigestString("manifest-test"),
		Title:        "A Scroll",
		OriginalText: "The original text of the scroll.",
		AuthorID:     "author-1",
		Username:     "scribe",
		CreatedAt:    time.Unix(0, 1700000000000000000),
	}
	for i := 0; i < glyphs; i++ {
		c.Glyphs = append(c.Glyphs, types.Glyph{
			Index:      uint32(i),
			TotalCount: uint32(glyphs),
			Digest:     integrity.DigestString(string(rune('a' + i))),
			Status:     types.GlyphPublished,
			TxID:       "tx-" + string(rune('0'+i)),
		})
	}
	return c
}

func TestBuild(t *testing.T) {
	c := publishedContent(3)

	m, err := Build(c)
	require.NoError(t, err)

	assert.Equal(t, c.ContentID, m.ScrollID)
	assert.Equal(t, c.Title, m.Title)
	assert.Equal(t, c.Username, m.Author)
	assert.Equal(t, c.AuthorID, m.AuthorID)
	assert.Equal(t, uint32(3), m.TotalChunks)
	assert.Equal(t, uint32(Version), m.Version)
	assert.True(t, m.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.OriginalText, m.PreviewText)

	require.Len(t, m.Chunks, 3)
	for i, chunk := range m.Chunks {
		assert.Equal(t, uint32(i), chunk.Index)
		assert.Equal(t, c.Glyphs[i].TxID, chunk.TxID)
		assert.True(t, chunk.Digest.Equal(c.Glyphs[i].Digest))
	}
}

func TestBuildRejectsEmptyContent(t *testing.T) {
	_, err := Build(&types.Content{})
	assert.Error(t, err)
}

func TestBuildRejectsUnpublishedGlyph(t *testing.T) {
	c := publishedContent(3)
	c.Glyphs[1].Status = types.GlyphPending

	_, err := Build(c)
	assert.Error(t, err)
}

func TestBuildRejectsIndexGap(t *testing.T) {
	c := publishedContent(3)
	c.Glyphs[2].Index = 5

	_, err := Build(c)
	assert.Error(t, err)
}

func TestBuildRejectsMissingTransactionID(t *testing.T) {
	c := publishedContent(2)
	c.Glyphs[1].TxID = ""

	_, err := Build(c)
	assert.Error(t, err)
}

func TestPreviewShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "short text", Preview("short text"))
}

func TestPreviewTruncatesOnRunes(t *testing.T) {
	text := strings.Repeat("日", 250)

	preview := Preview(text)
	runes := []rune(preview)
	require.Len(t, runes, 201)
	assert.Equal(t, '…', runes[200])
	assert.Equal(t, strings.Repeat("日", 200), string(runes[:200]))
}
