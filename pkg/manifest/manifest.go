// Package manifest assembles the durable ScrollManifest from a fully
// published content record. Build is pure: it reads the content and produces
// the manifest, nothing else.
package manifest

import (
	"fmt"

	"github.com/glyphweave/glyphweave/pkg/types"
)

// Version is written into every manifest built by this package.
const Version = 1

// previewRunes is how much of the original text the manifest carries for
// feed and listing display.
const previewRunes = 200

// Build emits the manifest for a content whose glyphs are all published.
// Any pending or failed glyph is an error: a manifest with holes would make
// reconstruction ambiguous.
func Build(c *types.Content) (*types.ScrollManifest, error) {
	if len(c.Glyphs) == 0 {
		return nil, fmt.Errorf("content %s has no glyphs", c.ContentID)
	}

	chunks := make([]types.ChunkRef, len(c.Glyphs))
	for i, g := range c.Glyphs {
		if g.Status != types.GlyphPublished {
			return nil, fmt.Errorf("glyph %d of content %s is %s, not published", g.Index, c.ContentID, g.Status)
		}
		if g.Index != uint32(i) {
			return nil, fmt.Errorf("glyph at position %d of content %s has index %d", i, c.ContentID, g.Index)
		}
		if g.TxID == "" {
			return nil, fmt.Errorf("published glyph %d of content %s has no transaction id", g.Index, c.ContentID)
		}
		chunks[i] = types.ChunkRef{Index: g.Index, TxID: g.TxID, Digest: g.Digest}
	}

	return &types.ScrollManifest{
		ScrollID:    c.ContentID,
		Title:       c.Title,
		Author:      c.Username,
		AuthorID:    c.AuthorID,
		TotalChunks: uint32(len(chunks)),
		Chunks:      chunks,
		PreviewText: Preview(c.OriginalText),
		CreatedAt:   c.CreatedAt,
		Version:     Version,
	}, nil
}

// Preview returns the first 200 characters of text, with an ellipsis marker
// when truncated. Operates on runes so multi-byte characters survive.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "…"
}
