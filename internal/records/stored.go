package records

import (
	"fmt"
	"time"

	"github.com/glyphweave/glyphweave/pkg/compression"
	"github.com/glyphweave/glyphweave/pkg/types"
)

// Stored record shapes. Glyph records historically existed in two forms: the
// current flat form with the transaction id inline, and an older wrapped form
// where the piece lived under a "chunk" key next to the transaction id. Both
// decode here and normalize to the flat form; nothing outside this package
// sees the wrapped shape.

type storedChunk struct {
	Index      uint32 `cbor:"index"`
	TotalCount uint32 `cbor:"totalCount,omitempty"`
	Compressed []byte `cbor:"compressed,omitempty"`
	Digest     []byte `cbor:"digest,omitempty"`
	Status     uint8  `cbor:"status,omitempty"`
	LastError  string `cbor:"lastError,omitempty"`
}

type storedGlyph struct {
	Index      uint32 `cbor:"index,omitempty"`
	TotalCount uint32 `cbor:"totalCount,omitempty"`
	Compressed []byte `cbor:"compressed,omitempty"`
	Digest     []byte `cbor:"digest,omitempty"`
	Status     uint8  `cbor:"status,omitempty"`
	LastError  string `cbor:"lastError,omitempty"`
	TxID       string `cbor:"transactionId,omitempty"`

	// Chunk is the legacy wrapped shape: {chunk: {...}, transactionId}.
	Chunk *storedChunk `cbor:"chunk,omitempty"`
}

func (g storedGlyph) normalize() (types.Glyph, error) {
	src := storedChunk{
		Index:      g.Index,
		TotalCount: g.TotalCount,
		Compressed: g.Compressed,
		Digest:     g.Digest,
		Status:     g.Status,
		LastError:  g.LastError,
	}
	if g.Chunk != nil {
		src = *g.Chunk
	}

	var digest types.Hash
	if len(src.Digest) > 0 {
		if len(src.Digest) != types.HashSize {
			return types.Glyph{}, fmt.Errorf("glyph %d has digest of %d bytes, want %d", src.Index, len(src.Digest), types.HashSize)
		}
		copy(digest[:], src.Digest)
	}

	return types.Glyph{
		Index:      src.Index,
		TotalCount: src.TotalCount,
		Compressed: src.Compressed,
		Digest:     digest,
		Status:     types.GlyphStatus(src.Status),
		TxID:       g.TxID,
		LastError:  src.LastError,
	}, nil
}

func glyphToStored(g types.Glyph) storedGlyph {
	return storedGlyph{
		Index:      g.Index,
		TotalCount: g.TotalCount,
		Compressed: g.Compressed,
		Digest:     g.Digest.Bytes(),
		Status:     uint8(g.Status),
		LastError:  g.LastError,
		TxID:       g.TxID,
	}
}

type storedStats struct {
	OriginalSize   int64 `cbor:"originalSize,omitempty"`
	CompressedSize int64 `cbor:"compressedSize,omitempty"`
}

type storedContent struct {
	ContentID       []byte        `cbor:"contentId"`
	Title           string        `cbor:"title"`
	OriginalText    string        `cbor:"originalText"`
	AuthorID        string        `cbor:"authorId"`
	Username        string        `cbor:"username,omitempty"`
	PreviousChainID string        `cbor:"previousChainId,omitempty"`
	Glyphs          []storedGlyph `cbor:"glyphs"`
	Stats           storedStats   `cbor:"stats,omitempty"`
	CreatedAt       int64         `cbor:"createdAt"`
	Status          uint8         `cbor:"status"`
}

func contentToStored(c *types.Content) storedContent {
	glyphs := make([]storedGlyph, len(c.Glyphs))
	for i, g := range c.Glyphs {
		glyphs[i] = glyphToStored(g)
	}
	return storedContent{
		ContentID:       c.ContentID.Bytes(),
		Title:           c.Title,
		OriginalText:    c.OriginalText,
		AuthorID:        c.AuthorID,
		Username:        c.Username,
		PreviousChainID: c.PreviousChainID,
		Glyphs:          glyphs,
		Stats:           storedStats{OriginalSize: c.Stats.OriginalSize, CompressedSize: c.Stats.CompressedSize},
		CreatedAt:       c.CreatedAt.UnixNano(),
		Status:          uint8(c.Status),
	}
}

func (rec storedContent) normalize() (*types.Content, error) {
	var id types.Hash
	if len(rec.ContentID) != types.HashSize {
		return nil, fmt.Errorf("content record has id of %d bytes, want %d", len(rec.ContentID), types.HashSize)
	}
	copy(id[:], rec.ContentID)

	glyphs := make([]types.Glyph, len(rec.Glyphs))
	for i, g := range rec.Glyphs {
		glyph, err := g.normalize()
		if err != nil {
			return nil, err
		}
		glyphs[i] = glyph
	}

	return &types.Content{
		ContentID:       id,
		Title:           rec.Title,
		OriginalText:    rec.OriginalText,
		AuthorID:        rec.AuthorID,
		Username:        rec.Username,
		PreviousChainID: rec.PreviousChainID,
		Glyphs:          glyphs,
		Stats:           compression.Stats{OriginalSize: rec.Stats.OriginalSize, CompressedSize: rec.Stats.CompressedSize},
		CreatedAt:       time.Unix(0, rec.CreatedAt),
		Status:          types.ContentStatus(rec.Status),
	}, nil
}

type storedManifest struct {
	ScrollID    []byte        `cbor:"scrollId"`
	Title       string        `cbor:"title"`
	Author      string        `cbor:"author"`
	AuthorID    string        `cbor:"authorId"`
	TotalChunks uint32        `cbor:"totalChunks"`
	Chunks      []storedGlyph `cbor:"chunks"`
	PreviewText string        `cbor:"previewText"`
	CreatedAt   int64         `cbor:"createdAt"`
	Version     uint32        `cbor:"version"`
}

func manifestToStored(m *types.ScrollManifest) storedManifest {
	chunks := make([]storedGlyph, len(m.Chunks))
	for i, c := range m.Chunks {
		chunks[i] = storedGlyph{
			Index:  c.Index,
			Digest: c.Digest.Bytes(),
			TxID:   c.TxID,
		}
	}
	return storedManifest{
		ScrollID:    m.ScrollID.Bytes(),
		Title:       m.Title,
		Author:      m.Author,
		AuthorID:    m.AuthorID,
		TotalChunks: m.TotalChunks,
		Chunks:      chunks,
		PreviewText: m.PreviewText,
		CreatedAt:   m.CreatedAt.UnixNano(),
		Version:     m.Version,
	}
}

func (rec storedManifest) normalize() (*types.ScrollManifest, error) {
	var id types.Hash
	if len(rec.ScrollID) != types.HashSize {
		return nil, fmt.Errorf("manifest record has id of %d bytes, want %d", len(rec.ScrollID), types.HashSize)
	}
	copy(id[:], rec.ScrollID)

	chunks := make([]types.ChunkRef, len(rec.Chunks))
	for i, c := range rec.Chunks {
		glyph, err := c.normalize()
		if err != nil {
			return nil, err
		}
		chunks[i] = types.ChunkRef{Index: glyph.Index, TxID: glyph.TxID, Digest: glyph.Digest}
	}

	return &types.ScrollManifest{
		ScrollID:    id,
		Title:       rec.Title,
		Author:      rec.Author,
		AuthorID:    rec.AuthorID,
		TotalChunks: rec.TotalChunks,
		Chunks:      chunks,
		PreviewText: rec.PreviewText,
		CreatedAt:   time.Unix(0, rec.CreatedAt),
		Version:     rec.Version,
	}, nil
}

type storedChainHead struct {
	AuthorID            string `cbor:"authorId"`
	Username            string `cbor:"username,omitempty"`
	LatestPublicationID string `cbor:"latestPublicationId"`
	UpdatedAt           int64  `cbor:"updatedAt"`
	PublicationCount    uint64 `cbor:"publicationCount"`
}

func headToStored(r *types.ChainHeadRecord) storedChainHead {
	return storedChainHead{
		AuthorID:            r.AuthorID,
		Username:            r.Username,
		LatestPublicationID: r.LatestPublicationID,
		UpdatedAt:           r.UpdatedAt.UnixNano(),
		PublicationCount:    r.PublicationCount,
	}
}

func (rec storedChainHead) normalize() *types.ChainHeadRecord {
	return &types.ChainHeadRecord{
		AuthorID:            rec.AuthorID,
		Username:            rec.Username,
		LatestPublicationID: rec.LatestPublicationID,
		UpdatedAt:           time.Unix(0, rec.UpdatedAt),
		PublicationCount:    rec.PublicationCount,
	}
}
