// Package types holds the shared data model of the glyphweave protocol:
// glyphs, working content, scroll manifests, chain heads and feed posts.
package types

import (
	"time"

	"github.com/glyphweave/glyphweave/pkg/compression"
)

// Glyph is one committed unit of a publication: a bounded-size, compressed,
// hashed piece of content mapped to exactly one ledger transaction.
// A glyph is immutable once Status is GlyphPublished.
type Glyph struct {
	Index      uint32 // position within the publication, contiguous in [0, TotalCount)
	TotalCount uint32 // number of glyphs in the publication
	Compressed []byte // tagged compressed piece bytes, see pkg/compression
	Digest     Hash   // SHA-512 of the uncompressed piece
	Status     GlyphStatus
	TxID       string // set when Status is GlyphPublished
	LastError  string // last submission error, set when Status is GlyphFailed
}

// Content is the author's working aggregate while a publication is being
// prepared, published, or resumed. It is owned exclusively by the publishing
// flow until it reaches a terminal state; Glyphs is append-only and never
// reordered.
type Content struct {
	ContentID    Hash
	Title        string
	OriginalText string
	AuthorID     string
	Username     string

	// PreviousChainID is the chain head observed immediately before this
	// publish started: the anchor transaction id of the author's previous
	// publication, or "" for a first publication.
	PreviousChainID string

	Glyphs    []Glyph
	Stats     compression.Stats
	CreatedAt time.Time
	Status    ContentStatus
}

// PublishedPrefix returns the number of leading glyphs already published.
// Sequential submission guarantees the published set is always such a prefix.
func (c *Content) PublishedPrefix() uint32 {
	var k uint32
	for _, g := range c.Glyphs {
		if g.Status != GlyphPublished {
			break
		}
		k++
	}
	return k
}

// TransactionIDs returns the ids of all published glyphs, in index order.
func (c *Content) TransactionIDs() []string {
	ids := make([]string, 0, len(c.Glyphs))
	for _, g := range c.Glyphs {
		if g.Status == GlyphPublished {
			ids = append(ids, g.TxID)
		}
	}
	return ids
}

// ChunkRef maps one glyph index to its ledger transaction and digest.
type ChunkRef struct {
	Index  uint32
	TxID   string
	Digest Hash
}

// ScrollManifest is the durable published artifact: everything a reader needs
// to reconstruct one publication from the ledger. Created exactly once, when
// the pipeline reaches terminal success; structurally immutable thereafter.
type ScrollManifest struct {
	ScrollID    Hash // equals the ContentID of the publication
	Title       string
	Author      string
	AuthorID    string
	TotalChunks uint32
	Chunks      []ChunkRef // ordered by Index
	PreviewText string
	CreatedAt   time.Time
	Version     uint32
}

// ChainHeadRecord is the per-author pointer to the most recent publication.
// PublicationCount never decreases, and LatestPublicationID always advances
// to the newest publication's anchor transaction.
type ChainHeadRecord struct {
	AuthorID            string
	Username            string
	LatestPublicationID string
	UpdatedAt           time.Time
	PublicationCount    uint64
}

// FeedPost is a read-side projection produced by chain walking. Derived data,
// only ever cached, never the source of truth.
type FeedPost struct {
	ID                    string // anchor transaction id
	TxID                  string
	AuthorID              string
	Author                string
	Content               string
	Timestamp             time.Time
	PreviousPublicationID string
}
