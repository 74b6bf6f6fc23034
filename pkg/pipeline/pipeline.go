// Package pipeline orchestrates publishing one content item onto the ledger:
// chunk, compress, hash, then commit glyph by glyph with bounded retries,
// persisting progress after every transition so an interrupted run can be
// resumed exactly where it stopped.
//
// Sequence integrity outranks partial progress: the first glyph that
// exhausts its retries halts the whole run. Out-of-order gaps would make
// manifest reconstruction ambiguous, so later glyphs are never attempted
// past a failed one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glyphweave/glyphweave/pkg/compression"
	"github.com/glyphweave/glyphweave/pkg/integrity"
	"github.com/glyphweave/glyphweave/pkg/ledger"
	"github.com/glyphweave/glyphweave/pkg/types"
)

// ContentStore persists the working content record. Writes happen after
// every glyph transition, before the next glyph is touched; that write-ahead
// discipline is what makes resume correct after a crash.
type ContentStore interface {
	SaveContent(c *types.Content) error
	LoadContent(id types.Hash) (*types.Content, error)
	DeleteContent(id types.Hash) error
}

// ManifestStore persists and retrieves scroll manifests.
type ManifestStore interface {
	SaveManifest(m *types.ScrollManifest) error
	LoadManifest(id types.Hash) (*types.ScrollManifest, error)
}

// HeadIndex is the per-author chain head, consulted before publishing and
// advanced after terminal success.
type HeadIndex interface {
	Head(authorID string) (*types.ChainHeadRecord, error)
	Advance(authorID, username, publicationID string) (*types.ChainHeadRecord, error)
}

type Config struct {
	// MaxPieceBytes bounds each text piece before compression.
	MaxPieceBytes int
	// MaxRetries bounds submission attempts per glyph.
	MaxRetries int
	// BaseRetryDelay scales the backoff between attempts: attempt * base.
	BaseRetryDelay time.Duration
	// InterSubmitDelay paces successful submissions to respect ledger-side
	// rate limits.
	InterSubmitDelay time.Duration
	// SubmitTimeout bounds one submission attempt; retries get attempt
	// multiples of it.
	SubmitTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxPieceBytes <= 0 {
		c.MaxPieceBytes = 450
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = time.Second
	}
	if c.InterSubmitDelay <= 0 {
		c.InterSubmitDelay = time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
}

type Deps struct {
	Codec     *compression.Codec
	Submitter ledger.TransactionSubmitter
	Contents  ContentStore
	Manifests ManifestStore
	Heads     HeadIndex
	Clock     Clock
	Logger    *slog.Logger
}

// Publisher runs publish and resume operations. It owns the registry of
// active runs: at most one pipeline per content id, enforced here, with no
// process-wide state.
type Publisher struct {
	cfg       Config
	codec     *compression.Codec
	submitter ledger.TransactionSubmitter
	contents  ContentStore
	manifests ManifestStore
	heads     HeadIndex
	clock     Clock
	log       *slog.Logger

	mu     sync.Mutex
	active map[types.Hash]*operation
}

type operation struct {
	cancelled atomic.Bool
}

func NewPublisher(cfg Config, deps Deps) (*Publisher, error) {
	cfg.applyDefaults()
	if deps.Codec == nil {
		return nil, fmt.Errorf("pipeline: codec is required")
	}
	if deps.Submitter == nil {
		return nil, fmt.Errorf("pipeline: transaction submitter is required")
	}
	if deps.Contents == nil || deps.Manifests == nil || deps.Heads == nil {
		return nil, fmt.Errorf("pipeline: content, manifest and head stores are required")
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Publisher{
		cfg:       cfg,
		codec:     deps.Codec,
		submitter: deps.Submitter,
		contents:  deps.Contents,
		manifests: deps.Manifests,
		heads:     deps.Heads,
		clock:     deps.Clock,
		log:       deps.Logger,
		active:    make(map[types.Hash]*operation),
	}, nil
}

// Publish runs the full pipeline for new content. The content needs Title,
// OriginalText, AuthorID and Username; everything else is filled in here.
// The returned Result always carries the exact glyph counts and transaction
// ids accumulated, whatever the outcome.
func (p *Publisher) Publish(ctx context.Context, content *types.Content, signer ledger.WalletSigner, onProgress ProgressFunc) (*Result, error) {
	if err := validate(content); err != nil {
		return nil, err
	}

	if content.CreatedAt.IsZero() {
		content.CreatedAt = p.clock.Now()
	}
	if content.ContentID.IsZero() {
		content.ContentID = integrity.ContentIdentity(content.AuthorID, content.Title, content.CreatedAt.UnixNano())
	}

	op, err := p.acquire(content.ContentID)
	if err != nil {
		return nil, err
	}
	defer p.release(content.ContentID)

	return p.run(ctx, op, content, signer, onProgress)
}

// Resume re-enters publishing for a persisted, partially published content.
// Failed glyphs are reset to pending; published glyphs are never resubmitted.
func (p *Publisher) Resume(ctx context.Context, contentID types.Hash, signer ledger.WalletSigner, onProgress ProgressFunc) (*Result, error) {
	op, err := p.acquire(contentID)
	if err != nil {
		return nil, err
	}
	defer p.release(contentID)

	content, err := p.contents.LoadContent(contentID)
	if err != nil {
		return nil, fmt.Errorf("loading content for resume: %w", err)
	}

	for i := range content.Glyphs {
		if content.Glyphs[i].Status == types.GlyphFailed {
			content.Glyphs[i].Status = types.GlyphPending
			content.Glyphs[i].LastError = ""
		}
	}

	return p.run(ctx, op, content, signer, onProgress)
}

// Cancel flags the active pipeline for contentID. The in-flight submission
// is allowed to finish so a transaction that does confirm is never lost;
// no further glyphs are attempted. Persisted state stays for a later resume.
// Returns false when no pipeline is active for the id.
func (p *Publisher) Cancel(contentID types.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	op, ok := p.active[contentID]
	if ok {
		op.cancelled.Store(true)
	}
	return ok
}

// Status reports how far a publication has come, from the persisted record
// or, once fully published, from its manifest.
func (p *Publisher) Status(contentID types.Hash) (*Status, error) {
	p.mu.Lock()
	_, isActive := p.active[contentID]
	p.mu.Unlock()

	content, err := p.contents.LoadContent(contentID)
	if err == nil {
		st := statusFromContent(content)
		st.Active = isActive
		return st, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	m, err := p.manifests.LoadManifest(contentID)
	if err != nil {
		return nil, err
	}

	txIDs := make([]string, len(m.Chunks))
	for i, c := range m.Chunks {
		txIDs[i] = c.TxID
	}
	return &Status{
		ContentID:   contentID,
		Stage:       StageCompleted,
		TotalGlyphs: m.TotalChunks,
		Succeeded:   m.TotalChunks,
		TxIDs:       txIDs,
	}, nil
}

// RebuildManifest retries manifest construction for a content whose glyphs
// all committed but whose finalize step failed. Idempotent: an already
// advanced chain head is not advanced twice.
func (p *Publisher) RebuildManifest(contentID types.Hash) (*types.ScrollManifest, error) {
	if _, err := p.acquire(contentID); err != nil {
		return nil, err
	}
	defer p.release(contentID)

	content, err := p.contents.LoadContent(contentID)
	if err != nil {
		return nil, fmt.Errorf("loading content for manifest rebuild: %w", err)
	}
	return p.finalize(content)
}

func (p *Publisher) acquire(contentID types.Hash) (*operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.active[contentID]; exists {
		return nil, types.ErrPipelineActive
	}
	op := &operation{}
	p.active[contentID] = op
	return op, nil
}

func (p *Publisher) release(contentID types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, contentID)
}

func validate(content *types.Content) error {
	if content.AuthorID == "" {
		return &types.ValidationError{Reason: "missing author id"}
	}
	if strings.TrimSpace(content.Title) == "" {
		return &types.ValidationError{Reason: "missing title"}
	}
	if strings.TrimSpace(content.OriginalText) == "" {
		return &types.ValidationError{Reason: "content text is empty"}
	}
	return nil
}

func statusFromContent(content *types.Content) *Status {
	st := &Status{
		ContentID:   content.ContentID,
		TotalGlyphs: uint32(len(content.Glyphs)),
		TxIDs:       content.TransactionIDs(),
	}
	for _, g := range content.Glyphs {
		switch g.Status {
		case types.GlyphPublished:
			st.Succeeded++
		case types.GlyphFailed:
			st.Failed++
		}
	}
	switch content.Status {
	case types.ContentPublished:
		st.Stage = StageCompletedWithoutManifest
	case types.ContentPartiallyPublished:
		st.Stage = StagePartial
	case types.ContentFailed:
		st.Stage = StageFailed
	default:
		st.Stage = StagePublishing
	}
	return st
}
