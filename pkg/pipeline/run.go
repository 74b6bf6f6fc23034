package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glyphweave/glyphweave/pkg/chunker"
	"github.com/glyphweave/glyphweave/pkg/compression"
	"github.com/glyphweave/glyphweave/pkg/integrity"
	"github.com/glyphweave/glyphweave/pkg/ledger"
	"github.com/glyphweave/glyphweave/pkg/manifest"
	"github.com/glyphweave/glyphweave/pkg/types"
)

func (p *Publisher) run(ctx context.Context, op *operation, content *types.Content, signer ledger.WalletSigner, onProgress ProgressFunc) (*Result, error) {
	// All observations go through one event channel, drained by a single
	// goroutine. Orchestration never calls the caller's function directly.
	events := make(chan Progress, 16)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for e := range events {
			if onProgress != nil {
				onProgress(e)
			}
		}
	}()
	defer func() {
		close(events)
		<-consumerDone
	}()
	emit := func(e Progress) { events <- e }

	if len(content.Glyphs) == 0 {
		emit(Progress{Stage: StagePreparing, ContentID: content.ContentID})
		if err := p.prepare(content); err != nil {
			return nil, err
		}
	} else {
		content.Status = types.ContentInProgress
	}

	// Crash-safety checkpoint before any network call.
	if err := p.contents.SaveContent(content); err != nil {
		return nil, err
	}

	if _, err := p.submitter.LatestSequenceToken(ctx); err != nil {
		return p.resultFor(content, StagePartial), fmt.Errorf("ledger preflight failed: %w", err)
	}

	res, err := p.submitGlyphs(ctx, op, content, signer, emit)
	if err != nil || res.Stage != StageCompleted {
		return res, err
	}

	m, ferr := p.finalize(content)
	if ferr != nil {
		res.Stage = StageCompletedWithoutManifest
		res.ManifestErr = ferr
		e := p.progressFor(content, StageCompletedWithoutManifest)
		e.Err = ferr
		emit(e)
		return res, nil
	}

	res.Manifest = m
	emit(p.progressFor(content, StageCompleted))
	return res, nil
}

// prepare populates the glyph sequence: chunk, compress, hash. It also pins
// the author's current chain head as this publication's previous pointer.
func (p *Publisher) prepare(content *types.Content) error {
	pieces, err := chunker.Split(content.OriginalText, p.cfg.MaxPieceBytes)
	if err != nil {
		return &types.ValidationError{Reason: err.Error()}
	}

	head, err := p.heads.Head(content.AuthorID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("reading chain head: %w", err)
	}
	if head != nil {
		content.PreviousChainID = head.LatestPublicationID
	}

	total := uint32(len(pieces))
	content.Glyphs = make([]types.Glyph, 0, total)
	content.Stats = compression.Stats{}
	for i, piece := range pieces {
		raw := []byte(piece)
		compressed, err := p.codec.Compress(raw)
		if err != nil {
			return fmt.Errorf("compressing piece %d: %w", i, err)
		}
		content.Glyphs = append(content.Glyphs, types.Glyph{
			Index:      uint32(i),
			TotalCount: total,
			Compressed: compressed,
			Digest:     integrity.DigestBytes(raw),
			Status:     types.GlyphPending,
		})
		content.Stats = content.Stats.Add(compression.NewStats(len(raw), len(compressed)))
	}

	content.Status = types.ContentInProgress
	p.log.Debug("content prepared",
		"content", content.ContentID.String()[:12],
		"glyphs", total,
		"saved_pct", fmt.Sprintf("%.1f", content.Stats.PercentSaved()),
	)
	return nil
}

// submitGlyphs walks the glyph sequence in index order, skipping already
// published glyphs. Strictly sequential: glyph i+1 is never touched before
// glyph i reached a terminal outcome.
func (p *Publisher) submitGlyphs(ctx context.Context, op *operation, content *types.Content, signer ledger.WalletSigner, emit func(Progress)) (*Result, error) {
	for i := range content.Glyphs {
		g := &content.Glyphs[i]
		if g.Status == types.GlyphPublished {
			continue
		}

		// Cancellation is cooperative and only honored between glyphs,
		// never during an in-flight submission.
		if op.cancelled.Load() {
			content.Status = types.ContentPartiallyPublished
			if err := p.contents.SaveContent(content); err != nil {
				return nil, err
			}
			p.log.Info("pipeline cancelled", "content", content.ContentID.String()[:12], "published", content.PublishedPrefix())
			emit(p.progressFor(content, StagePartial))
			return p.resultFor(content, StagePartial), nil
		}

		txID, serr := p.submitGlyph(ctx, content, g, signer)
		if serr != nil {
			g.Status = types.GlyphFailed
			g.LastError = serr.Error()
			content.Status = types.ContentPartiallyPublished
			if err := p.contents.SaveContent(content); err != nil {
				return nil, err
			}
			e := p.progressFor(content, StagePartial)
			e.Err = serr
			emit(e)
			return p.resultFor(content, StagePartial), &types.PipelineHaltedError{ContentID: content.ContentID, Err: serr}
		}

		g.Status = types.GlyphPublished
		g.TxID = txID
		if err := p.contents.SaveContent(content); err != nil {
			return nil, err
		}
		emit(p.progressFor(content, StagePublishing))

		if p.remainingAfter(content, i) > 0 {
			select {
			case <-ctx.Done():
			case <-p.clock.After(p.cfg.InterSubmitDelay):
			}
		}
	}

	content.Status = types.ContentPublished
	if err := p.contents.SaveContent(content); err != nil {
		return nil, err
	}
	return p.resultFor(content, StageCompleted), nil
}

// submitGlyph tries one glyph up to MaxRetries times. Timeouts grow with the
// attempt number; the backoff between attempts is separate from them.
func (p *Publisher) submitGlyph(ctx context.Context, content *types.Content, g *types.Glyph, signer ledger.WalletSigner) (string, *types.SubmissionError) {
	var payload []byte
	var err error
	if g.Index == 0 {
		payload, err = ledger.EncodeAnchorPayload(content, g.Digest, g.Compressed)
	} else {
		payload, err = ledger.EncodeGlyphPayload(g.Index, g.Digest, g.Compressed)
	}
	if err != nil {
		return "", &types.SubmissionError{GlyphIndex: g.Index, Attempts: 0, Err: err}
	}

	if limit := p.submitter.PayloadLimit(); len(payload) > limit {
		// Permanently oversized; retrying cannot help.
		return "", &types.SubmissionError{
			GlyphIndex: g.Index,
			Attempts:   0,
			Err:        fmt.Errorf("framed payload of %d bytes exceeds ledger limit of %d", len(payload), limit),
		}
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * p.cfg.BaseRetryDelay
			select {
			case <-ctx.Done():
				return "", &types.SubmissionError{GlyphIndex: g.Index, Attempts: attempt - 1, Err: ctx.Err()}
			case <-p.clock.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.SubmitTimeout*time.Duration(attempt))
		txID, err := p.submitter.Submit(attemptCtx, payload, signer)
		if err == nil {
			err = p.submitter.Confirm(attemptCtx, txID)
		}
		cancel()

		if err == nil {
			return txID, nil
		}
		lastErr = err
		p.log.Warn("glyph submission failed",
			"content", content.ContentID.String()[:12],
			"glyph", g.Index,
			"attempt", attempt,
			"error", err,
		)
		if ctx.Err() != nil {
			return "", &types.SubmissionError{GlyphIndex: g.Index, Attempts: attempt, Err: ctx.Err()}
		}
	}
	return "", &types.SubmissionError{GlyphIndex: g.Index, Attempts: p.cfg.MaxRetries, Err: lastErr}
}

// finalize builds and stores the manifest, advances the chain head, and
// removes the working record. Ledger commits are already irreversible at
// this point; any failure here is a ManifestError the caller can retry with
// RebuildManifest.
func (p *Publisher) finalize(content *types.Content) (*types.ScrollManifest, error) {
	m, err := manifest.Build(content)
	if err != nil {
		return nil, &types.ManifestError{ContentID: content.ContentID, Err: err}
	}
	if err := p.manifests.SaveManifest(m); err != nil {
		return nil, &types.ManifestError{ContentID: content.ContentID, Err: err}
	}

	anchor := content.Glyphs[0].TxID
	head, err := p.heads.Head(content.AuthorID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, &types.ManifestError{ContentID: content.ContentID, Err: err}
	}
	if head == nil || head.LatestPublicationID != anchor {
		if _, err := p.heads.Advance(content.AuthorID, content.Username, anchor); err != nil {
			return nil, &types.ManifestError{ContentID: content.ContentID, Err: err}
		}
	}

	if err := p.contents.DeleteContent(content.ContentID); err != nil {
		// Manifest and head are the durable truth now; a stale working
		// record only wastes space.
		p.log.Warn("could not delete working content record", "content", content.ContentID.String()[:12], "error", err)
	}

	p.log.Info("publication finalized",
		"scroll", m.ScrollID.String()[:12],
		"chunks", m.TotalChunks,
		"anchor_tx", anchor,
	)
	return m, nil
}

func (p *Publisher) remainingAfter(content *types.Content, idx int) int {
	remaining := 0
	for _, g := range content.Glyphs[idx+1:] {
		if g.Status != types.GlyphPublished {
			remaining++
		}
	}
	return remaining
}

func (p *Publisher) progressFor(content *types.Content, stage Stage) Progress {
	res := p.resultFor(content, stage)
	return Progress{
		Stage:       stage,
		ContentID:   content.ContentID,
		GlyphsDone:  res.Succeeded + res.Failed,
		TotalGlyphs: res.TotalGlyphs,
		Succeeded:   res.Succeeded,
		Failed:      res.Failed,
		TxIDs:       res.TxIDs,
	}
}

func (p *Publisher) resultFor(content *types.Content, stage Stage) *Result {
	res := &Result{
		ContentID:   content.ContentID,
		Stage:       stage,
		TotalGlyphs: uint32(len(content.Glyphs)),
		TxIDs:       content.TransactionIDs(),
	}
	for _, g := range content.Glyphs {
		switch g.Status {
		case types.GlyphPublished:
			res.Succeeded++
		case types.GlyphFailed:
			res.Failed++
		}
	}
	return res
}
