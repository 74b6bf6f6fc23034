package types

import (
	"errors"
	"fmt"
)

var (
	// ErrPipelineActive is returned when a publish or resume is requested for
	// a content id that already has a running pipeline. The second call is
	// rejected, not queued.
	ErrPipelineActive = errors.New("glyphweave: a pipeline is already active for this content")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("glyphweave: record not found")
)

// ValidationError rejects content before any persistence or network activity.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// SubmissionError is a network or ledger rejection for one glyph. The
// pipeline absorbs these up to the retry bound; the final one is wrapped in a
// PipelineHaltedError.
type SubmissionError struct {
	GlyphIndex uint32
	Attempts   int
	Err        error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("glyph %d failed after %d attempts: %v", e.GlyphIndex, e.Attempts, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PipelineHaltedError means a glyph exhausted its retries and the pipeline
// stopped before attempting any later glyph, keeping the published set a
// contiguous prefix.
type PipelineHaltedError struct {
	ContentID Hash
	Err       *SubmissionError
}

func (e *PipelineHaltedError) Error() string {
	return fmt.Sprintf("pipeline halted for %s: %v", e.ContentID, e.Err)
}

func (e *PipelineHaltedError) Unwrap() error { return e.Err }

// ManifestError means all glyphs committed to the ledger but the manifest
// could not be assembled or stored. The ledger commits are irreversible, so
// this is surfaced as a distinct recoverable condition: manifest construction
// can be retried without re-publishing anything.
type ManifestError struct {
	ContentID Hash
	Err       error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest construction failed for %s: %v", e.ContentID, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ChainReadError means one author's publication chain could not be walked.
// Feed building isolates these per author; they never abort the whole build.
type ChainReadError struct {
	AuthorID string
	TxID     string
	Err      error
}

func (e *ChainReadError) Error() string {
	return fmt.Sprintf("chain read failed for author %s at tx %q: %v", e.AuthorID, e.TxID, e.Err)
}

func (e *ChainReadError) Unwrap() error { return e.Err }

// StorageError means the persistence layer failed. Fatal for the current
// operation: in-memory state is never advanced past a failed write.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
