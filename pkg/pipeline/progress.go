package pipeline

import "github.com/glyphweave/glyphweave/pkg/types"

// Stage is the coarse state of a publishing run.
type Stage uint8

const (
	StagePreparing Stage = iota
	StagePublishing
	StageCompleted
	// StageCompletedWithoutManifest means every glyph committed to the
	// ledger but manifest construction failed afterwards. The ledger side
	// is done and irreversible; only the local manifest needs a retry.
	StageCompletedWithoutManifest
	StagePartial
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePreparing:
		return "preparing"
	case StagePublishing:
		return "publishing"
	case StageCompleted:
		return "completed"
	case StageCompletedWithoutManifest:
		return "completed-without-manifest"
	case StagePartial:
		return "partial"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Progress is one observation of a running pipeline. The pipeline publishes
// these to a single event channel per run; a caller-supplied ProgressFunc
// consumes them in order.
type Progress struct {
	Stage       Stage
	ContentID   types.Hash
	GlyphsDone  uint32 // glyphs with a terminal outcome so far
	TotalGlyphs uint32
	Succeeded   uint32
	Failed      uint32
	TxIDs       []string // accumulated transaction ids, index order
	Err         error    // set on failure observations
}

// ProgressFunc receives progress events. It is called from a single
// goroutine per run, strictly in event order. A nil ProgressFunc is allowed.
type ProgressFunc func(Progress)

// Result is the terminal outcome of a publish or resume run.
type Result struct {
	ContentID   types.Hash
	Stage       Stage
	TotalGlyphs uint32
	Succeeded   uint32
	Failed      uint32
	TxIDs       []string

	// Manifest is set when the run completed and the manifest was built.
	Manifest *types.ScrollManifest
	// ManifestErr is set when Stage is StageCompletedWithoutManifest.
	ManifestErr error
}

// Status is a point-in-time view of a publication, answering "how far did
// this get" for both active and interrupted pipelines.
type Status struct {
	ContentID   types.Hash
	Active      bool
	Stage       Stage
	TotalGlyphs uint32
	Succeeded   uint32
	Failed      uint32
	TxIDs       []string
}
