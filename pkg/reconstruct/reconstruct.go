// Package reconstruct reassembles a published scroll from the ledger:
// fetch the glyph transactions in index order, decompress, verify digests,
// and emit the growing text piece by piece so readers see content while the
// rest is still loading.
package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/glyphweave/glyphweave/pkg/compression"
	"github.com/glyphweave/glyphweave/pkg/integrity"
	"github.com/glyphweave/glyphweave/pkg/ledger"
	"github.com/glyphweave/glyphweave/pkg/types"
)

var (
	// ErrLoadInProgress is returned when a scroll is already being loaded.
	ErrLoadInProgress = errors.New("reconstruct: a load is already in progress for this scroll")
	// ErrCancelled is returned when a load was cancelled; partial buffers
	// are discarded.
	ErrCancelled = errors.New("reconstruct: load cancelled")
)

// Callbacks receive the progressive output of a load. All callbacks fire
// from the loading goroutine, strictly in chunk index order. Any of them may
// be nil.
type Callbacks struct {
	// OnChunk fires after each chunk is appended, with the text assembled
	// so far and whether the scroll is complete.
	OnChunk func(index uint32, assembled string, done bool)
	// OnProgress fires alongside OnChunk.
	OnProgress func(loaded, total uint32, percent float64)
	// OnError fires once if the load fails.
	OnError func(err error)
}

// Loader reconstructs scrolls. Completed reconstructions are cached by
// scroll id, so repeat views never touch the ledger.
type Loader struct {
	reader ledger.TransactionReader
	codec  *compression.Codec
	cache  *lru.Cache[types.Hash, string]
	log    *slog.Logger

	mu     sync.Mutex
	active map[types.Hash]*loadOp
}

type loadOp struct {
	cancelled atomic.Bool
}

func NewLoader(reader ledger.TransactionReader, codec *compression.Codec, cacheSize int, logger *slog.Logger) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = 32
	}
	cache, err := lru.New[types.Hash, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating scroll cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		reader: reader,
		codec:  codec,
		cache:  cache,
		log:    logger,
		active: make(map[types.Hash]*loadOp),
	}, nil
}

type fetched struct {
	index   uint32
	payload []byte
	err     error
}

// Load reconstructs the scroll described by the manifest and returns the
// full text. Chunk fetches run one ahead of decompression, but emission is
// strictly in index order.
func (l *Loader) Load(ctx context.Context, m *types.ScrollManifest, cb Callbacks) (string, error) {
	if err := validateManifest(m); err != nil {
		return "", l.fail(cb, err)
	}

	if text, ok := l.cache.Get(m.ScrollID); ok {
		total := uint32(len(m.Chunks))
		if cb.OnChunk != nil {
			cb.OnChunk(total-1, text, true)
		}
		if cb.OnProgress != nil {
			cb.OnProgress(total, total, 100)
		}
		return text, nil
	}

	op := &loadOp{}
	l.mu.Lock()
	if _, exists := l.active[m.ScrollID]; exists {
		l.mu.Unlock()
		return "", ErrLoadInProgress
	}
	l.active[m.ScrollID] = op
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.active, m.ScrollID)
		l.mu.Unlock()
	}()

	total := uint32(len(m.Chunks))

	// The prefetcher stays one chunk ahead of the consumer: the buffered
	// channel holds chunk i+1 while chunk i is decompressed and emitted.
	fetchCh := make(chan fetched, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(fetchCh)
		for _, ref := range m.Chunks {
			payload, err := l.reader.ReadTransaction(ctx, ref.TxID)
			select {
			case fetchCh <- fetched{index: ref.Index, payload: payload, err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var assembled strings.Builder
	for f := range fetchCh {
		if op.cancelled.Load() {
			return "", ErrCancelled
		}
		if f.err != nil {
			return "", l.fail(cb, fmt.Errorf("fetching chunk %d: %w", f.index, f.err))
		}

		piece, err := l.decodeChunk(m, f)
		if err != nil {
			return "", l.fail(cb, err)
		}

		assembled.WriteString(piece)
		done := f.index == total-1
		if cb.OnChunk != nil {
			cb.OnChunk(f.index, assembled.String(), done)
		}
		if cb.OnProgress != nil {
			loaded := f.index + 1
			cb.OnProgress(loaded, total, float64(loaded)/float64(total)*100)
		}
	}

	if op.cancelled.Load() {
		return "", ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return "", l.fail(cb, err)
	}

	text := assembled.String()
	l.cache.Add(m.ScrollID, text)
	l.log.Debug("scroll reconstructed", "scroll", m.ScrollID.String()[:12], "chunks", total, "bytes", len(text))
	return text, nil
}

// Cancel abandons the active load for scrollID. Subsequent fetches stop and
// the partial buffer is discarded. Returns false when nothing is loading.
func (l *Loader) Cancel(scrollID types.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	op, ok := l.active[scrollID]
	if ok {
		op.cancelled.Store(true)
	}
	return ok
}

func (l *Loader) decodeChunk(m *types.ScrollManifest, f fetched) (string, error) {
	frame, err := ledger.DecodeFrame(f.payload)
	if err != nil {
		return "", fmt.Errorf("decoding chunk %d: %w", f.index, err)
	}

	raw, err := l.codec.Decompress(frame.CompressedData())
	if err != nil {
		return "", fmt.Errorf("decompressing chunk %d: %w", f.index, err)
	}

	if digest := integrity.DigestBytes(raw); !digest.Equal(m.Chunks[f.index].Digest) {
		return "", fmt.Errorf("chunk %d of scroll %s is corrupt: digest mismatch", f.index, m.ScrollID)
	}
	return string(raw), nil
}

func (l *Loader) fail(cb Callbacks, err error) error {
	if cb.OnError != nil {
		cb.OnError(err)
	}
	return err
}

func validateManifest(m *types.ScrollManifest) error {
	if len(m.Chunks) == 0 {
		return fmt.Errorf("manifest %s has no chunks", m.ScrollID)
	}
	for i, ref := range m.Chunks {
		if ref.Index != uint32(i) {
			return fmt.Errorf("manifest %s chunk at position %d has index %d", m.ScrollID, i, ref.Index)
		}
		if ref.TxID == "" {
			return fmt.Errorf("manifest %s chunk %d has no transaction id", m.ScrollID, i)
		}
	}
	return nil
}
