package reconstruct

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphweave/glyphweave/internal/testutil"
	"github.com/glyphweave/glyphweave/pkg/compression"
	"github.com/glyphweave/glyphweave/pkg/integrity"
	"github.com/glyphweave/glyphweave/pkg/ledger"
	"github.com/glyphweave/glyphweave/pkg/logging"
	"github.com/glyphweave/glyphweave/pkg/types"
)

func newTestCodec(t *testing.T) *compression.Codec {
	t.Helper()
	codec, err := compression.NewCodec(compression.AlgZstd)
	require.NoError(t, err)
	t.Cleanup(codec.Close)
	return codec
}

func newTestLoader(t *testing.T, reader ledger.TransactionReader, codec *compression.Codec) *Loader {
	t.Helper()
	loader, err := NewLoader(reader, codec, 8, logging.Discard())
	require.NoError(t, err)
	return loader
}

// publishScroll frames, compresses and submits the pieces to the fake ledger
// and returns the manifest a reader would hold.
func publishScroll(t *testing.T, led *testutil.FakeLedger, codec *compression.Codec, name string, pieces []string) *types.ScrollManifest {
	t.Helper()
	ctx := context.Background()
	signer := &testutil.FakeSigner{ID: "author-1"}

	content := &types.Content{
		AuthorID:  "author-1",
		Username:  "scribe",
		CreatedAt: time.Unix(0, 1700000000000000000),
		Glyphs:    make([]types.Glyph, len(pieces)),
	}

	m := &types.ScrollManifest{
		ScrollID:    integrity.DigestString(name),
		Title:       name,
		Author:      "scribe",
		AuthorID:    "author-1",
		TotalChunks: uint32(len(pieces)),
		Version:     1,
	}

	for i, piece := range pieces {
		raw := []byte(piece)
		digest := integrity.DigestBytes(raw)
		compressed, err := codec.Compress(raw)
		require.NoError(t, err)

		var payload []byte
		if i == 0 {
			payload, err = ledger.EncodeAnchorPayload(content, digest, compressed)
		} else {
			payload, err = ledger.EncodeGlyphPayload(uint32(i), digest, compressed)
		}
		require.NoError(t, err)

		txID, err := led.Submit(ctx, payload, signer)
		require.NoError(t, err)

		m.Chunks = append(m.Chunks, types.ChunkRef{Index: uint32(i), TxID: txID, Digest: digest})
	}
	return m
}

var testPieces = []string{
	"The first piece of the scroll. ",
	"A second piece continuing the text. ",
	"And the final third piece.",
}

func TestLoadEmitsChunksInOrder(t *testing.T) {
	led := testutil.NewFakeLedger(1 << 20)
	codec := newTestCodec(t)
	m := publishScroll(t, led, codec, "ordered", testPieces)
	loader := newTestLoader(t, led, codec)

	var indices []uint32
	var assembled []string
	var percents []float64
	var doneAt uint32

	text, err := loader.Load(context.Background(), m, Callbacks{
		OnChunk: func(index uint32, text string, done bool) {
			indices = append(indices, index)
			assembled = append(assembled, text)
			if done {
				doneAt = index
			}
		},
		OnProgress: func(loaded, total uint32, percent float64) {
			percents = append(percents, percent)
		},
	})
	require.NoError(t, err)

	full := strings.Join(testPieces, "")
	assert.Equal(t, full, text)
	assert.Equal(t, []uint32{0, 1, 2}, indices)
	assert.Equal(t, uint32(2), doneAt)

	// Each emission extends the previous one; the last is the full text.
	for i := 1; i < len(assembled); i++ {
		assert.True(t, strings.HasPrefix(assembled[i], assembled[i-1]))
	}
	assert.Equal(t, full, assembled[len(assembled)-1])

	require.Len(t, percents, 3)
	assert.InDelta(t, 100, percents[2], 1e-9)
	assert.True(t, percents[0] < percents[1] && percents[1] < percents[2])
}

func TestLoadDetectsCorruption(t *testing.T) {
	led := testutil.NewFakeLedger(1 << 20)
	codec := newTestCodec(t)
	m := publishScroll(t, led, codec, "corrupt", testPieces)

	// A flipped digest in the manifest must fail verification after
	// decompression.
	m.Chunks[1].Digest = integrity.DigestString("someone else's piece")

	loader := newTestLoader(t, led, codec)
	var reported error
	_, err := loader.Load(context.Background(), m, Callbacks{
		OnError: func(e error) { reported = e },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
	assert.Equal(t, err, reported)
}

type countingReader struct {
	inner ledger.TransactionReader
	reads atomic.Int32
}

func (c *countingReader) ReadTransaction(ctx context.Context, txID string) ([]byte, error) {
	c.reads.Add(1)
	return c.inner.ReadTransaction(ctx, txID)
}

func TestLoadServesRepeatViewsFromCache(t *testing.T) {
	led := testutil.NewFakeLedger(1 << 20)
	codec := newTestCodec(t)
	m := publishScroll(t, led, codec, "cached", testPieces)

	reader := &countingReader{inner: led}
	loader := newTestLoader(t, reader, codec)

	first, err := loader.Load(context.Background(), m, Callbacks{})
	require.NoError(t, err)
	readsAfterFirst := reader.reads.Load()
	assert.Equal(t, int32(3), readsAfterFirst)

	var done bool
	second, err := loader.Load(context.Background(), m, Callbacks{
		OnChunk: func(index uint32, text string, d bool) { done = d },
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, done)
	assert.Equal(t, readsAfterFirst, reader.reads.Load(), "a cache hit must not touch the ledger")
}

func TestLoadFetchFailureIsNotCached(t *testing.T) {
	led := testutil.NewFakeLedger(1 << 20)
	codec := newTestCodec(t)
	m := publishScroll(t, led, codec, "flaky", testPieces)

	led.FailRead(m.Chunks[1].TxID, 1)
	loader := newTestLoader(t, led, codec)

	_, err := loader.Load(context.Background(), m, Callbacks{})
	require.Error(t, err)

	// The injected failure is consumed; the retry succeeds fully.
	text, err := loader.Load(context.Background(), m, Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, strings.Join(testPieces, ""), text)
}

func TestLoadRejectsBadManifests(t *testing.T) {
	led := testutil.NewFakeLedger(1 << 20)
	codec := newTestCodec(t)
	loader := newTestLoader(t, led, codec)
	ctx := context.Background()

	_, err := loader.Load(ctx, &types.ScrollManifest{ScrollID: integrity.DigestString("empty")}, Callbacks{})
	assert.Error(t, err)

	_, err = loader.Load(ctx, &types.ScrollManifest{
		ScrollID: integrity.DigestString("gap"),
		Chunks: []types.ChunkRef{
			{Index: 0, TxID: "tx-0"},
			{Index: 2, TxID: "tx-2"},
		},
	}, Callbacks{})
	assert.Error(t, err)

	_, err = loader.Load(ctx, &types.ScrollManifest{
		ScrollID: integrity.DigestString("no-tx"),
		Chunks:   []types.ChunkRef{{Index: 0}},
	}, Callbacks{})
	assert.Error(t, err)
}

type gatedReader struct {
	inner ledger.TransactionReader
	gate  chan struct{}
	calls atomic.Int32
}

func (g *gatedReader) ReadTransaction(ctx context.Context, txID string) ([]byte, error) {
	if g.calls.Add(1) == 2 {
		<-g.gate
	}
	return g.inner.ReadTransaction(ctx, txID)
}

func TestCancelAbandonsLoad(t *testing.T) {
	led := testutil.NewFakeLedger(1 << 20)
	codec := newTestCodec(t)
	m := publishScroll(t, led, codec, "cancelled", testPieces)

	reader := &gatedReader{inner: led, gate: make(chan struct{})}
	loader := newTestLoader(t, reader, codec)

	errCh := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), m, Callbacks{})
		errCh <- err
	}()

	// The load registers itself before consuming; poll until Cancel lands.
	deadline := time.After(5 * time.Second)
	for !loader.Cancel(m.ScrollID) {
		select {
		case <-deadline:
			t.Fatal("load never became active")
		case <-time.After(time.Millisecond):
		}
	}
	close(reader.gate)

	assert.ErrorIs(t, <-errCh, ErrCancelled)
	assert.False(t, loader.Cancel(m.ScrollID), "nothing left to cancel once the load returned")
}

func TestConcurrentLoadOfSameScrollRejected(t *testing.T) {
	led := testutil.NewFakeLedger(1 << 20)
	codec := newTestCodec(t)
	m := publishScroll(t, led, codec, "exclusive", testPieces)

	reader := &gatedReader{inner: led, gate: make(chan struct{})}
	loader := newTestLoader(t, reader, codec)

	errCh := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), m, Callbacks{})
		errCh <- err
	}()

	// Wait for the first load to register, then collide with it.
	require.Eventually(t, func() bool {
		loader.mu.Lock()
		defer loader.mu.Unlock()
		_, active := loader.active[m.ScrollID]
		return active
	}, 5*time.Second, time.Millisecond)

	_, err := loader.Load(context.Background(), m, Callbacks{})
	assert.ErrorIs(t, err, ErrLoadInProgress)

	close(reader.gate)
	require.NoError(t, <-errCh)
}
