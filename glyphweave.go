// Package glyphweave publishes arbitrary-length text permanently onto an
// append-only ledger whose transactions carry only a few hundred bytes, and
// reconstructs it for readers. Content is split into glyphs (compressed,
// hashed pieces committed one transaction each), recorded in a durable
// scroll manifest, and linked into the author's publication chain for feed
// building.
//
// The ledger client, wallet signing and the durable key-value store are
// external collaborators behind narrow interfaces; everything else lives
// here.
package glyphweave

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/glyphweave/glyphweave/internal/keyValStore"
	"github.com/glyphweave/glyphweave/internal/records"
	"github.com/glyphweave/glyphweave/pkg/chainhead"
	"github.com/glyphweave/glyphweave/pkg/compression"
	"github.com/glyphweave/glyphweave/pkg/feed"
	"github.com/glyphweave/glyphweave/pkg/ledger"
	"github.com/glyphweave/glyphweave/pkg/logging"
	"github.com/glyphweave/glyphweave/pkg/pipeline"
	"github.com/glyphweave/glyphweave/pkg/reconstruct"
	"github.com/glyphweave/glyphweave/pkg/types"
	workerpool "github.com/glyphweave/glyphweave/pkg/workerPool"
)

// Collaborators are the external services a Weave instance works against.
type Collaborators struct {
	Submitter ledger.TransactionSubmitter
	Reader    ledger.TransactionReader
	Signer    ledger.WalletSigner
	// Username is the display name written into publications.
	Username string
}

// Weave is the main handle. It owns all otherwise-global state: the active
// pipeline registry, the scroll cache and the feed cache all live here, so
// independent instances can coexist and tests run isolated.
type Weave struct {
	log    *slog.Logger
	config Config
	collab Collaborators

	kv        *keyValStore.KeyValStore
	store     *records.Store
	heads     *chainhead.Index
	codec     *compression.Codec
	publisher *pipeline.Publisher
	loader    *reconstruct.Loader
	feed      *feed.Builder
	wp        *workerpool.WorkerPool

	closeOnce sync.Once
}

// New opens the store and wires the publish and read pipelines.
func New(conf Config, collab Collaborators) (*Weave, error) {
	if len(conf.Paths) == 0 {
		return nil, fmt.Errorf("at least one path must be provided in config")
	}
	if collab.Submitter == nil || collab.Reader == nil || collab.Signer == nil {
		return nil, fmt.Errorf("submitter, reader and signer collaborators are all required")
	}
	conf.applyDefaults()
	if conf.Logger == nil {
		conf.Logger = logging.New(slog.LevelInfo)
	}
	log := conf.Logger

	if err := os.MkdirAll(conf.Paths[0], 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	kv, err := keyValStore.NewKeyValStore(keyValStore.StoreConfig{
		Paths:            conf.Paths,
		MinimumFreeSpace: conf.MinimumFreeGB,
		Logger:           log,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating KeyValStore: %w", err)
	}

	alg, err := compression.ParseAlgorithm(conf.Compression)
	if err != nil {
		kv.Close()
		return nil, err
	}
	codec, err := compression.NewCodec(alg)
	if err != nil {
		kv.Close()
		return nil, err
	}

	store := records.New(kv)
	heads := chainhead.New(store)

	publisher, err := pipeline.NewPublisher(pipeline.Config{
		MaxPieceBytes:    conf.MaxPieceBytes,
		MaxRetries:       conf.MaxRetries,
		BaseRetryDelay:   conf.BaseRetryDelay,
		InterSubmitDelay: conf.InterSubmitDelay,
		SubmitTimeout:    conf.SubmitTimeout,
	}, pipeline.Deps{
		Codec:     codec,
		Submitter: collab.Submitter,
		Contents:  store,
		Manifests: store,
		Heads:     heads,
		Logger:    log,
	})
	if err != nil {
		kv.Close()
		return nil, err
	}

	loader, err := reconstruct.NewLoader(collab.Reader, codec, conf.ScrollCacheSize, log)
	if err != nil {
		kv.Close()
		return nil, err
	}

	wp := workerpool.NewWorkerPool(workerpool.Config{})

	return &Weave{
		log:       log,
		config:    conf,
		collab:    collab,
		kv:        kv,
		store:     store,
		heads:     heads,
		codec:     codec,
		publisher: publisher,
		loader:    loader,
		feed:      feed.NewBuilder(heads, collab.Reader, codec, wp, conf.FeedTTL, log),
		wp:        wp,
	}, nil
}

// Publish chunks, compresses and commits the text glyph by glyph, then
// records the scroll manifest and advances the author's chain head. The
// result carries exact glyph counts and transaction ids whatever the
// outcome; a partial run stays persisted and resumable.
func (w *Weave) Publish(ctx context.Context, title, text string, onProgress pipeline.ProgressFunc) (*pipeline.Result, error) {
	content := &types.Content{
		Title:        title,
		OriginalText: text,
		AuthorID:     w.collab.Signer.PublicIdentity(),
		Username:     w.collab.Username,
		Status:       types.ContentDraft,
	}
	return w.publisher.Publish(ctx, content, w.collab.Signer, onProgress)
}

// Resume re-enters publishing for an interrupted publication. Published
// glyphs are never resubmitted.
func (w *Weave) Resume(ctx context.Context, contentID types.Hash, onProgress pipeline.ProgressFunc) (*pipeline.Result, error) {
	return w.publisher.Resume(ctx, contentID, w.collab.Signer, onProgress)
}

// Cancel flags the active pipeline for contentID; the in-flight submission
// finishes, no further glyphs are attempted.
func (w *Weave) Cancel(contentID types.Hash) bool {
	return w.publisher.Cancel(contentID)
}

// GetStatus reports how far a publication has come.
func (w *Weave) GetStatus(contentID types.Hash) (*pipeline.Status, error) {
	return w.publisher.Status(contentID)
}

// RebuildManifest retries manifest construction after a
// completed-without-manifest outcome.
func (w *Weave) RebuildManifest(contentID types.Hash) (*types.ScrollManifest, error) {
	return w.publisher.RebuildManifest(contentID)
}

// PendingPublications lists content ids with persisted working records,
// i.e. candidates for Resume.
func (w *Weave) PendingPublications() ([]types.Hash, error) {
	return w.store.ListContentIDs()
}

// BuildFeed walks all known authors' chains and returns the merged feed,
// newest first.
func (w *Weave) BuildFeed(ctx context.Context, maxPerAuthor, maxTotal int, forceRefresh bool) ([]types.FeedPost, error) {
	return w.feed.BuildFeed(ctx, maxPerAuthor, maxTotal, forceRefresh)
}

// Manifest returns the stored manifest for a scroll.
func (w *Weave) Manifest(scrollID types.Hash) (*types.ScrollManifest, error) {
	return w.store.LoadManifest(scrollID)
}

// ListScrolls returns all locally stored manifests.
func (w *Weave) ListScrolls() ([]*types.ScrollManifest, error) {
	return w.store.ListManifests()
}

// LoadScroll progressively reconstructs a published scroll and returns the
// full text. Callbacks fire per chunk, in order.
func (w *Weave) LoadScroll(ctx context.Context, scrollID types.Hash, cb reconstruct.Callbacks) (string, error) {
	m, err := w.store.LoadManifest(scrollID)
	if err != nil {
		return "", fmt.Errorf("loading manifest for scroll %s: %w", scrollID, err)
	}
	return w.loader.Load(ctx, m, cb)
}

// CancelLoad abandons an in-progress scroll reconstruction.
func (w *Weave) CancelLoad(scrollID types.Hash) bool {
	return w.loader.Cancel(scrollID)
}

// KV exposes the get/set slice of the store, for co-hosting an in-process
// ledger next to the weave data.
func (w *Weave) KV() ledger.KV {
	return w.kv
}

// Close flushes and releases the store and stops the worker pool.
func (w *Weave) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.wp.Close()
		w.codec.Close()
		err = w.kv.Close()
	})
	return err
}
