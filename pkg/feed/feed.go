// Package feed builds the chronological feed by walking every known
// author's publication chain backward from its head. Each anchor transaction
// embeds the pointer to the author's previous publication; walking stops per
// author after enough posts or when the pointer runs out.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/glyphweave/glyphweave/pkg/compression"
	"github.com/glyphweave/glyphweave/pkg/ledger"
	"github.com/glyphweave/glyphweave/pkg/types"
	workerpool "github.com/glyphweave/glyphweave/pkg/workerPool"
)

// DefaultTTL bounds how long a built feed is served from cache. Chain
// walking is ledger-read heavy, so repeat feed views within the window skip
// the ledger entirely.
const DefaultTTL = 30 * time.Second

// Heads enumerates the chain head records feed building starts from.
type Heads interface {
	All() ([]types.ChainHeadRecord, error)
}

type Builder struct {
	heads  Heads
	reader ledger.TransactionReader
	codec  *compression.Codec
	wp     *workerpool.WorkerPool
	cache  *expirable.LRU[string, []types.FeedPost]
	log    *slog.Logger
}

func NewBuilder(heads Heads, reader ledger.TransactionReader, codec *compression.Codec, wp *workerpool.WorkerPool, ttl time.Duration, logger *slog.Logger) *Builder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		heads:  heads,
		reader: reader,
		codec:  codec,
		wp:     wp,
		cache:  expirable.NewLRU[string, []types.FeedPost](8, nil, ttl),
		log:    logger,
	}
}

// BuildFeed collects up to maxPerAuthor posts per author, merges them, sorts
// newest first and truncates to maxTotal. One author's unreadable chain is
// logged and skipped; it never aborts the build. forceRefresh bypasses the
// cache.
func (b *Builder) BuildFeed(ctx context.Context, maxPerAuthor, maxTotal int, forceRefresh bool) ([]types.FeedPost, error) {
	if maxPerAuthor <= 0 || maxTotal <= 0 {
		return nil, fmt.Errorf("feed limits must be positive, got %d per author and %d total", maxPerAuthor, maxTotal)
	}

	cacheKey := fmt.Sprintf("%d/%d", maxPerAuthor, maxTotal)
	if !forceRefresh {
		if posts, ok := b.cache.Get(cacheKey); ok {
			return posts, nil
		}
	}

	heads, err := b.heads.All()
	if err != nil {
		return nil, fmt.Errorf("listing chain heads: %w", err)
	}
	if len(heads) == 0 {
		return nil, nil
	}

	room := b.wp.CreateRoom(len(heads))
	for _, head := range heads {
		head := head
		room.NewTaskWaitForFreeSlot(func() interface{} {
			return b.walkAuthor(ctx, head, maxPerAuthor)
		})
	}

	var posts []types.FeedPost
	for _, result := range room.Collect() {
		posts = append(posts, result.([]types.FeedPost)...)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp)
	})
	if len(posts) > maxTotal {
		posts = posts[:maxTotal]
	}

	b.cache.Add(cacheKey, posts)
	return posts, nil
}

// walkAuthor follows one author's chain backward from the head. Read
// failures end the walk but keep whatever was gathered; the error stays
// inside this author's lane.
func (b *Builder) walkAuthor(ctx context.Context, head types.ChainHeadRecord, maxPosts int) []types.FeedPost {
	posts := make([]types.FeedPost, 0, maxPosts)

	txID := head.LatestPublicationID
	for txID != "" && len(posts) < maxPosts {
		post, prev, err := b.readPost(ctx, txID, head)
		if err != nil {
			cre := &types.ChainReadError{AuthorID: head.AuthorID, TxID: txID, Err: err}
			b.log.Warn("chain walk aborted for author", "author", head.AuthorID, "error", cre)
			break
		}
		posts = append(posts, post)
		txID = prev
	}
	return posts
}

func (b *Builder) readPost(ctx context.Context, txID string, head types.ChainHeadRecord) (types.FeedPost, string, error) {
	payload, err := b.reader.ReadTransaction(ctx, txID)
	if err != nil {
		return types.FeedPost{}, "", err
	}

	frame, err := ledger.DecodeFrame(payload)
	if err != nil {
		return types.FeedPost{}, "", err
	}
	if frame.Kind != ledger.KindAnchor || frame.Anchor == nil {
		return types.FeedPost{}, "", fmt.Errorf("transaction %q is not a publication anchor", txID)
	}
	anchor := frame.Anchor

	raw, err := b.codec.Decompress(anchor.Data)
	if err != nil {
		return types.FeedPost{}, "", fmt.Errorf("decompressing anchor content: %w", err)
	}

	author := anchor.Username
	if author == "" {
		author = head.Username
	}

	return types.FeedPost{
		ID:                    txID,
		TxID:                  txID,
		AuthorID:              anchor.AuthorID,
		Author:                author,
		Content:               string(raw),
		Timestamp:             anchor.Timestamp(),
		PreviousPublicationID: anchor.PrevTxID,
	}, anchor.PrevTxID, nil
}
