// Package chainhead maintains the per-author pointer to the most recent
// publication. It is both the link target for new publications and the entry
// point for backward chain walking.
package chainhead

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glyphweave/glyphweave/pkg/types"
)

// Records is the slice of the record store the index needs.
type Records interface {
	LoadChainHead(authorID string) (*types.ChainHeadRecord, error)
	SaveChainHead(r *types.ChainHeadRecord) error
	ListChainHeads() ([]types.ChainHeadRecord, error)
}

// Index serializes head updates per author. Advance is a read-modify-write,
// so concurrent publishes by the same author must not interleave or an
// increment would be lost.
type Index struct {
	store Records
	now   func() time.Time

	mu      sync.Mutex
	perAuth map[string]*sync.Mutex
}

func New(store Records) *Index {
	return &Index{
		store:   store,
		now:     time.Now,
		perAuth: make(map[string]*sync.Mutex),
	}
}

func (i *Index) authorLock(authorID string) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()
	l, ok := i.perAuth[authorID]
	if !ok {
		l = &sync.Mutex{}
		i.perAuth[authorID] = l
	}
	return l
}

// Head returns the author's chain head record, or types.ErrNotFound when the
// author has never published.
func (i *Index) Head(authorID string) (*types.ChainHeadRecord, error) {
	return i.store.LoadChainHead(authorID)
}

// Advance moves the author's head to publicationID. PublicationCount goes up
// by exactly one per call and never decreases.
func (i *Index) Advance(authorID, username, publicationID string) (*types.ChainHeadRecord, error) {
	if authorID == "" {
		return nil, fmt.Errorf("cannot advance chain head without an author id")
	}
	if publicationID == "" {
		return nil, fmt.Errorf("cannot advance chain head of %s to an empty publication id", authorID)
	}

	lock := i.authorLock(authorID)
	lock.Lock()
	defer lock.Unlock()

	record, err := i.store.LoadChainHead(authorID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		record = &types.ChainHeadRecord{AuthorID: authorID}
	}

	record.Username = username
	record.LatestPublicationID = publicationID
	record.UpdatedAt = i.now()
	record.PublicationCount++

	if err := i.store.SaveChainHead(record); err != nil {
		return nil, err
	}
	return record, nil
}

// All returns the head records of every known author.
func (i *Index) All() ([]types.ChainHeadRecord, error) {
	return i.store.ListChainHeads()
}
