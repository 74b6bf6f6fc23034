// Package records is the storage boundary: every entity is CBOR-encoded
// under a namespaced key, and historical record shapes are normalized here,
// once, at decode time. The rest of the system only ever sees the flat form.
package records

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/glyphweave/glyphweave/internal/keyValStore"
	"github.com/glyphweave/glyphweave/pkg/types"
)

// Key namespaces. One for in-progress content, one for manifests, one for
// chain heads.
var (
	contentKeyPrefix  = []byte("content:")
	manifestKeyPrefix = []byte("scroll:")
	headKeyPrefix     = []byte("chainhead:")
)

// KV is the slice of the key-value store the record layer uses. Implemented
// by internal/keyValStore and by the in-memory store in internal/testutil.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key []byte, value []byte) error
	Remove(key []byte) error
	ItemsWithPrefix(prefix []byte) ([][2][]byte, error)
}

type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func contentKey(id types.Hash) []byte {
	return append(contentKeyPrefix, id.String()...)
}

func manifestKey(id types.Hash) []byte {
	return append(manifestKeyPrefix, id.String()...)
}

func headKey(authorID string) []byte {
	return append(headKeyPrefix, authorID...)
}

func (s *Store) SaveContent(c *types.Content) error {
	data, err := cbor.Marshal(contentToStored(c))
	if err != nil {
		return &types.StorageError{Op: "encode", Key: string(contentKey(c.ContentID)), Err: err}
	}
	if err := s.kv.Set(contentKey(c.ContentID), data); err != nil {
		return &types.StorageError{Op: "set", Key: string(contentKey(c.ContentID)), Err: err}
	}
	return nil
}

func (s *Store) LoadContent(id types.Hash) (*types.Content, error) {
	data, err := s.kv.Get(contentKey(id))
	if errors.Is(err, keyValStore.ErrNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Op: "get", Key: string(contentKey(id)), Err: err}
	}

	var rec storedContent
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, &types.StorageError{Op: "decode", Key: string(contentKey(id)), Err: err}
	}
	return rec.normalize()
}

func (s *Store) DeleteContent(id types.Hash) error {
	if err := s.kv.Remove(contentKey(id)); err != nil {
		return &types.StorageError{Op: "remove", Key: string(contentKey(id)), Err: err}
	}
	return nil
}

// ListContentIDs returns the ids of all persisted working content records,
// i.e. publications that are in progress or partially published.
func (s *Store) ListContentIDs() ([]types.Hash, error) {
	items, err := s.kv.ItemsWithPrefix(contentKeyPrefix)
	if err != nil {
		return nil, &types.StorageError{Op: "scan", Key: string(contentKeyPrefix), Err: err}
	}

	ids := make([]types.Hash, 0, len(items))
	for _, kv := range items {
		hexID := string(kv[0][len(contentKeyPrefix):])
		id, err := types.HashFromHex(hexID)
		if err != nil {
			return nil, fmt.Errorf("malformed content key %q: %w", kv[0], err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) SaveManifest(m *types.ScrollManifest) error {
	data, err := cbor.Marshal(manifestToStored(m))
	if err != nil {
		return &types.StorageError{Op: "encode", Key: string(manifestKey(m.ScrollID)), Err: err}
	}
	if err := s.kv.Set(manifestKey(m.ScrollID), data); err != nil {
		return &types.StorageError{Op: "set", Key: string(manifestKey(m.ScrollID)), Err: err}
	}
	return nil
}

func (s *Store) LoadManifest(id types.Hash) (*types.ScrollManifest, error) {
	data, err := s.kv.Get(manifestKey(id))
	if errors.Is(err, keyValStore.ErrNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Op: "get", Key: string(manifestKey(id)), Err: err}
	}

	var rec storedManifest
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, &types.StorageError{Op: "decode", Key: string(manifestKey(id)), Err: err}
	}
	return rec.normalize()
}

func (s *Store) ListManifests() ([]*types.ScrollManifest, error) {
	items, err := s.kv.ItemsWithPrefix(manifestKeyPrefix)
	if err != nil {
		return nil, &types.StorageError{Op: "scan", Key: string(manifestKeyPrefix), Err: err}
	}

	manifests := make([]*types.ScrollManifest, 0, len(items))
	for _, kv := range items {
		var rec storedManifest
		if err := cbor.Unmarshal(kv[1], &rec); err != nil {
			return nil, &types.StorageError{Op: "decode", Key: string(kv[0]), Err: err}
		}
		m, err := rec.normalize()
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

func (s *Store) SaveChainHead(r *types.ChainHeadRecord) error {
	data, err := cbor.Marshal(headToStored(r))
	if err != nil {
		return &types.StorageError{Op: "encode", Key: string(headKey(r.AuthorID)), Err: err}
	}
	if err := s.kv.Set(headKey(r.AuthorID), data); err != nil {
		return &types.StorageError{Op: "set", Key: string(headKey(r.AuthorID)), Err: err}
	}
	return nil
}

func (s *Store) LoadChainHead(authorID string) (*types.ChainHeadRecord, error) {
	data, err := s.kv.Get(headKey(authorID))
	if errors.Is(err, keyValStore.ErrNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Op: "get", Key: string(headKey(authorID)), Err: err}
	}

	var rec storedChainHead
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, &types.StorageError{Op: "decode", Key: string(headKey(authorID)), Err: err}
	}
	return rec.normalize(), nil
}

func (s *Store) ListChainHeads() ([]types.ChainHeadRecord, error) {
	items, err := s.kv.ItemsWithPrefix(headKeyPrefix)
	if err != nil {
		return nil, &types.StorageError{Op: "scan", Key: string(headKeyPrefix), Err: err}
	}

	heads := make([]types.ChainHeadRecord, 0, len(items))
	for _, kv := range items {
		var rec storedChainHead
		if err := cbor.Unmarshal(kv[1], &rec); err != nil {
			return nil, &types.StorageError{Op: "decode", Key: string(kv[0]), Err: err}
		}
		heads = append(heads, *rec.normalize())
	}
	return heads, nil
}
