// Package testutil provides in-memory stand-ins for the external
// collaborators: a key-value store, a scriptable ledger, a wallet signer and
// an instant clock.
package testutil

import (
	"sort"
	"sync"

	"github.com/glyphweave/glyphweave/internal/keyValStore"
)

// MemKV is an in-memory key-value store implementing the records.KV surface.
type MemKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string][]byte)}
}

func (m *MemKV) Get(key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[string(key)]
	if !ok {
		return nil, keyValStore.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemKV) Set(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[string(key)] = stored
	return nil
}

func (m *MemKV) Remove(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemKV) ItemsWithPrefix(prefix []byte) ([][2][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0)
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	items := make([][2][]byte, 0, len(keys))
	for _, k := range keys {
		items = append(items, [2][]byte{[]byte(k), m.data[k]})
	}
	return items, nil
}
