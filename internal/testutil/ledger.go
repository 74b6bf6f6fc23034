package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glyphweave/glyphweave/pkg/ledger"
)

// FakeSigner is a wallet signer with a fixed identity.
type FakeSigner struct {
	ID string
}

func (s *FakeSigner) PublicIdentity() string { return s.ID }

func (s *FakeSigner) Sign(data []byte) ([]byte, error) {
	return []byte("signed:" + s.ID), nil
}

// FakeLedger is a scriptable in-memory ledger. Failures can be injected per
// glyph index; everything submitted is retained for assertions.
type FakeLedger struct {
	mu sync.Mutex

	limit     int
	seq       int
	txs       map[string][]byte
	failures  map[uint32]int // glyph index -> remaining submit failures
	readFails map[string]int // tx id -> remaining read failures

	SubmitCount int
	Submitted   []string // tx ids in submission order
}

func NewFakeLedger(payloadLimit int) *FakeLedger {
	if payloadLimit <= 0 {
		payloadLimit = 1 << 20
	}
	return &FakeLedger{
		limit:     payloadLimit,
		txs:       make(map[string][]byte),
		failures:  make(map[uint32]int),
		readFails: make(map[string]int),
	}
}

// FailIndex makes the next `times` submissions of the glyph with the given
// index fail. Index 0 is the anchor glyph.
func (f *FakeLedger) FailIndex(index uint32, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[index] = times
}

// FailRead makes the next `times` reads of txID fail.
func (f *FakeLedger) FailRead(txID string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readFails[txID] = times
}

func (f *FakeLedger) PayloadLimit() int { return f.limit }

func (f *FakeLedger) Submit(ctx context.Context, payload []byte, signer ledger.WalletSigner) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(payload) > f.limit {
		return "", fmt.Errorf("payload of %d bytes exceeds limit %d", len(payload), f.limit)
	}
	if _, err := signer.Sign(payload); err != nil {
		return "", err
	}

	index, err := glyphIndexOf(payload)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubmitCount++

	if remaining := f.failures[index]; remaining > 0 {
		f.failures[index] = remaining - 1
		return "", fmt.Errorf("injected submission failure for glyph %d", index)
	}

	f.seq++
	txID := fmt.Sprintf("faketx-%04d", f.seq)
	stored := make([]byte, len(payload))
	copy(stored, payload)
	f.txs[txID] = stored
	f.Submitted = append(f.Submitted, txID)
	return txID, nil
}

func (f *FakeLedger) Confirm(ctx context.Context, txID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.txs[txID]; !ok {
		return fmt.Errorf("transaction %q not found", txID)
	}
	return nil
}

func (f *FakeLedger) LatestSequenceToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("token-%d", f.seq), nil
}

func (f *FakeLedger) ReadTransaction(ctx context.Context, txID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if remaining := f.readFails[txID]; remaining > 0 {
		f.readFails[txID] = remaining - 1
		return nil, fmt.Errorf("injected read failure for %q", txID)
	}

	payload, ok := f.txs[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %q not found", txID)
	}
	return payload, nil
}

func glyphIndexOf(payload []byte) (uint32, error) {
	frame, err := ledger.DecodeFrame(payload)
	if err != nil {
		return 0, err
	}
	if frame.Kind == ledger.KindAnchor {
		return 0, nil
	}
	return frame.Glyph.Index, nil
}

// InstantClock advances its own time instead of sleeping, so retry backoff
// and pacing delays cost nothing in tests.
type InstantClock struct {
	mu  sync.Mutex
	now time.Time

	// Waited records every delay that would have been slept.
	Waited []time.Duration
}

func NewInstantClock() *InstantClock {
	return &InstantClock{now: time.Unix(1700000000, 0)}
}

func (c *InstantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *InstantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.Waited = append(c.Waited, d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}
