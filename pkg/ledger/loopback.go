package ledger

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
)

// KV is the slice of the key-value store the loopback ledger persists
// transactions in.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key []byte, value []byte) error
}

var txKeyPrefix = []byte("tx:")

// Loopback is an in-process ledger: transactions are stored in a local
// key-value namespace instead of being broadcast. It exists for the CLI demo
// and for exercising the full publish/read path without a network. With a nil
// KV it keeps transactions in memory.
type Loopback struct {
	mu    sync.Mutex
	kv    KV
	mem   map[string][]byte
	seq   uint64
	limit int
}

func NewLoopback(kv KV, payloadLimit int) *Loopback {
	l := &Loopback{kv: kv, limit: payloadLimit}
	if kv == nil {
		l.mem = make(map[string][]byte)
	}
	return l
}

func (l *Loopback) PayloadLimit() int { return l.limit }

func (l *Loopback) Submit(ctx context.Context, payload []byte, signer WalletSigner) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(payload) > l.limit {
		return "", fmt.Errorf("payload of %d bytes exceeds limit of %d", len(payload), l.limit)
	}
	if _, err := signer.Sign(payload); err != nil {
		return "", fmt.Errorf("signing payload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, l.seq)
	sum := sha512.Sum512(append(payload, seqBytes...))
	txID := hex.EncodeToString(sum[:16])

	if err := l.put(txID, payload); err != nil {
		return "", err
	}
	return txID, nil
}

func (l *Loopback) Confirm(ctx context.Context, txID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := l.ReadTransaction(ctx, txID)
	return err
}

func (l *Loopback) LatestSequenceToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("%d", l.seq), nil
}

func (l *Loopback) ReadTransaction(ctx context.Context, txID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.mem != nil {
		l.mu.Lock()
		payload, ok := l.mem[txID]
		l.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("transaction %q not found", txID)
		}
		return payload, nil
	}
	payload, err := l.kv.Get(append(txKeyPrefix, txID...))
	if err != nil {
		return nil, fmt.Errorf("reading transaction %q: %w", txID, err)
	}
	return payload, nil
}

func (l *Loopback) put(txID string, payload []byte) error {
	if l.mem != nil {
		l.mem[txID] = payload
		return nil
	}
	if err := l.kv.Set(append(txKeyPrefix, txID...), payload); err != nil {
		return fmt.Errorf("storing transaction %q: %w", txID, err)
	}
	return nil
}
