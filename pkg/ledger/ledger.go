// Package ledger defines the narrow interfaces to the external ledger
// collaborators: transaction submission, transaction reads for chain walking,
// and wallet signing. The core never inspects a signer beyond handing it to
// the submitter. The package also owns the payload frame formats that glyphs
// travel in.
package ledger

import "context"

// TransactionSubmitter signs, submits and confirms exactly one ledger
// transaction carrying one glyph's framed payload.
type TransactionSubmitter interface {
	// Submit sends the payload in a single transaction and returns its id.
	Submit(ctx context.Context, payload []byte, signer WalletSigner) (string, error)

	// Confirm blocks until the transaction is accepted or returns an error.
	Confirm(ctx context.Context, txID string) error

	// LatestSequenceToken returns the token needed to build the next
	// transaction. Also serves as a cheap liveness probe before a pipeline
	// starts submitting.
	LatestSequenceToken(ctx context.Context) (string, error)

	// PayloadLimit is the maximum payload size the ledger accepts, in bytes.
	PayloadLimit() int
}

// TransactionReader fetches a committed transaction's payload by id.
type TransactionReader interface {
	ReadTransaction(ctx context.Context, txID string) ([]byte, error)
}

// WalletSigner is the wallet collaborator. Key custody is entirely its
// problem.
type WalletSigner interface {
	// PublicIdentity returns the stable author id derived from the wallet's
	// public key.
	PublicIdentity() string

	Sign(data []byte) ([]byte, error)
}
