package storage

import "errors"

// Transaction misuse errors. Seeding and job enqueueing open their own
// transactions, so nesting them or committing a plain handle is a bug in the
// caller rather than a database failure.
var (
	// ErrAlreadyInTx is returned by Begin on a handle that is already a transaction.
	ErrAlreadyInTx = errors.New("storage: already in a transaction")
	// ErrNotInTx is returned by Commit or Rollback on a non-transactional handle.
	ErrNotInTx = errors.New("storage: not in a transaction")
)
