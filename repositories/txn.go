package repositories

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

const maxTxnRetries = 10

// runUpdate commits a read-modify-write transaction, retrying when badger's
// optimistic conflict detection aborts the commit because a concurrent
// transaction touched the same keys. The callback re-reads fresh state on
// every attempt, so it must be safe to re-run from scratch.
func runUpdate(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
