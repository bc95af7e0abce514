package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/state"
)

var _ state.Backend = (*WriteTx)(nil)

// WriteTx is an open write transaction. It holds the database write lock for
// its whole lifetime, so everything read through it stays current until the
// transaction ends.
//
// WriteTx implements state.Backend so the runtime can load and save state
// inside the same transaction that logs the invocation.
type WriteTx struct {
	tx *sql.Tx
}

// Update runs fn in a write transaction and commits if fn returns nil.
// The Store must not be used from inside fn: its pool has one connection,
// which the transaction holds.
func (s *Store) Update(ctx context.Context, fn func(*WriteTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&WriteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LastSeq returns the highest seq logged, including records committed by
// other connections before this transaction began.
func (t *WriteTx) LastSeq(ctx context.Context) (int64, error) {
	return lastSeq(ctx, t.tx)
}

// ReadState implements state.Backend.
func (t *WriteTx) ReadState(ctx context.Context, key string) ([]byte, bool, error) {
	return readState(ctx, t.tx, key)
}

// WriteState implements state.Backend, stamping the row with the highest
// seq logged so far in this transaction.
func (t *WriteTx) WriteState(ctx context.Context, key string, value []byte) error {
	seq, err := lastSeq(ctx, t.tx)
	if err != nil {
		return fmt.Errorf("write state %q: %w", key, err)
	}
	return upsertState(ctx, t.tx, key, value, seq)
}

// Close implements state.Backend. It does nothing; Update ends the
// transaction.
func (t *WriteTx) Close() error {
	return nil
}

// Record writes an invocation, its completion and, when st is not nil, a
// state update stamped with the invocation's seq.
func (t *WriteTx) Record(ctx context.Context, inv ir.Invocation, comp ir.Completion, st *StateWrite) error {
	if err := insertInvocation(ctx, t.tx, inv); err != nil {
		return err
	}
	if err := insertCompletion(ctx, t.tx, comp); err != nil {
		return err
	}
	if st != nil {
		if err := upsertState(ctx, t.tx, st.Key, st.Value, inv.Seq); err != nil {
			return err
		}
	}
	return nil
}
