package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/msglog/internal/state"
)

var _ state.Backend = (*Store)(nil)

// ReadState implements state.Backend over the contract_state table.
func (s *Store) ReadState(ctx context.Context, key string) ([]byte, bool, error) {
	return readState(ctx, s.db, key)
}

func readState(ctx context.Context, q querier, key string) ([]byte, bool, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `
		SELECT value FROM contract_state WHERE key = ?
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read state %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// WriteState implements state.Backend. The row is stamped with the highest
// logged seq so the log and the state can be correlated.
func (s *Store) WriteState(ctx context.Context, key string, value []byte) error {
	seq, err := s.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("write state %q: %w", key, err)
	}
	return upsertState(ctx, s.db, key, value, seq)
}

// StateUpdatedSeq returns the seq recorded with the last write of key.
// Returns found=false when the key was never written.
func (s *Store) StateUpdatedSeq(ctx context.Context, key string) (int64, bool, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT updated_seq FROM contract_state WHERE key = ?
	`, key).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read state seq %q: %w", key, err)
	}
	return seq, true, nil
}
