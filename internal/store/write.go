package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/msglog/internal/ir"
)

// StateWrite is a state update committed together with an invocation.
type StateWrite struct {
	Key   string
	Value []byte
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ErrDuplicateRecord is returned when an invocation or completion ID is
// already logged, or an invocation already has a completion. Records are
// never overwritten or silently dropped.
var ErrDuplicateRecord = errors.New("record already logged")

// WriteInvocation inserts an invocation record on its own.
// Returns ErrDuplicateRecord if the ID is already logged.
func (s *Store) WriteInvocation(ctx context.Context, inv ir.Invocation) error {
	if err := insertInvocation(ctx, s.db, inv); err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	return nil
}

// WriteCompletion inserts a completion record on its own. The invocation it
// references must already be logged (foreign key).
// Returns ErrDuplicateRecord if the invocation already has a completion.
func (s *Store) WriteCompletion(ctx context.Context, comp ir.Completion) error {
	if err := insertCompletion(ctx, s.db, comp); err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	return nil
}

// CommitInvocation writes an invocation, its completion and, when st is not
// nil, a state update in a single transaction.
func (s *Store) CommitInvocation(ctx context.Context, inv ir.Invocation, comp ir.Completion, st *StateWrite) error {
	err := s.Update(ctx, func(tx *WriteTx) error {
		return tx.Record(ctx, inv, comp, st)
	})
	if err != nil {
		return fmt.Errorf("commit invocation: %w", err)
	}
	return nil
}

func insertInvocation(ctx context.Context, ex execer, inv ir.Invocation) error {
	argsJSON, err := marshalObject("args", inv.Args)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO invocations
		(id, method, args, seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.Method,
		argsJSON,
		inv.Seq,
		inv.EngineVersion,
		inv.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("insert invocation %s: %w", inv.ID, duplicateErr(err))
	}
	return nil
}

func insertCompletion(ctx context.Context, ex execer, comp ir.Completion) error {
	resultJSON, err := marshalObject("result", comp.Result)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO completions
		(id, invocation_id, outcome, result, message, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		comp.ID,
		comp.InvocationID,
		string(comp.Outcome),
		resultJSON,
		comp.Message,
		comp.Seq,
	)
	if err != nil {
		return fmt.Errorf("insert completion %s: %w", comp.ID, duplicateErr(err))
	}
	return nil
}

func upsertState(ctx context.Context, ex execer, key string, value []byte, seq int64) error {
	if value == nil {
		value = []byte{}
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO contract_state (key, value, updated_seq)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_seq = excluded.updated_seq
	`, key, value, seq)
	if err != nil {
		return fmt.Errorf("write state %q: %w", key, err)
	}
	return nil
}

// duplicateErr maps a primary key or unique violation to ErrDuplicateRecord.
// Other errors, foreign key violations included, pass through.
func duplicateErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %v", ErrDuplicateRecord, err)
		}
	}
	return err
}
