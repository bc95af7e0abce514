package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/msglog/internal/ir"
)

// TraceEntry pairs an invocation with its completion.
// Completion is nil for an invocation that never completed.
type TraceEntry struct {
	Invocation ir.Invocation
	Completion *ir.Completion
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const invocationColumns = `id, method, args, seq, engine_version, ir_version`

const completionColumns = `id, invocation_id, outcome, result, message, seq`

// ReadInvocation retrieves a single invocation by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadInvocation(ctx context.Context, id string) (ir.Invocation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+invocationColumns+`
		FROM invocations
		WHERE id = ?
	`, id)
	return scanInvocation(row)
}

// ReadCompletion retrieves a single completion by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCompletion(ctx context.Context, id string) (ir.Completion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+completionColumns+`
		FROM completions
		WHERE id = ?
	`, id)
	return scanCompletion(row)
}

// ReadCompletionFor retrieves the completion of an invocation.
// Returns sql.ErrNoRows if the invocation has not completed.
func (s *Store) ReadCompletionFor(ctx context.Context, invocationID string) (ir.Completion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+completionColumns+`
		FROM completions
		WHERE invocation_id = ?
	`, invocationID)
	return scanCompletion(row)
}

// ReadAllInvocations returns all invocations ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) for an empty log.
func (s *Store) ReadAllInvocations(ctx context.Context) ([]ir.Invocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invocationColumns+`
		FROM invocations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all invocations: %w", err)
	}
	defer rows.Close()

	invocations := []ir.Invocation{}
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		invocations = append(invocations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return invocations, nil
}

// ReadAllCompletions returns all completions ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) for an empty log.
func (s *Store) ReadAllCompletions(ctx context.Context) ([]ir.Completion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+completionColumns+`
		FROM completions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all completions: %w", err)
	}
	defer rows.Close()

	completions := []ir.Completion{}
	for rows.Next() {
		comp, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, comp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return completions, nil
}

// ReadTrace returns every invocation joined with its completion, ordered by
// invocation seq ASC, id ASC. This is the timeline used by replay and the
// log command.
func (s *Store) ReadTrace(ctx context.Context) ([]TraceEntry, error) {
	invocations, err := s.ReadAllInvocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	completions, err := s.ReadAllCompletions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	byInvocation := make(map[string]ir.Completion, len(completions))
	for _, c := range completions {
		byInvocation[c.InvocationID] = c
	}

	trace := make([]TraceEntry, 0, len(invocations))
	for _, inv := range invocations {
		entry := TraceEntry{Invocation: inv}
		if c, ok := byInvocation[inv.ID]; ok {
			entry.Completion = &c
		}
		trace = append(trace, entry)
	}
	return trace, nil
}

// FindPendingInvocations returns invocations without a completion, ordered by
// seq ASC, id ASC. CommitInvocation never leaves any; they appear only when
// WriteInvocation was used without a matching WriteCompletion.
func (s *Store) FindPendingInvocations(ctx context.Context) ([]ir.Invocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.method, i.args, i.seq, i.engine_version, i.ir_version
		FROM invocations i
		LEFT JOIN completions c ON c.invocation_id = i.id
		WHERE c.id IS NULL
		ORDER BY i.seq ASC, i.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find pending invocations: %w", err)
	}
	defer rows.Close()

	pending := []ir.Invocation{}
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending invocation: %w", err)
		}
		pending = append(pending, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending invocations: %w", err)
	}
	return pending, nil
}

// LastSeq returns the highest seq recorded in the log, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	return lastSeq(ctx, s.db)
}

func lastSeq(ctx context.Context, q querier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM invocations
			UNION ALL
			SELECT seq FROM completions
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// CountByOutcome returns the number of completions per outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[ir.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*)
		FROM completions
		GROUP BY outcome
		ORDER BY outcome COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count by outcome: %w", err)
	}
	defer rows.Close()

	counts := make(map[ir.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[ir.Outcome(outcome)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}

// scanInvocation returns row.Scan's error unwrapped so callers can test for
// sql.ErrNoRows.
func scanInvocation(row scanner) (ir.Invocation, error) {
	var inv ir.Invocation
	var argsJSON string

	if err := row.Scan(
		&inv.ID, &inv.Method, &argsJSON, &inv.Seq, &inv.EngineVersion, &inv.IRVersion,
	); err != nil {
		return ir.Invocation{}, err
	}

	args, err := unmarshalObject("args", argsJSON)
	if err != nil {
		return ir.Invocation{}, err
	}
	inv.Args = args
	return inv, nil
}

func scanCompletion(row scanner) (ir.Completion, error) {
	var comp ir.Completion
	var outcome, resultJSON string

	if err := row.Scan(
		&comp.ID, &comp.InvocationID, &outcome, &resultJSON, &comp.Message, &comp.Seq,
	); err != nil {
		return ir.Completion{}, err
	}
	comp.Outcome = ir.Outcome(outcome)

	result, err := unmarshalObject("result", resultJSON)
	if err != nil {
		return ir.Completion{}, err
	}
	comp.Result = result
	return comp, nil
}
