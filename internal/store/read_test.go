package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msglog/internal/ir"
)

func seedLog(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	// Written out of seq order to exercise ORDER BY.
	records := []struct {
		inv     ir.Invocation
		outcome ir.Outcome
	}{
		{createTestInvocation("inv-c", "get", 5), "INDEX_OUT_OF_BOUNDS"},
		{createTestInvocation("inv-a", "add", 1), ir.OutcomeSuccess},
		{createTestInvocation("inv-b", "add", 3), ir.OutcomeSuccess},
	}
	for _, r := range records {
		comp := createTestCompletion("comp-"+r.inv.ID, r.inv.ID, r.outcome, r.inv.Seq+1)
		require.NoError(t, s.CommitInvocation(ctx, r.inv, comp, nil))
	}
}

func TestReadAllInvocations_Ordered(t *testing.T) {
	s := createTestStore(t)
	seedLog(t, s)

	invs, err := s.ReadAllInvocations(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(invs))
	for i, inv := range invs {
		ids[i] = inv.ID
	}
	assert.Equal(t, []string{"inv-a", "inv-b", "inv-c"}, ids)
}

func TestReadAll_EmptyLogReturnsEmptySlices(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	invs, err := s.ReadAllInvocations(ctx)
	require.NoError(t, err)
	assert.NotNil(t, invs)
	assert.Empty(t, invs)

	comps, err := s.ReadAllCompletions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, comps)
	assert.Empty(t, comps)
}

func TestReadInvocation_RoundTripsArgs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inv := createTestInvocation("inv-1", "get_multiple", 1)
	inv.Args = ir.IRObject{
		"start_index": ir.IRInt(1 << 60),
		"count":       ir.IRInt(3),
	}
	require.NoError(t, s.WriteInvocation(ctx, inv))

	got, err := s.ReadInvocation(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, inv, got)
}

func TestReadInvocation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadInvocation(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = s.ReadCompletion(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadCompletion_Message(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteInvocation(ctx, createTestInvocation("inv-1", "add", 1)))
	comp := createTestCompletion("comp-1", "inv-1", "MESSAGE_TOO_LARGE", 2)
	comp.Message = "Message exceeds the 1KB size limit"
	require.NoError(t, s.WriteCompletion(ctx, comp))

	got, err := s.ReadCompletion(ctx, "comp-1")
	require.NoError(t, err)
	assert.Equal(t, comp, got)
	assert.False(t, got.Succeeded())
}

func TestReadTrace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedLog(t, s)
	require.NoError(t, s.WriteInvocation(ctx, createTestInvocation("inv-d", "add", 9)))

	trace, err := s.ReadTrace(ctx)
	require.NoError(t, err)
	require.Len(t, trace, 4)

	assert.Equal(t, "inv-a", trace[0].Invocation.ID)
	require.NotNil(t, trace[0].Completion)
	assert.Equal(t, "comp-inv-a", trace[0].Completion.ID)
	assert.Equal(t, ir.Outcome("INDEX_OUT_OF_BOUNDS"), trace[2].Completion.Outcome)
	assert.Nil(t, trace[3].Completion)
}

func TestFindPendingInvocations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedLog(t, s)

	pending, err := s.FindPendingInvocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, s.WriteInvocation(ctx, createTestInvocation("inv-d", "add", 9)))
	pending, err = s.FindPendingInvocations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "inv-d", pending[0].ID)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	seedLog(t, s)
	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), seq) // completion of inv-c
}

func TestCountByOutcome(t *testing.T) {
	s := createTestStore(t)
	seedLog(t, s)

	counts, err := s.CountByOutcome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[ir.Outcome]int{
		ir.OutcomeSuccess:     2,
		"INDEX_OUT_OF_BOUNDS": 1,
	}, counts)
}
