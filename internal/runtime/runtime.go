// Package runtime hosts the message store behind a method-call interface.
//
// Each invocation runs start to finish under a mutex and inside one log
// write transaction:
//
//	resync clock with the log -> stamp seq -> load state -> run on a clone
//	    -> persist (mutating success only) -> log invocation + completion
//
// An abort discards the clone, so persisted state only ever reflects
// successful invocations. The log records every invocation, aborted or not,
// and Replay re-derives the state from it.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/messages"
	"github.com/roach88/msglog/internal/metrics"
	"github.com/roach88/msglog/internal/state"
	"github.com/roach88/msglog/internal/store"
)

// Result is the logged outcome of one invocation.
type Result struct {
	Invocation ir.Invocation
	Completion ir.Completion
}

// Runtime serializes invocations against a persisted message store.
// Safe for concurrent use.
type Runtime struct {
	mu      sync.Mutex
	log     *store.Store
	backend state.Backend
	clock   Sequencer
	metrics *metrics.Metrics
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock replaces the clock that would otherwise resume from the log.
// Tests use this to inject a deterministic clock.
func WithClock(c Sequencer) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithStateBackend stores state outside the log database.
// By default state lives in the log's contract_state table.
func WithStateBackend(b state.Backend) Option {
	return func(r *Runtime) {
		r.backend = b
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// New creates a runtime over log. The clock resumes after the highest seq
// already logged so reopened databases keep seq strictly increasing.
func New(ctx context.Context, log *store.Store, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		log:     log,
		backend: log,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.clock == nil {
		last, err := log.LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("new runtime: %w", err)
		}
		r.clock = NewClockAt(last)
	}

	current, err := state.Load(ctx, r.backend)
	if err != nil {
		return nil, fmt.Errorf("new runtime: %w", err)
	}
	r.metrics.SetState(current.Len(), state.EncodedSize(current))

	return r, nil
}

// Invoke runs method with args as one all-or-nothing invocation.
//
// On success it returns the logged result and a nil error. On abort it
// returns the logged result and an *InvocationError; persisted state is
// unchanged. Any other error is an infrastructure failure, in which case
// nothing was logged.
//
// Seq stamping, the state load and the commit share one write transaction,
// so runtimes in other processes sharing the log serialize with this one.
func (r *Runtime) Invoke(ctx context.Context, method string, args ir.IRObject) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	if args == nil {
		args = ir.IRObject{}
	}

	var ex *execution
	err := r.log.Update(ctx, func(tx *store.WriteTx) error {
		var err error
		ex, err = r.execute(ctx, tx, method, args)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", method, err)
	}

	if ex.stateBytes > 0 {
		r.metrics.SetState(ex.store.Len(), ex.stateBytes)
	}
	r.metrics.ObserveInvocation(method, string(ex.res.Completion.Outcome), time.Since(started).Seconds())

	inv := ex.res.Invocation
	if ex.abort != nil {
		slog.Info("invocation aborted",
			"id", inv.ID,
			"method", method,
			"code", ex.abort.Code,
			"message", ex.abort.Message,
		)
		return ex.res, ex.abort
	}

	slog.Info("invocation completed",
		"id", inv.ID,
		"method", method,
		"seq", inv.Seq,
		"messages", ex.store.Len(),
	)
	return ex.res, nil
}

// execution is what one invocation produced inside its transaction.
type execution struct {
	res        *Result
	abort      *InvocationError
	store      *messages.Store // state after the invocation
	stateBytes uint64          // encoded size written, 0 when state was not written
}

// execute stamps, runs and records one invocation inside tx.
func (r *Runtime) execute(ctx context.Context, tx *store.WriteTx, method string, args ir.IRObject) (*execution, error) {
	last, err := tx.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	r.clock.Observe(last)

	seq := r.clock.Next()
	invID, err := ir.InvocationID(method, args, seq)
	if err != nil {
		return nil, err
	}
	inv := ir.Invocation{
		ID:            invID,
		Method:        method,
		Args:          args,
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}

	slog.Debug("processing invocation",
		"id", inv.ID,
		"method", method,
		"seq", seq,
	)

	current, err := state.Load(ctx, r.stateBackend(tx))
	if err != nil {
		return nil, err
	}

	working := current.Clone()
	result, mutates, runErr := dispatch(working, method, args)

	outcome := ir.OutcomeSuccess
	var abortMsg string
	var abort *InvocationError
	if runErr != nil {
		if !errors.As(runErr, &abort) {
			return nil, runErr
		}
		outcome = abort.Outcome()
		abortMsg = abort.Message
		result = ir.IRObject{}
		working = current
	}

	compSeq := r.clock.Next()
	compID, err := ir.CompletionID(inv.ID, outcome, result, compSeq)
	if err != nil {
		return nil, err
	}
	comp := ir.Completion{
		ID:           compID,
		InvocationID: inv.ID,
		Outcome:      outcome,
		Result:       result,
		Message:      abortMsg,
		Seq:          compSeq,
	}

	ex := &execution{
		res:   &Result{Invocation: inv, Completion: comp},
		abort: abort,
		store: working,
	}
	if abort == nil && mutates {
		ex.stateBytes = state.EncodedSize(working)
		if err := r.record(ctx, tx, inv, comp, working); err != nil {
			return nil, err
		}
		return ex, nil
	}
	if err := tx.Record(ctx, inv, comp, nil); err != nil {
		return nil, err
	}
	return ex, nil
}

// record logs the invocation together with the new state.
//
// When state shares the log database it lands in the same transaction as
// the records. With a separate backend the state is written first; a crash
// before the log commits leaves state ahead of the log, which Replay
// reports.
func (r *Runtime) record(ctx context.Context, tx *store.WriteTx, inv ir.Invocation, comp ir.Completion, s *messages.Store) error {
	if r.sharesLog() {
		return tx.Record(ctx, inv, comp, &store.StateWrite{Key: state.StateKey, Value: state.Encode(s)})
	}
	if err := state.Save(ctx, r.backend, s); err != nil {
		return err
	}
	return tx.Record(ctx, inv, comp, nil)
}

// stateBackend returns where state is read from during an invocation. State
// kept in the log database must be read through tx, which holds the pool's
// only connection.
func (r *Runtime) stateBackend(tx *store.WriteTx) state.Backend {
	if r.sharesLog() {
		return tx
	}
	return r.backend
}

func (r *Runtime) sharesLog() bool {
	s, ok := r.backend.(*store.Store)
	return ok && s == r.log
}

// Append invokes add and returns the index of the new message.
func (r *Runtime) Append(ctx context.Context, msg []byte) (uint64, error) {
	res, err := r.Invoke(ctx, MethodAdd, ir.IRObject{ArgMessage: BytesValue(msg)})
	if err != nil {
		return 0, err
	}
	index, ok := DecodeUint(res.Completion.Result[ResultIndex])
	if !ok {
		return 0, fmt.Errorf("add: malformed result %v", res.Completion.Result)
	}
	return index, nil
}

// Get invokes get and returns the message at index.
func (r *Runtime) Get(ctx context.Context, index uint64) (messages.Message, error) {
	res, err := r.Invoke(ctx, MethodGet, ir.IRObject{ArgIndex: UintValue(index)})
	if err != nil {
		return nil, err
	}
	msg, ok := DecodeBytes(res.Completion.Result[ResultMessage])
	if !ok {
		return nil, fmt.Errorf("get: malformed result %v", res.Completion.Result)
	}
	return msg, nil
}

// GetMultiple invokes get_multiple and returns up to count messages starting
// at start.
func (r *Runtime) GetMultiple(ctx context.Context, start, count uint64) ([]messages.Message, error) {
	res, err := r.Invoke(ctx, MethodGetMultiple, ir.IRObject{
		ArgStartIndex: UintValue(start),
		ArgCount:      UintValue(count),
	})
	if err != nil {
		return nil, err
	}
	arr, ok := res.Completion.Result[ResultMessages].(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("get_multiple: malformed result %v", res.Completion.Result)
	}
	out := make([]messages.Message, 0, len(arr))
	for i, v := range arr {
		msg, ok := DecodeBytes(v)
		if !ok {
			return nil, fmt.Errorf("get_multiple: malformed message %d", i)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Snapshot returns a copy of the persisted store without logging an
// invocation.
func (r *Runtime) Snapshot(ctx context.Context) (*messages.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := state.Load(ctx, r.backend)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return s, nil
}

// Seq returns the current logical clock value.
func (r *Runtime) Seq() int64 {
	return r.clock.Current()
}
