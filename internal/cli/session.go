package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/msglog/internal/config"
	"github.com/roach88/msglog/internal/metrics"
	"github.com/roach88/msglog/internal/runtime"
	"github.com/roach88/msglog/internal/state"
	"github.com/roach88/msglog/internal/store"
)

// session is one command's view of the database: the log, the state
// backend, and a runtime with its own metrics registry.
type session struct {
	log      *store.Store
	pebble   *state.PebbleBackend // nil for the sqlite backend
	registry *prometheus.Registry
	runtime  *runtime.Runtime
}

// openSession opens the log and state backend named by opts. Errors are
// command errors.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &session{log: st, registry: prometheus.NewRegistry()}
	rtOpts := []runtime.Option{runtime.WithMetrics(metrics.New(s.registry))}

	if opts.Backend == config.BackendPebble {
		pb, err := state.OpenPebble(opts.StateDir)
		if err != nil {
			_ = st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open state directory", err)
		}
		s.pebble = pb
		rtOpts = append(rtOpts, runtime.WithStateBackend(pb))
	}

	rt, err := runtime.New(ctx, st, rtOpts...)
	if err != nil {
		_ = s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start runtime", err)
	}
	s.runtime = rt

	slog.Debug("session opened",
		"db", opts.Database,
		"backend", opts.Backend,
		"seq", rt.Seq(),
	)
	return s, nil
}

// Close releases the state backend and the log.
func (s *session) Close() error {
	var errs []error
	if s.pebble != nil {
		errs = append(errs, s.pebble.Close())
	}
	errs = append(errs, s.log.Close())
	if err := errors.Join(errs...); err != nil {
		slog.Error("error closing session", "error", err)
		return err
	}
	return nil
}
