package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebbleBackend stores state in a Pebble LSM key/value store.
// Writes use pebble.Sync so a successful WriteState survives a crash.
type PebbleBackend struct {
	db *pebble.DB
}

var _ Backend = (*PebbleBackend)(nil)

// OpenPebble opens (or creates) a Pebble database in dir.
func OpenPebble(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	return &PebbleBackend{db: db}, nil
}

// OpenPebbleInMemory opens a Pebble database on an in-memory filesystem.
// Used by tests and throwaway runs; nothing touches disk.
func OpenPebbleInMemory() (*PebbleBackend, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory pebble: %w", err)
	}
	return &PebbleBackend{db: db}, nil
}

// ReadState implements Backend.
// The returned slice is a copy; Pebble's buffer is released before return.
func (p *PebbleBackend) ReadState(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get %q: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// WriteState implements Backend.
func (p *PebbleBackend) WriteState(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %q: %w", key, err)
	}
	return nil
}

// Close closes the database. Safe to call on a nil backend.
func (p *PebbleBackend) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
