package state

import (
	"context"
	"fmt"

	"github.com/roach88/msglog/internal/messages"
)

// Backend is durable key/value storage for the persisted state.
//
// ReadState returns found=false (and no error) for a key that was never
// written. Implementations must make WriteState durable before returning.
type Backend interface {
	ReadState(ctx context.Context, key string) (value []byte, found bool, err error)
	WriteState(ctx context.Context, key string, value []byte) error
	Close() error
}

// Load reads and decodes the message store from b.
// A missing key yields an empty store: state is initialized on first use.
func Load(ctx context.Context, b Backend) (*messages.Store, error) {
	data, found, err := b.ReadState(ctx, StateKey)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !found {
		return messages.New(), nil
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return s, nil
}

// Save encodes s and writes it to b.
func Save(ctx context.Context, b Backend, s *messages.Store) error {
	if err := b.WriteState(ctx, StateKey, Encode(s)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
