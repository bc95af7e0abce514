package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/messages"
)

// MessageOfSize returns a message of n bytes filled with fill.
func MessageOfSize(n int, fill byte) messages.Message {
	return messages.Message(bytes.Repeat([]byte{fill}, n))
}

// MaxMessage returns a message of exactly messages.MaxMessageSizeBytes.
func MaxMessage() messages.Message {
	return MessageOfSize(messages.MaxMessageSizeBytes, 0xAB)
}

// OversizeMessage returns a message one byte over the limit.
func OversizeMessage() messages.Message {
	return MessageOfSize(messages.MaxMessageSizeBytes+1, 0xCD)
}

// StoreWith builds a store holding msgs in order.
func StoreWith(t testing.TB, msgs ...messages.Message) *messages.Store {
	t.Helper()
	s, err := messages.FromMessages(msgs)
	require.NoError(t, err)
	return s
}

// Invocation builds the invocation record a runtime would log for method at
// seq, without running it. Tests log it on its own to leave it pending.
func Invocation(t testing.TB, method string, args ir.IRObject, seq int64) ir.Invocation {
	t.Helper()
	id, err := ir.InvocationID(method, args, seq)
	require.NoError(t, err)
	return ir.Invocation{
		ID:            id,
		Method:        method,
		Args:          args,
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// FixedIDGenerator returns the same run ID on every call, so traces that
// embed a run ID stay byte-identical across test runs.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. An empty id yields
// "test-run-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
