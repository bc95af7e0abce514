// Package messages implements the append-only message store.
//
// The store is an ordered sequence of opaque byte buffers indexed from 0.
// It supports exactly three operations:
//   - Append: add a message of at most MaxMessageSizeBytes to the end
//   - Get: fetch a copy of the message at an index
//   - GetMultiple: fetch copies of a contiguous range, clamped to the end
//
// # Invariants
//
//   - Every stored message is at most MaxMessageSizeBytes long. Oversize
//     input is rejected before insertion and never enters the sequence.
//   - The sequence only grows. There is no delete or update.
//   - Indices are stable: a message stored at i stays at i.
//
// # Errors
//
// Every rejection is a *Error carrying a Code. Callers treat any *Error as
// fatal to the current invocation; the store is left unchanged when one is
// returned.
//
// The store holds no locks. Serializing access is the caller's job (see
// internal/runtime).
package messages
