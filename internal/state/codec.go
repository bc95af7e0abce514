// Package state persists the message store between invocations.
//
// The store is serialized with a length-prefixed binary layout compatible
// with Borsh's encoding of a sequence of byte vectors:
//
//	u32 LE  message count
//	repeated count times:
//	  u32 LE  message length
//	  []byte  message bytes
//
// The encoded blob is written under StateKey in a Backend. Backends are plain
// key/value stores; the SQLite backend lives in internal/store and the Pebble
// backend lives here.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/msglog/internal/messages"
)

// StateKey is the key the message store is persisted under.
const StateKey = "STATE"

const lenPrefixSize = 4

// ErrCorruptState indicates a state blob that cannot be decoded.
var ErrCorruptState = errors.New("corrupt state")

// Encode serializes the store. Encoding is deterministic: equal stores
// produce identical bytes.
func Encode(s *messages.Store) []byte {
	msgs := s.Messages()

	size := lenPrefixSize
	for _, m := range msgs {
		size += lenPrefixSize + len(m)
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(msgs)))
	for _, m := range msgs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m)))
		buf = append(buf, m...)
	}
	return buf
}

// Decode parses a blob produced by Encode.
//
// Truncated input, trailing bytes and messages longer than
// messages.MaxMessageSizeBytes are rejected with an error wrapping
// ErrCorruptState.
func Decode(data []byte) (*messages.Store, error) {
	count, rest, err := readLen(data)
	if err != nil {
		return nil, fmt.Errorf("%w: message count: %v", ErrCorruptState, err)
	}

	// Every message needs at least its length prefix; reject counts that
	// cannot fit before allocating.
	if uint64(count)*lenPrefixSize > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrCorruptState, count, len(rest))
	}

	msgs := make([]messages.Message, 0, count)
	for i := uint32(0); i < count; i++ {
		var n uint32
		n, rest, err = readLen(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d length: %v", ErrCorruptState, i, err)
		}
		if uint64(n) > uint64(len(rest)) {
			return nil, fmt.Errorf("%w: message %d truncated (want %d bytes, have %d)", ErrCorruptState, i, n, len(rest))
		}
		msgs = append(msgs, messages.Message(rest[:n]))
		rest = rest[n:]
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptState, len(rest))
	}

	s, err := messages.FromMessages(msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return s, nil
}

// EncodedSize returns len(Encode(s)) without encoding.
func EncodedSize(s *messages.Store) uint64 {
	return lenPrefixSize + s.Len()*lenPrefixSize + s.TotalBytes()
}

func readLen(data []byte) (uint32, []byte, error) {
	if len(data) < lenPrefixSize {
		return 0, nil, fmt.Errorf("need %d bytes, have %d", lenPrefixSize, len(data))
	}
	return binary.LittleEndian.Uint32(data), data[lenPrefixSize:], nil
}
