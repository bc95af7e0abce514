package messages

// MaxMessageSizeBytes is the largest accepted message, inclusive.
const MaxMessageSizeBytes = 1024

// Message is an opaque byte buffer.
type Message []byte

// Store is an append-only ordered sequence of messages.
// The zero value is an empty store ready for use.
type Store struct {
	messages []Message
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// FromMessages rebuilds a store from a previously persisted sequence.
// Each message is copied. Any message longer than MaxMessageSizeBytes is
// rejected with MessageTooLarge, so a loaded store always satisfies the
// size invariant.
func FromMessages(msgs []Message) (*Store, error) {
	s := &Store{messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		if _, err := s.Append(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Len returns the number of stored messages.
func (s *Store) Len() uint64 {
	return uint64(len(s.messages))
}

// Append adds msg to the end of the store and returns its index, which is
// the length before insertion. A copy of msg is stored.
//
// Returns MessageTooLarge, leaving the store unchanged, when
// len(msg) > MaxMessageSizeBytes.
func (s *Store) Append(msg Message) (uint64, error) {
	if len(msg) > MaxMessageSizeBytes {
		return 0, newTooLargeError(len(msg))
	}
	index := s.Len()
	s.messages = append(s.messages, clone(msg))
	return index, nil
}

// Get returns a copy of the message at index.
// Returns IndexOutOfBounds when index >= Len().
func (s *Store) Get(index uint64) (Message, error) {
	if index >= s.Len() {
		return nil, newIndexError(index, s.Len())
	}
	return clone(s.messages[index]), nil
}

// GetMultiple returns copies of up to count messages starting at start.
// The range is clamped to the end of the store, so an overshooting count is
// not an error. count == 0 returns an empty, non-nil slice.
//
// Returns StartIndexOutOfBounds when start >= Len(), regardless of count.
func (s *Store) GetMultiple(start, count uint64) ([]Message, error) {
	length := s.Len()
	if start >= length {
		return nil, newStartIndexError(start, length)
	}

	// Compare against the remaining length instead of computing start+count,
	// which can overflow for large counts.
	end := length
	if count < length-start {
		end = start + count
	}

	out := make([]Message, 0, end-start)
	for _, m := range s.messages[start:end] {
		out = append(out, clone(m))
	}
	return out, nil
}

// Messages returns a deep copy of the full sequence.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = clone(m)
	}
	return out
}

// Clone returns a deep copy of the store. Mutating the clone never affects s.
func (s *Store) Clone() *Store {
	return &Store{messages: s.Messages()}
}

// TotalBytes returns the summed length of all stored messages.
func (s *Store) TotalBytes() uint64 {
	var n uint64
	for _, m := range s.messages {
		n += uint64(len(m))
	}
	return n
}

// clone copies a message. A nil or empty input yields an empty, non-nil message
// so zero-length messages compare equal regardless of their origin.
func clone(m Message) Message {
	out := make(Message, len(m))
	copy(out, m)
	return out
}
