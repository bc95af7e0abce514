package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msglog/internal/messages"
	"github.com/roach88/msglog/internal/state"
)

func TestReadState_Missing(t *testing.T) {
	s := createTestStore(t)

	value, found, err := s.ReadState(context.Background(), state.StateKey)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	_, found, err = s.StateUpdatedSeq(context.Background(), state.StateKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteState_Overwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteState(ctx, "k", []byte("one")))
	require.NoError(t, s.WriteState(ctx, "k", []byte("two")))

	value, found, err := s.ReadState(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("two"), value)
}

func TestWriteState_EmptyValueIsFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteState(ctx, "k", nil))

	value, found, err := s.ReadState(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{}, value)
}

func TestStore_AsStateBackend(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ms := messages.New()
	_, err := ms.Append(messages.Message("hi"))
	require.NoError(t, err)
	require.NoError(t, state.Save(ctx, s, ms))

	loaded, err := state.Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, ms.Messages(), loaded.Messages())
}
