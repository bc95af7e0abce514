package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/msglog/internal/testutil"
)

var (
	_ Sequencer = (*Clock)(nil)
	_ Sequencer = (*testutil.DeterministicClock)(nil)
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(100)
	assert.Equal(t, int64(100), c.Current())
	assert.Equal(t, int64(101), c.Next())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines, calls = 50, 100

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d generated twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, goroutines*calls)
}

func TestClock_Observe(t *testing.T) {
	c := NewClockAt(5)
	c.Observe(3)
	assert.Equal(t, int64(5), c.Current(), "never moves back")
	c.Observe(9)
	assert.Equal(t, int64(9), c.Current())
	assert.Equal(t, int64(10), c.Next())
}
