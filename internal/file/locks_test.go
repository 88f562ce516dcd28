package file

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNameLocksSerializeWriters(t *testing.T) {
	locks := newNameLocks()

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("a.txt")
			defer unlock()
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "two writers held the same name")
	assert.Equal(t, 0, locks.size())
}

func TestNameLocksAllowConcurrentReaders(t *testing.T) {
	locks := newNameLocks()

	first := locks.RLock("a.txt")
	acquired := make(chan struct{})
	go func() {
		unlock := locks.RLock("a.txt")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second reader blocked")
	}
	first()
	assert.Equal(t, 0, locks.size())
}

func TestNameLocksDistinctNamesDoNotBlock(t *testing.T) {
	locks := newNameLocks()

	unlockA := locks.Lock("a.txt")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b.txt")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b.txt waited for a.txt")
	}
	assert.Equal(t, 1, locks.size())
	unlockA()
	assert.Equal(t, 0, locks.size())
}
