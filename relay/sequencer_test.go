package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequencerPreservesPerUserOrder(t *testing.T) {
	s := NewSequencer()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup

	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		s.Do(7, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, i, got[i])
	}
}

func TestSequencerRunsUsersConcurrently(t *testing.T) {
	s := NewSequencer()

	blocker := make(chan struct{})
	firstRunning := make(chan struct{})
	done := make(chan struct{})

	// User 1's task blocks until released.
	s.Do(1, func() {
		close(firstRunning)
		<-blocker
	})
	<-firstRunning

	// User 2's task must run even while user 1's worker is blocked.
	s.Do(2, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second user's task was blocked by the first user's worker")
	}
	close(blocker)
}

func TestSequencerReusableAfterDrain(t *testing.T) {
	s := NewSequencer()

	run := func() {
		done := make(chan struct{})
		s.Do(1, func() { close(done) })
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task did not run")
		}
	}

	run()
	// The worker exits once drained; a later event must start a fresh one.
	time.Sleep(10 * time.Millisecond)
	run()
}
