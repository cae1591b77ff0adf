package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAsyncQueueRunsSubmittedJobs(t *testing.T) {
	q := NewAsyncQueue(4)
	defer q.Stop()

	var mu sync.Mutex
	var ran []int

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		i := i
		q.Submit(func() {
			defer wg.Done()
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queued jobs to run")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ran, 4)
}

func TestAsyncQueueDropsOldestOnOverflow(t *testing.T) {
	// A zero-capacity-ish queue: block the single worker on the first job so
	// the backlog fills immediately, then verify overflow drops rather than
	// blocks the submitter.
	block := make(chan struct{})
	q := NewAsyncQueue(1)
	defer func() {
		close(block)
		q.Stop()
	}()

	q.Submit(func() { <-block }) // occupies the worker
	time.Sleep(10 * time.Millisecond)

	q.Submit(func() {}) // fills the backlog slot

	done := make(chan struct{})
	go func() {
		q.Submit(func() {}) // must not block despite full backlog
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked instead of dropping the oldest queued job")
	}
}
