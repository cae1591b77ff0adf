package repository

import "log"

// AsyncQueue is the explicit "async best-effort" persistence path REDESIGN
// FLAGS calls for: a bounded backlog channel drained by a single worker.
// On overflow the oldest queued job is dropped with a log line rather than
// blocking the caller — grounded on the teacher's Client.send
// bounded-channel-with-drop idiom in internal/websocket/client.go, here
// applied to persistence jobs instead of outbound websocket frames.
type AsyncQueue struct {
	jobs chan func()
}

// NewAsyncQueue starts a worker goroutine draining a channel of size
// backlog. Call Stop to let the worker drain and exit.
func NewAsyncQueue(backlog int) *AsyncQueue {
	if backlog <= 0 {
		backlog = 256
	}
	q := &AsyncQueue{jobs: make(chan func(), backlog)}
	go q.run()
	return q
}

func (q *AsyncQueue) run() {
	for job := range q.jobs {
		job()
	}
}

// Submit enqueues job for best-effort execution. If the backlog is full,
// the oldest queued job is dropped to make room, and a warning is logged;
// the new job is still enqueued so recent work is preferred over stale work.
func (q *AsyncQueue) Submit(job func()) {
	select {
	case q.jobs <- job:
		return
	default:
	}

	select {
	case dropped := <-q.jobs:
		_ = dropped
		log.Println("repository: async queue backlog full, dropped oldest job")
	default:
	}

	select {
	case q.jobs <- job:
	default:
		log.Println("repository: async queue backlog full, dropped incoming job")
	}
}

// Stop closes the job channel; the worker goroutine drains remaining jobs
// and then exits.
func (q *AsyncQueue) Stop() {
	close(q.jobs)
}
