package orchestration

import "sync"

// reactor runs posted tasks one at a time in posting order. There is no
// dedicated goroutine: the first poster drains the queue, later posters only
// enqueue. Tasks posted from inside a task run after it returns.
//
// Session state is only touched from reactor tasks.
type reactor struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

func (r *reactor) post(task func()) {
	r.mu.Lock()
	r.queue = append(r.queue, task)
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true

	for len(r.queue) > 0 {
		next := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.mu.Unlock()

		runTask(next)

		r.mu.Lock()
	}
	r.running = false
	r.mu.Unlock()
}

func runTask(task func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("session task panicked", "panic", recovered)
		}
	}()
	task()
}
