// Package runloop is the single-threaded cooperative task queue the host
// drives. Work may be submitted from any goroutine but only runs on the
// goroutine that calls RunPending or RenderSettled.
package runloop

import "sync"

// Task is a deferred unit of work that can be cancelled until it runs.
type Task struct {
	mu        sync.Mutex
	fn        func()
	cancelled bool
	done      bool
}

// Cancel prevents the task from running. Safe to call more than once and
// after the task already ran.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// Pending reports whether the task is still waiting to run.
func (t *Task) Pending() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.cancelled && !t.done
}

func (t *Task) run() {
	t.mu.Lock()
	if t.cancelled || t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	fn := t.fn
	t.mu.Unlock()
	fn()
}

// Loop holds the immediate queue and the after-render queue.
type Loop struct {
	mu          sync.Mutex
	queue       []func()
	afterRender []*Task
	wake        chan struct{}
	closed      bool
}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Schedule queues fn for the next RunPending.
func (l *Loop) Schedule(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// AfterRender queues fn to run once the next render pass has settled.
func (l *Loop) AfterRender(fn func()) *Task {
	t := &Task{fn: fn}
	if fn == nil {
		t.done = true
		return t
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		t.cancelled = true
		return t
	}
	l.afterRender = append(l.afterRender, t)
	l.mu.Unlock()
	l.signal()
	return t
}

// Wake fires (coalesced) whenever new work is submitted.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// RunPending runs queued tasks until the queue is empty, including tasks
// scheduled by the tasks it runs. It returns the number of tasks run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// RenderSettled runs the after-render tasks queued before the call. Tasks
// deferred while they run wait for the following render.
func (l *Loop) RenderSettled() int {
	l.mu.Lock()
	batch := l.afterRender
	l.afterRender = nil
	l.mu.Unlock()

	n := 0
	for _, t := range batch {
		if t.Pending() {
			t.run()
			n++
		}
	}
	return n
}

// HasAfterRender reports whether any non-cancelled after-render task waits.
func (l *Loop) HasAfterRender() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.afterRender {
		if t.Pending() {
			return true
		}
	}
	return false
}

// Close drops all queued work. Later submissions are ignored.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for _, t := range l.afterRender {
		t.Cancel()
	}
	l.queue = nil
	l.afterRender = nil
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
