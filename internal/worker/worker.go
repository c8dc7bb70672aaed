// Package worker provides a tiny monitor used to overlap the decoder's
// deblock-and-emit phase with parsing of the next macroblock row.
//
// A Worker is a three-state monitor: NotOk before Reset and after End,
// Ok while idle, Work while a hook runs. Launch hands one job to the
// worker; Sync blocks until it finished and reports accumulated hook
// results. The synchronous fallback implements the same interface
// without a goroutine, and callers must never assume a real thread.
package worker

import "sync"

// Hook is the unit of work. It returns false to report failure; the
// failure is sticky until the next Reset.
type Hook func(data interface{}) bool

// Interface is the monitor contract shared by the concurrent and the
// synchronous implementations.
type Interface interface {
	Reset() bool
	Launch(hook Hook, data interface{}) bool
	Sync() bool
	End()
}

// Status of the monitor.
type status int

const (
	notOk status = iota
	ok          // idle, ready for Launch
	work        // hook executing
)

// Worker runs hooks on one background goroutine.
type Worker struct {
	mu     sync.Mutex
	cond   *sync.Cond
	state  status
	hadErr bool

	hook Hook
	data interface{}
}

// New returns an unstarted Worker; Reset starts it.
func New() *Worker {
	w := &Worker{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Reset (re)starts the worker goroutine and clears the error state.
func (w *Worker) Reset() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == notOk {
		w.state = ok
		go w.loop()
	}
	w.hadErr = false
	return true
}

func (w *Worker) loop() {
	w.mu.Lock()
	for {
		for w.state == ok {
			w.cond.Wait()
		}
		if w.state == notOk {
			break
		}
		// state == work
		hook, data := w.hook, w.data
		w.mu.Unlock()
		okRun := hook(data)
		w.mu.Lock()
		if !okRun {
			w.hadErr = true
		}
		if w.state == work {
			w.state = ok
		}
		w.cond.Broadcast()
	}
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Sync waits until the worker is idle and returns false if any hook
// failed since the last Reset.
func (w *Worker) Sync() bool {
	w.mu.Lock()
	for w.state == work {
		w.cond.Wait()
	}
	err := w.hadErr
	w.mu.Unlock()
	return !err
}

// Launch hands one job to the worker. The previous job must have been
// synced first; Launch blocks if it has not.
func (w *Worker) Launch(hook Hook, data interface{}) bool {
	w.mu.Lock()
	for w.state == work {
		w.cond.Wait()
	}
	if w.state != ok {
		w.mu.Unlock()
		return false
	}
	w.hook = hook
	w.data = data
	w.state = work
	w.cond.Broadcast()
	w.mu.Unlock()
	return true
}

// End terminates the worker goroutine after draining any running job.
func (w *Worker) End() {
	w.mu.Lock()
	for w.state == work {
		w.cond.Wait()
	}
	if w.state == ok {
		w.state = notOk
		w.cond.Broadcast()
	}
	w.mu.Unlock()
}

// Sequential is the no-thread fallback: hooks run inline on Launch.
type Sequential struct {
	hadErr bool
	active bool
}

// NewSequential returns a synchronous implementation of the contract.
func NewSequential() *Sequential { return &Sequential{} }

// Reset clears the error state.
func (s *Sequential) Reset() bool {
	s.hadErr = false
	s.active = true
	return true
}

// Launch runs the hook immediately.
func (s *Sequential) Launch(hook Hook, data interface{}) bool {
	if !s.active {
		return false
	}
	if !hook(data) {
		s.hadErr = true
	}
	return true
}

// Sync reports whether every hook since Reset succeeded.
func (s *Sequential) Sync() bool { return !s.hadErr }

// End deactivates the instance.
func (s *Sequential) End() { s.active = false }
