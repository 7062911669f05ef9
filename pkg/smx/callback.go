package smx

import (
	"sync/atomic"
)

// callbackWorker delivers user update callbacks one at a time on its own
// goroutine, mirroring SMXManager's m_UserCallbackThread: callbacks never
// run on the manager's loop goroutine, so a slow or blocking callback
// can't stall device I/O, and callbacks are always delivered in the order
// they were posted. A single goroutine draining one channel already
// serializes delivery on its own, the same way Manager.run owns its state
// without needing a lock around it; no semaphore is needed on top of that.
type callbackWorker struct {
	jobs chan func()
	done chan struct{}

	running int32
}

func newCallbackWorker() *callbackWorker {
	w := &callbackWorker{
		jobs: make(chan func(), 256),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *callbackWorker) run() {
	for job := range w.jobs {
		atomic.StoreInt32(&w.running, 1)
		job()
		atomic.StoreInt32(&w.running, 0)
	}
	close(w.done)
}

// Post queues fn to run on the callback goroutine. It must not be called
// after Stop.
func (w *callbackWorker) Post(fn func()) {
	w.jobs <- fn
}

// InCallback reports whether a posted job is currently executing. Go has
// no goroutine identity to compare against, unlike the original's
// thread-identity check in SMXManager::Shutdown ("must not be called
// from an SMX callback"), so this substitutes an atomic flag held for
// the duration of each job as the idiomatic equivalent.
func (w *callbackWorker) InCallback() bool {
	return atomic.LoadInt32(&w.running) == 1
}

// Stop drains and closes the worker. It refuses if called while a
// callback is in flight, since that callback could itself be calling
// Stop, which would otherwise deadlock waiting for its own job to finish.
func (w *callbackWorker) Stop() error {
	if w.InCallback() {
		return ErrCallbackReentrant
	}
	close(w.jobs)
	<-w.done
	return nil
}
