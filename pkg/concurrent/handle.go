package concurrent

// Handle tracks work started by Go. It can be polled without blocking or
// waited on.
type Handle struct {
	done chan struct{}
}

// Go runs fn in its own goroutine.
func Go(fn func()) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		fn()
	}()
	return h
}

// Completed returns a handle that is already done.
func Completed() *Handle {
	h := &Handle{done: make(chan struct{})}
	close(h.done)
	return h
}

// IsCompleted reports whether the work has finished. It never blocks.
func (h *Handle) IsCompleted() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the work has finished.
func (h *Handle) Wait() {
	<-h.done
}

// Done exposes the completion channel for select loops.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
