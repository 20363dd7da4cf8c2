package co

import "runtime"

// Parallel runs work items across a bounded pool of workers (sized to
// GOMAXPROCS) and returns a channel that is closed once every item
// enqueued by enqueue has been executed.
//
// enqueue is invoked once, on its own goroutine (Parallel returns
// without waiting for it), with a channel it should send work funcs to
// and then close (implicitly, by returning — Parallel closes the queue
// itself once enqueue returns).
func Parallel(enqueue func(queue chan<- func())) <-chan struct{} {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}

	queue := make(chan func())
	done := make(chan struct{})

	var workers Goes
	for range n {
		workers.Go(func() {
			for fn := range queue {
				fn()
			}
		})
	}

	go func() {
		enqueue(queue)
		close(queue)
		workers.Wait()
		close(done)
	}()

	return done
}
