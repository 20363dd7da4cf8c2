package co

import "sync"

// Choes ("cancellable Goes") manages a group of goroutines that each
// receive a shared stop channel, closed exactly once by Stop. It is the
// primitive the execution engine uses for cooperative per-job
// cancellation: the per-node dispatch loop checks the stop channel
// between nodes (spec.md §5 "Cancellation & timeouts"); no goroutine is
// ever forcibly interrupted mid-node.
type Choes struct {
	wg   sync.WaitGroup
	once sync.Once
	stop chan struct{}
}

// NewChoes returns a ready-to-use Choes.
func NewChoes() *Choes {
	return &Choes{stop: make(chan struct{})}
}

// Go starts f in a new goroutine, passing it the group's shared stop
// channel.
func (g *Choes) Go(f func(stopChan chan struct{})) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f(g.stop)
	}()
}

// Stop closes the shared stop channel, signalling every running
// goroutine to exit at its next cooperative checkpoint. Safe to call
// more than once or concurrently.
func (g *Choes) Stop() {
	g.once.Do(func() {
		close(g.stop)
	})
}

// Wait blocks until every goroutine started by Go has returned.
func (g *Choes) Wait() {
	g.wg.Wait()
}
