package co

import "sync"

// Signal is a broadcast-once condition variable: each Broadcast wakes
// every Waiter created since the previous Broadcast (or since the
// Signal's zero value), and has no effect on Waiters created afterwards.
// Used by the audit log to let wait()/status() callers block for a new
// leaf without polling, and to snapshot readers without blocking writers.
type Signal struct {
	mu  sync.Mutex
	gen chan struct{}
}

// Waiter observes a single generation of a Signal.
type Waiter struct {
	c chan struct{}
}

// C returns the channel that closes when the generation this Waiter was
// created for is broadcast.
func (w Waiter) C() <-chan struct{} {
	return w.c
}

func (s *Signal) current() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == nil {
		s.gen = make(chan struct{})
	}
	return s.gen
}

// NewWaiter returns a Waiter for the current generation.
func (s *Signal) NewWaiter() Waiter {
	return Waiter{c: s.current()}
}

// Broadcast closes the current generation's channel, waking every Waiter
// created since the last Broadcast, and starts a fresh generation.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != nil {
		close(s.gen)
	}
	s.gen = make(chan struct{})
}
