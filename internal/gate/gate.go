// Package gate provides a binary semaphore used to order task startup
// and to wait for process completion.
package gate

import "time"

// A Gate holds at most one pending signal. Release never blocks, extra
// releases while a signal is already pending are dropped. Waiters are
// satisfied one per signal.
type Gate struct {
	ch chan struct{}
}

func New() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Block until the gate is released
func (g *Gate) Acquire() {
	<-g.ch
}

// Block until the gate is released or the timeout expires.
// Returns true if the signal was taken.
func (g *Gate) AcquireWithin(timeout time.Duration) bool {
	select {
	case <-g.ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (g *Gate) Release() {
	select {
	case g.ch <- struct{}{}:
	default:
	}
}
