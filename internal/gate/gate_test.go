package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate(t *testing.T) {
	t.Run("acquire after release", func(t *testing.T) {
		g := New()
		g.Release()
		assert.True(t, g.AcquireWithin(time.Second))
	})

	t.Run("acquire times out without release", func(t *testing.T) {
		g := New()
		assert.False(t, g.AcquireWithin(10*time.Millisecond))
	})

	t.Run("extra releases are dropped", func(t *testing.T) {
		g := New()
		g.Release()
		g.Release()
		g.Release()
		assert.True(t, g.AcquireWithin(time.Second))
		assert.False(t, g.AcquireWithin(10*time.Millisecond))
	})

	t.Run("release wakes a blocked waiter", func(t *testing.T) {
		g := New()
		done := make(chan bool)
		go func() {
			g.Acquire()
			done <- true
		}()
		g.Release()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("waiter was not released")
		}
	})
}
