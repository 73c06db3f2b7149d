// Package co provides small goroutine-orchestration helpers used by the
// CLI entrypoint to run the sync loop as a restartable, waitable
// background task.
package co

import "sync"

// Goes runs a group of goroutines and supports waiting for all of them
// to finish. The zero value is ready to use.
type Goes struct {
	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

func (g *Goes) init() {
	g.once.Do(func() { g.done = make(chan struct{}) })
}

// Go starts f in a new goroutine, tracked by this Goes.
func (g *Goes) Go(f func()) {
	g.init()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every goroutine started by Go has returned, then
// closes the channel returned by Done.
func (g *Goes) Wait() {
	g.init()
	g.wg.Wait()
	select {
	case <-g.done:
	default:
		close(g.done)
	}
}

// Done returns a channel that's closed once Wait has observed every
// goroutine finish.
func (g *Goes) Done() <-chan struct{} {
	g.init()
	return g.done
}
