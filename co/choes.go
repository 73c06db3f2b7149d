package co

import "sync"

// Choes runs a group of stoppable goroutines: each receives a stop
// channel it must select on, and Stop closes that channel for all of
// them at once. The sync driver uses this to run its fetch/apply loop
// as a background task the CLI entrypoint can shut down cleanly.
type Choes struct {
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewChoes returns a ready-to-use Choes.
func NewChoes() *Choes {
	return &Choes{stopChan: make(chan struct{})}
}

// Go starts f in a new goroutine, passing it the shared stop channel.
func (c *Choes) Go(f func(stopChan chan struct{})) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		f(c.stopChan)
	}()
}

// Stop closes the stop channel, signaling every running goroutine to
// return. Safe to call more than once or concurrently.
func (c *Choes) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

// Wait blocks until every goroutine started by Go has returned.
func (c *Choes) Wait() {
	c.wg.Wait()
}
