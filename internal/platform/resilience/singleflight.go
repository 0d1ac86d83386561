package resilience

import "sync"

// SingleFlight deduplicates concurrent calls for the same key. Callers that
// arrive while a call is in flight receive its result instead of running fn.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
}

// Result is delivered on the channel returned by DoChan.
type Result[T any] struct {
	Val    T
	Err    error
	Shared bool
}

type call[T any] struct {
	wg    sync.WaitGroup
	val   T
	err   error
	dups  int
	chans []chan<- Result[T]
}

func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
	}

	if c, ok := g.calls[key]; ok {
		c.dups++
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	g.doCall(c, key, fn)
	return c.val, c.err, c.dups > 0
}

// DoChan is like Do but returns immediately. fn runs on its own goroutine and
// keeps running when a caller stops reading from the channel.
func (g *SingleFlight[T]) DoChan(key string, fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)

	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
	}

	if c, ok := g.calls[key]; ok {
		c.dups++
		c.chans = append(c.chans, ch)
		g.mu.Unlock()
		return ch
	}

	c := &call[T]{chans: []chan<- Result[T]{ch}}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	go g.doCall(c, key, fn)
	return ch
}

func (g *SingleFlight[T]) doCall(c *call[T], key string, fn func() (T, error)) {
	defer func() {
		g.mu.Lock()
		delete(g.calls, key)
		for _, ch := range c.chans {
			ch <- Result[T]{Val: c.val, Err: c.err, Shared: c.dups > 0}
		}
		g.mu.Unlock()
		c.wg.Done()
	}()

	c.val, c.err = fn()
}
