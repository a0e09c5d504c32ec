package client

// result is what the read loop delivers to a waiter: either a decoded
// message or the transport/protocol error that killed the connection while
// the waiter was still pending.
type result struct {
	msg any
	err error
}

// waiter is one slot in the FIFO correlator queue. A single waiter may
// receive more than one result before being retired: GET's multi-part
// reply (GET_META, then a run of GET_CHUNK, then GET_END) is dispatched to
// the same head waiter message by message.
type waiter struct {
	ch chan result
}

func newWaiter() *waiter {
	// Buffered so the read loop can hand up to four messages to a slow
	// caller before dispatch blocks the socket read.
	return &waiter{ch: make(chan result, 4)}
}

// enqueue appends w to the tail of the pending queue.
func (c *Client) enqueue(w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		w.ch <- result{err: c.closeErr}
		return
	}
	c.waiters = append(c.waiters, w)
}

// isClosed reports whether the connection has already failed or been
// closed, along with the error callers should surface.
func (c *Client) isClosed() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeErr
}

// retire removes w from the queue. It is a no-op if w already left the
// queue (e.g. the connection closed and failAll drained it).
func (c *Client) retire(w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cand := range c.waiters {
		if cand == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// dispatch hands msg to the head waiter, if any. A message that arrives
// with no pending waiter is unsolicited (e.g. a late ERROR for a
// fire-and-forget PUT_CHUNK) and is dropped; the linear correlator only
// promises correlation for requests that registered a waiter.
func (c *Client) dispatch(msg any) {
	c.mu.Lock()
	var head *waiter
	if len(c.waiters) > 0 {
		head = c.waiters[0]
	}
	c.mu.Unlock()

	if head == nil {
		return
	}
	head.ch <- result{msg: msg}
}

// failAll rejects every pending waiter with err and marks the client
// closed, so future calls fail fast instead of blocking forever.
func (c *Client) failAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	for _, w := range c.waiters {
		w.ch <- result{err: err}
	}
	c.waiters = nil
}
