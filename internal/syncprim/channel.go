package syncprim

import (
	"sync"

	"github.com/pkg/errors"
)

// Channel is `open_channel(capacity)` (spec.md §4.8): a bounded queue
// with one mutex and two condition variables, exactly as the spec
// prescribes, rather than a native Go channel — naml's own `send`/
// `receive`/`close` semantics (receive-on-closed-empty yields `none`,
// send-on-closed is a fault) don't map cleanly onto Go `chan`'s
// panic-on-closed-send behavior, so the primitive is built from its
// named parts instead of wrapping one.
type Channel struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf      []interface{}
	capacity int
	closed   bool
}

// NewChannel returns an open channel buffering up to capacity values.
func NewChannel(capacity int) *Channel {
	c := &Channel{capacity: capacity}
	c.notFull = sync.NewCond(&c.mu)
	c.notEmpty = sync.NewCond(&c.mu)
	return c
}

// Send blocks while the channel is full, per spec.md §4.8. Sending on
// a closed channel is a runtime fault, reported as an error rather
// than a panic; internal/runtime's naml_channel_send host function
// turns that error into a panic.
func (c *Channel) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buf) >= c.capacity && !c.closed {
		c.notFull.Wait()
	}
	if c.closed {
		return errors.New("syncprim: send on closed channel")
	}
	c.buf = append(c.buf, v)
	c.notEmpty.Signal()
	return nil
}

// Receive blocks while the channel is empty and open. Receiving on a
// closed, drained channel returns (nil, false) — naml's `none`.
func (c *Channel) Receive() (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buf) == 0 && !c.closed {
		c.notEmpty.Wait()
	}
	if len(c.buf) == 0 {
		return nil, false
	}
	v := c.buf[0]
	c.buf = c.buf[1:]
	c.notFull.Signal()
	return v, true
}

// Close wakes every waiter (spec.md §4.8: "close wakes all waiters").
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.notFull.Broadcast()
	c.notEmpty.Broadcast()
}
