package channel

import (
	"context"
	"sync"

	"github.com/coderoom/coderoom/internal/wire"
)

// memClient is the in-memory half of a Pair. It has the same dispatch
// semantics as the websocket client, so session and relay tests can run
// against it without a network.
type memClient struct {
	peer *memClient

	inbox    chan wire.Envelope
	handlers handlerTable

	done      chan struct{}
	closeOnce sync.Once
}

// Pair returns two connected in-memory clients. Frames sent on one side are
// dispatched on the other in send order, per event name and overall.
func Pair() (Client, Client) {
	a := newMemClient()
	b := newMemClient()
	a.peer, b.peer = b, a
	go a.dispatch()
	go b.dispatch()
	return a, b
}

func newMemClient() *memClient {
	return &memClient{
		inbox:    make(chan wire.Envelope, 64),
		handlers: handlerTable{m: make(map[string]Handler)},
		done:     make(chan struct{}),
	}
}

func (c *memClient) dispatch() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.inbox:
			if h := c.handlers.get(env.Event); h != nil {
				h(env.Data)
			}
		}
	}
}

func (c *memClient) Send(ctx context.Context, event string, payload any) error {
	env, err := wire.Seal(event, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	case <-c.peer.done:
		return ErrClosed
	default:
	}
	select {
	case <-c.done:
		return ErrClosed
	case <-c.peer.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.peer.inbox <- env:
		return nil
	}
}

func (c *memClient) On(event string, h Handler) { c.handlers.set(event, h) }
func (c *memClient) Off(event string)           { c.handlers.set(event, nil) }
func (c *memClient) Done() <-chan struct{}      { return c.done }

func (c *memClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
