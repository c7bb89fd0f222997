// Package channel owns the single bidirectional connection to the
// collaboration backend. It is a pure transport: no domain state lives here.
//
// Ordering guarantee: handlers for one event name run sequentially on the
// dispatch loop, so events of the same name from the same origin arrive
// FIFO. Nothing is guaranteed across distinct event names.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/wire"
)

var ErrClosed = errors.New("channel closed")

const writeTimeout = 3 * time.Second

// Handler receives the raw payload of one inbound event. Handlers must not
// block: they run on the dispatch loop.
type Handler func(data json.RawMessage)

// Client is the transport seen by the rest of the core. It is constructed
// explicitly and injected; there is no package-level connection.
type Client interface {
	// Send emits one event as a single atomic frame.
	Send(ctx context.Context, event string, payload any) error
	// On registers the handler for an event name, replacing any prior one.
	On(event string, h Handler)
	// Off removes the handler for an event name.
	Off(event string)
	// Done is closed once the connection is gone and no more events will
	// be dispatched.
	Done() <-chan struct{}
	Close() error
}

type handlerTable struct {
	mu sync.Mutex
	m  map[string]Handler
}

func (t *handlerTable) set(event string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h == nil {
		delete(t.m, event)
		return
	}
	t.m[event] = h
}

func (t *handlerTable) get(event string) Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m[event]
}

type wsClient struct {
	conn *websocket.Conn
	log  *zap.Logger

	writeMu  sync.Mutex
	handlers handlerTable

	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens the websocket connection and starts the dispatch loop. The
// returned client does not reconnect: once the connection drops, Send fails
// and Done is closed. Reconnect policy belongs to the caller.
func Dial(ctx context.Context, url string, log *zap.Logger) (Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &wsClient{
		conn:     conn,
		log:      log,
		handlers: handlerTable{m: make(map[string]Handler)},
		done:     make(chan struct{}),
	}
	go c.dispatch()
	return c, nil
}

func (c *wsClient) dispatch() {
	defer c.Close()
	for {
		var env wire.Envelope
		if err := wsjson.Read(context.Background(), c.conn, &env); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				select {
				case <-c.done:
					// Close() raced the read; not an error.
				default:
					c.log.Warn("channel read failed", zap.Error(err))
				}
			}
			return
		}
		if h := c.handlers.get(env.Event); h != nil {
			h(env.Data)
		} else {
			c.log.Debug("unhandled event", zap.String("event", env.Event))
		}
	}
}

func (c *wsClient) Send(ctx context.Context, event string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	env, err := wire.Seal(event, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsjson.Write(ctx, c.conn, env)
}

func (c *wsClient) On(event string, h Handler) { c.handlers.set(event, h) }
func (c *wsClient) Off(event string)           { c.handlers.set(event, nil) }
func (c *wsClient) Done() <-chan struct{}      { return c.done }

func (c *wsClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	})
	return nil
}
