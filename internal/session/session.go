// Package session is the core of the collaborative coding client: the
// session state machine plus the single-threaded dispatch loop that owns
// all shared room state.
//
// Everything runs on one goroutine. Local intents, inbound channel events
// and timer fires all arrive on the same inbox and are applied in order,
// so no state needs locking. Subscribers receive an immutable View
// snapshot after every change.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/channel"
	"github.com/coderoom/coderoom/internal/exec"
	"github.com/coderoom/coderoom/internal/presence"
	"github.com/coderoom/coderoom/internal/room"
	"github.com/coderoom/coderoom/internal/wire"
)

var (
	ErrBlankUsername = errors.New("username is blank")
	ErrBlankRoomID   = errors.New("room id is blank")
	ErrBlankMessage  = errors.New("message is blank")
	ErrWrongPhase    = errors.New("not allowed in current phase")
	ErrSessionClosed = errors.New("session closed")
)

// Phase is the session's progression. Joining is distinct from InRoom so
// the optimistic join and its rollback on roomError are ordinary
// transitions, not special cases.
type Phase string

const (
	PhaseAnonymous Phase = "anonymous"
	PhaseBrowsing  Phase = "browsing"
	PhaseJoining   Phase = "joining"
	PhaseInRoom    Phase = "inRoom"
)

// Options are the session policies. Zero values pick the defaults noted on
// each field.
type Options struct {
	// TypingTTL is how long an inbound typing hint stays visible.
	// Default 2s.
	TypingTTL time.Duration
	// TypingInterval rate-limits outbound typing events. Zero emits one
	// per local edit.
	TypingInterval time.Duration
	// ExecTimeout abandons a pending execution after this long. Zero
	// disables the timeout entirely; config.Load supplies the usual
	// default.
	ExecTimeout time.Duration
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

type msg interface{ isMsg() }

type loginIntent struct {
	username string
	reply    chan error
}

type createRoomIntent struct{ reply chan error }

type joinRoomIntent struct {
	roomID string
	reply  chan error
}

type leaveRoomIntent struct{ reply chan error }

type editIntent struct {
	code  string
	reply chan error
}

type chatIntent struct {
	body  string
	reply chan error
}

type runIntent struct{ reply chan error }

type inboundEvent struct {
	event string
	data  json.RawMessage
}

type typingExpired struct{ gen uint64 }

type execTimedOut struct{ gen uint64 }

type subscribeMsg struct {
	out   chan View
	reply chan int
}

type unsubscribeMsg struct{ id int }

type getView struct{ reply chan View }

type disconnected struct{}

type shutdown struct{}

func (loginIntent) isMsg()      {}
func (createRoomIntent) isMsg() {}
func (joinRoomIntent) isMsg()   {}
func (leaveRoomIntent) isMsg()  {}
func (editIntent) isMsg()       {}
func (chatIntent) isMsg()       {}
func (runIntent) isMsg()        {}
func (inboundEvent) isMsg()     {}
func (typingExpired) isMsg()    {}
func (execTimedOut) isMsg()     {}
func (subscribeMsg) isMsg()     {}
func (unsubscribeMsg) isMsg()   {}
func (getView) isMsg()          {}
func (disconnected) isMsg()     {}
func (shutdown) isMsg()         {}

// Session owns all client-side collaboration state. Construct with New,
// stop with Close.
type Session struct {
	inbox chan msg
	ch    channel.Client
	log   *zap.Logger
	opts  Options

	phase    Phase
	username string
	engine   *room.Engine
	hint     *presence.Indicator
	limiter  *presence.Limiter
	runner   *exec.Coordinator
	lastErr  string

	subs    map[int]chan View
	nextSub int

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires the session to an injected channel client and starts the
// dispatch loop. The channel is owned by the caller; the session only
// registers its handlers on it.
func New(parent context.Context, ch channel.Client, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:   make(chan msg, 64), // Small buffer
		ch:      ch,
		log:     opts.Logger,
		opts:    opts,
		phase:   PhaseAnonymous,
		hint:    presence.NewIndicator(opts.TypingTTL),
		limiter: presence.NewLimiter(opts.TypingInterval),
		runner:  exec.NewCoordinator(),
		subs:    make(map[int]chan View),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.registerHandlers()

	go s.loop()
	go func() {
		select {
		case <-ch.Done():
			s.post(disconnected{})
		case <-ctx.Done():
		}
	}()
	return s
}

// registerHandlers routes every inbound contract event into the inbox so
// the loop applies them in arrival order.
func (s *Session) registerHandlers() {
	for _, event := range []string{
		wire.EvtLoadCode,
		wire.EvtCodeChange,
		wire.EvtUpdateUsers,
		wire.EvtUserTyping,
		wire.EvtReceiveGroupMessage,
		wire.EvtRoomCreated,
		wire.EvtRoomError,
		wire.EvtCodeResult,
	} {
		event := event
		s.ch.On(event, func(data json.RawMessage) {
			s.post(inboundEvent{event: event, data: data})
		})
	}
}

func (s *Session) post(m msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) ask(m msg, reply chan error) error {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Login sets the local identity. Valid only while Anonymous; a blank
// username is rejected with no event emitted.
func (s *Session) Login(username string) error {
	reply := make(chan error, 1)
	return s.ask(loginIntent{username: username, reply: reply}, reply)
}

// CreateRoom asks the backend for a new room. The session stays Browsing
// until roomCreated arrives, at which point it auto-joins.
func (s *Session) CreateRoom() error {
	reply := make(chan error, 1)
	return s.ask(createRoomIntent{reply: reply}, reply)
}

// JoinRoom joins an existing room optimistically; a later roomError rolls
// the transition back.
func (s *Session) JoinRoom(roomID string) error {
	reply := make(chan error, 1)
	return s.ask(joinRoomIntent{roomID: roomID, reply: reply}, reply)
}

// LeaveRoom leaves unconditionally and clears all room-scoped state. It
// does not wait for, or cancel, a pending remote execution.
func (s *Session) LeaveRoom() error {
	reply := make(chan error, 1)
	return s.ask(leaveRoomIntent{reply: reply}, reply)
}

// Edit applies a local document mutation and emits editCode plus a typing
// signal (subject to the typing policy).
func (s *Session) Edit(code string) error {
	reply := make(chan error, 1)
	return s.ask(editIntent{code: code, reply: reply}, reply)
}

// SendMessage appends a chat message locally (optimistic echo) and emits
// it outbound.
func (s *Session) SendMessage(body string) error {
	reply := make(chan error, 1)
	return s.ask(chatIntent{body: body, reply: reply}, reply)
}

// RunCode requests remote execution of the current document. Rejected
// while a prior request is pending or the document is blank.
func (s *Session) RunCode() error {
	reply := make(chan error, 1)
	return s.ask(runIntent{reply: reply}, reply)
}

// Subscribe registers a View receiver. The current view is delivered
// immediately, then one snapshot per state change. A receiver that falls
// behind loses intermediate snapshots, never the latest one; its channel
// closes only on unsubscribe or session shutdown. The returned func
// unsubscribes.
func (s *Session) Subscribe() (<-chan View, func()) {
	out := make(chan View, 8)
	reply := make(chan int, 1)
	select {
	case s.inbox <- subscribeMsg{out: out, reply: reply}:
	case <-s.ctx.Done():
		close(out)
		return out, func() {}
	}
	select {
	case id := <-reply:
		return out, func() { s.post(unsubscribeMsg{id: id}) }
	case <-s.ctx.Done():
		return out, func() {}
	}
}

// View returns the current snapshot without subscribing.
func (s *Session) View() View {
	reply := make(chan View, 1)
	select {
	case s.inbox <- getView{reply: reply}:
	case <-s.ctx.Done():
		return View{Phase: PhaseAnonymous}
	}
	select {
	case v := <-reply:
		return v
	case <-s.ctx.Done():
		return View{Phase: PhaseAnonymous}
	}
}

// Close stops the loop and closes all subscriber channels. It does not
// close the injected channel client.
func (s *Session) Close() {
	s.post(shutdown{})
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return

		case m := <-s.inbox:
			switch v := m.(type) {
			case loginIntent:
				v.reply <- s.handleLogin(v.username)
			case createRoomIntent:
				v.reply <- s.handleCreateRoom()
			case joinRoomIntent:
				v.reply <- s.handleJoinRoom(v.roomID)
			case leaveRoomIntent:
				v.reply <- s.handleLeaveRoom()
			case editIntent:
				v.reply <- s.handleEdit(v.code)
			case chatIntent:
				v.reply <- s.handleChat(v.body)
			case runIntent:
				v.reply <- s.handleRun()

			case inboundEvent:
				s.handleInbound(v)

			case typingExpired:
				if s.hint.Expire(v.gen) {
					s.broadcast()
				}
			case execTimedOut:
				if s.runner.Timeout(v.gen) {
					s.lastErr = "code execution timed out"
					s.broadcast()
				}

			case subscribeMsg:
				id := s.nextSub
				s.nextSub++
				s.subs[id] = v.out
				v.out <- s.view() // current snapshot immediately
				v.reply <- id
			case unsubscribeMsg:
				if ch, ok := s.subs[v.id]; ok {
					delete(s.subs, v.id)
					close(ch)
				}
			case getView:
				v.reply <- s.view()

			case disconnected:
				// Room state does not survive the connection.
				s.clearRoom()
				if s.phase == PhaseInRoom || s.phase == PhaseJoining {
					s.phase = PhaseBrowsing
				}
				s.lastErr = "connection to the collaboration server was lost"
				s.broadcast()

			case shutdown:
				s.teardown()
				return
			}
		}
	}
}

func (s *Session) teardown() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}

func (s *Session) broadcast() {
	v := s.view()
	for _, ch := range s.subs {
		select {
		case ch <- v:
			//ok
		default:
			// Subscriber is behind. Views are full snapshots, so stale
			// ones are worthless: evict the oldest and deliver the
			// latest instead of killing the subscriber.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (s *Session) send(event string, payload any) error {
	err := s.ch.Send(s.ctx, event, payload)
	if err != nil {
		s.log.Warn("send failed", zap.String("event", event), zap.Error(err))
	}
	return err
}
