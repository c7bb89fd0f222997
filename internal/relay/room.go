// Package relay is a reference backend for the collaboration channel
// contract, meant for local development and integration tests. It is not
// the production room authority: state is in-memory for the process
// lifetime and code execution is a pluggable stub.
package relay

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/wire"
)

type roomMsg interface{ isRoomMsg() }

type join struct {
	ConnID   string
	Username string
	Outbox   chan wire.Envelope // where this member receives events
}

type leave struct{ ConnID string }

type edit struct {
	From string
	Code string
}

type chat struct {
	From string
	Msg  wire.ChatMessage
}

type typed struct {
	From     string
	Username string
}

type run struct{ From string }

type runDone struct{ Logs string }

type roomShutdown struct{}

type getRoomState struct{ Reply chan RoomView }

func (join) isRoomMsg()         {}
func (leave) isRoomMsg()        {}
func (edit) isRoomMsg()         {}
func (chat) isRoomMsg()         {}
func (typed) isRoomMsg()        {}
func (run) isRoomMsg()          {}
func (runDone) isRoomMsg()      {}
func (roomShutdown) isRoomMsg() {}
func (getRoomState) isRoomMsg() {}

// RoomView reflects room internals without data races; test-only.
type RoomView struct {
	Code       string
	Users      []string
	NumMembers int
	Running    bool
}

type member struct {
	id       string
	username string
	outbox   chan wire.Envelope
}

// Room is the per-room actor: one goroutine owns the document, the
// roster, and the fan-out. Events are never echoed to their origin;
// clients rely on that to keep optimistic local echoes from duplicating.
type Room struct {
	code    string
	inbox   chan roomMsg
	members []member // join order
	docText string
	running bool
	runner  Runner
	onEmpty func() // tells the hub to forget this room
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func newRoom(parent context.Context, code string, runner Runner, onEmpty func(), log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		code:    code,
		inbox:   make(chan roomMsg, 64), // Small buffer
		runner:  runner,
		onEmpty: onEmpty,
		log:     log.With(zap.String("room", code)),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Code() string          { return r.code }
func (r *Room) Inbox() chan<- roomMsg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case join:
				r.members = append(r.members, member{id: msg.ConnID, username: msg.Username, outbox: msg.Outbox})
				// The joiner gets the current document immediately;
				// everyone gets the new roster.
				r.deliver(msg.Outbox, wire.EvtLoadCode, wire.CodeUpdate{Code: r.docText})
				r.broadcast("", wire.EvtUpdateUsers, wire.Roster{Users: r.roster()})
				r.log.Info("member joined", zap.String("username", msg.Username))

			case leave:
				r.members = slices.DeleteFunc(r.members, func(mb member) bool { return mb.id == msg.ConnID })
				r.broadcast("", wire.EvtUpdateUsers, wire.Roster{Users: r.roster()})
				if len(r.members) == 0 && r.onEmpty != nil {
					// A deserted room is not worth keeping; the hub
					// will send roomShutdown back.
					r.onEmpty()
				}

			case edit:
				r.docText = msg.Code
				r.broadcast(msg.From, wire.EvtCodeChange, wire.CodeUpdate{Code: msg.Code})

			case chat:
				r.broadcast(msg.From, wire.EvtReceiveGroupMessage, msg.Msg)

			case typed:
				r.broadcast(msg.From, wire.EvtUserTyping, wire.Typing{Username: msg.Username})

			case run:
				if r.running {
					// One live execution per room.
					break
				}
				r.running = true
				code := r.docText
				go func() {
					logs, err := r.runner.Run(r.ctx, code)
					if err != nil {
						logs = "execution failed: " + err.Error()
					}
					select {
					case r.inbox <- runDone{Logs: logs}:
					case <-r.ctx.Done():
					}
				}()

			case runDone:
				r.running = false
				// The requester wants its own result back, so no origin skip.
				r.broadcast("", wire.EvtCodeResult, wire.CodeResult{Logs: msg.Logs})

			case getRoomState:
				msg.Reply <- RoomView{
					Code:       r.docText,
					Users:      r.roster(),
					NumMembers: len(r.members),
					Running:    r.running,
				}

			case roomShutdown:
				r.cancel()
				return
			}
		}
	}
}

func (r *Room) roster() []string {
	users := make([]string, 0, len(r.members))
	for _, m := range r.members {
		users = append(users, m.username)
	}
	return users
}

// broadcast fans an event out to every member except the origin conn.
// Pass from="" to include everyone. A member whose outbox is full is
// dropped; its connection cleans itself up when the writes stop.
func (r *Room) broadcast(from, event string, payload any) {
	env, err := wire.Seal(event, payload)
	if err != nil {
		r.log.Error("seal failed", zap.String("event", event), zap.Error(err))
		return
	}
	kept := r.members[:0]
	for _, m := range r.members {
		if m.id == from {
			kept = append(kept, m)
			continue
		}
		select {
		case m.outbox <- env:
			kept = append(kept, m)
		default:
			// Member is slow/full - drop them.
			r.log.Warn("dropping slow member", zap.String("username", m.username))
		}
	}
	r.members = kept
}

func (r *Room) deliver(outbox chan wire.Envelope, event string, payload any) {
	env, err := wire.Seal(event, payload)
	if err != nil {
		r.log.Error("seal failed", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case outbox <- env:
	default:
	}
}
