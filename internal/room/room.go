// Package room keeps one room's shared state convergent with the backend:
// document text, participant roster, chat transcript. It is pure state with
// no I/O; the session actor feeds it local intents and inbound events.
//
// Document sync is last-writer-wins: an inbound full-text update replaces
// the local document unconditionally. Concurrent edits from two
// participants can clobber each other; there is no merge and no conflict
// detection. That limitation is inherited from the channel contract and is
// deliberate.
package room

import "slices"

// Message is one chat entry. Append-only: entries are never mutated or
// removed, except the full clear on leave.
type Message struct {
	Sender string
	Body   string
	RoomID string
}

// Engine owns the state of the single live room.
type Engine struct {
	roomID       string
	code         string
	participants []string
	chat         []Message
}

// NewEngine binds an engine to a room id. All state starts empty; the
// roster stays empty until the first full snapshot arrives.
func NewEngine(roomID string) *Engine {
	return &Engine{roomID: roomID}
}

func (e *Engine) RoomID() string { return e.roomID }
func (e *Engine) Code() string   { return e.code }

// ApplyLocalEdit replaces the local document immediately so the caller can
// re-render without waiting on the backend. The caller is responsible for
// emitting the matching editCode event.
func (e *Engine) ApplyLocalEdit(newCode string) {
	e.code = newCode
}

// ApplyRemoteCode is the inbound side of document sync: last-writer-wins,
// no merge. Self-echoes are harmless because replacing the current text
// with itself is a no-op.
func (e *Engine) ApplyRemoteCode(code string) {
	e.code = code
}

// ApplyRoster replaces the participant list wholesale. The snapshot is
// authoritative; no diffing against the previous roster.
func (e *Engine) ApplyRoster(users []string) {
	e.participants = slices.Clone(users)
}

// AppendMessage appends one chat entry, local echo and inbound alike. The
// engine does not deduplicate by identity; the channel contract guarantees
// a sender is never echoed its own message.
func (e *Engine) AppendMessage(m Message) {
	e.chat = append(e.chat, m)
}

func (e *Engine) Participants() []string { return slices.Clone(e.participants) }
func (e *Engine) Chat() []Message        { return slices.Clone(e.chat) }
