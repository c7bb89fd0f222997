package session

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/room"
	"github.com/coderoom/coderoom/internal/wire"
)

// handleInbound applies one channel event. Events scoped to a room are
// dropped when no room is live; per the channel contract, only FIFO within
// one event name may be assumed, never ordering across names.
func (s *Session) handleInbound(ev inboundEvent) {
	switch ev.event {
	case wire.EvtLoadCode, wire.EvtCodeChange:
		var p wire.CodeUpdate
		if !s.decode(ev, &p) {
			return
		}
		if s.engine == nil {
			return
		}
		// First room-scoped event confirms an optimistic join.
		if s.phase == PhaseJoining {
			s.phase = PhaseInRoom
		}
		s.engine.ApplyRemoteCode(p.Code)
		s.broadcast()

	case wire.EvtUpdateUsers:
		var p wire.Roster
		if !s.decode(ev, &p) {
			return
		}
		if s.engine == nil {
			return
		}
		if s.phase == PhaseJoining {
			s.phase = PhaseInRoom
		}
		s.engine.ApplyRoster(p.Users)
		s.broadcast()

	case wire.EvtUserTyping:
		var p wire.Typing
		if !s.decode(ev, &p) {
			return
		}
		if s.engine == nil {
			return
		}
		gen := s.hint.Signal(p.Username)
		time.AfterFunc(s.hint.TTL(), func() { s.post(typingExpired{gen: gen}) })
		s.broadcast()

	case wire.EvtReceiveGroupMessage:
		var p wire.ChatMessage
		if !s.decode(ev, &p) {
			return
		}
		if s.engine == nil {
			return
		}
		s.engine.AppendMessage(room.Message{Sender: p.Sender, Body: p.Message, RoomID: p.RoomID})
		s.broadcast()

	case wire.EvtRoomCreated:
		var p wire.RoomCreated
		if !s.decode(ev, &p) {
			return
		}
		if s.phase != PhaseBrowsing {
			s.log.Warn("roomCreated outside browsing, dropped", zap.String("room", p.RoomID))
			return
		}
		// Confirmation of our createRoom: bind the id and auto-join.
		if err := s.send(wire.EvtJoinRoom, wire.JoinRoom{RoomID: p.RoomID, Username: s.username}); err != nil {
			s.lastErr = "failed to join created room"
			s.broadcast()
			return
		}
		s.engine = room.NewEngine(p.RoomID)
		s.phase = PhaseInRoom
		s.log.Info("room created", zap.String("room", p.RoomID))
		s.broadcast()

	case wire.EvtRoomError:
		var p wire.RoomError
		if !s.decode(ev, &p) {
			return
		}
		// Roll back the optimistic join; from Browsing this is a no-op
		// transition. No dangling room data either way.
		if s.phase == PhaseJoining || s.phase == PhaseInRoom {
			s.clearRoom()
			s.phase = PhaseBrowsing
		}
		s.lastErr = p.Message // opaque, passed through verbatim
		s.log.Warn("room error", zap.String("message", p.Message))
		s.broadcast()

	case wire.EvtCodeResult:
		var p wire.CodeResult
		if !s.decode(ev, &p) {
			return
		}
		current := ""
		if s.engine != nil {
			current = s.engine.RoomID()
		}
		if s.runner.Resolve(current, p.Logs) {
			s.broadcast()
		}
	}
}

func (s *Session) decode(ev inboundEvent, into any) bool {
	if err := json.Unmarshal(ev.data, into); err != nil {
		s.log.Warn("bad payload", zap.String("event", ev.event), zap.Error(err))
		return false
	}
	return true
}
