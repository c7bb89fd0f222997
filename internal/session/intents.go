package session

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/room"
	"github.com/coderoom/coderoom/internal/wire"
)

// Intent handlers run on the loop goroutine. Each accepted intent emits
// exactly one outbound event; rejected intents emit nothing and return a
// validation error to the caller.

func (s *Session) handleLogin(username string) error {
	if s.phase != PhaseAnonymous {
		return ErrWrongPhase
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrBlankUsername
	}
	if err := s.send(wire.EvtSetIdentity, wire.Identity{Username: username}); err != nil {
		return err
	}
	s.username = username
	s.phase = PhaseBrowsing
	s.lastErr = ""
	s.log.Info("logged in", zap.String("username", username))
	s.broadcast()
	return nil
}

func (s *Session) handleCreateRoom() error {
	if s.phase != PhaseBrowsing {
		return ErrWrongPhase
	}
	if err := s.send(wire.EvtCreateRoom, struct{}{}); err != nil {
		return err
	}
	// Stay Browsing: the roomCreated confirmation drives the join.
	s.lastErr = ""
	s.broadcast()
	return nil
}

func (s *Session) handleJoinRoom(roomID string) error {
	if s.phase != PhaseBrowsing {
		return ErrWrongPhase
	}
	if strings.TrimSpace(roomID) == "" {
		return ErrBlankRoomID
	}
	if err := s.send(wire.EvtJoinRoom, wire.JoinRoom{RoomID: roomID, Username: s.username}); err != nil {
		return err
	}
	// Optimistic: room state exists from here on, rolled back on roomError.
	s.engine = room.NewEngine(roomID)
	s.phase = PhaseJoining
	s.lastErr = ""
	s.log.Info("joining room", zap.String("room", roomID))
	s.broadcast()
	return nil
}

func (s *Session) handleLeaveRoom() error {
	if s.phase != PhaseInRoom && s.phase != PhaseJoining {
		return ErrWrongPhase
	}
	roomID := s.engine.RoomID()
	err := s.send(wire.EvtLeaveRoom, wire.LeaveRoom{RoomID: roomID, Username: s.username})
	// Leave is unconditional: local state is cleared even if the send
	// failed, since the connection is likely gone anyway.
	s.clearRoom()
	s.phase = PhaseBrowsing
	s.lastErr = ""
	s.log.Info("left room", zap.String("room", roomID))
	s.broadcast()
	return err
}

func (s *Session) handleEdit(code string) error {
	if s.phase != PhaseInRoom {
		return ErrWrongPhase
	}
	s.engine.ApplyLocalEdit(code)
	err := s.send(wire.EvtEditCode, wire.EditCode{RoomID: s.engine.RoomID(), NewCode: code})
	if s.limiter.Allow() {
		_ = s.send(wire.EvtTyping, wire.Typing{Username: s.username})
	}
	s.broadcast()
	return err
}

func (s *Session) handleChat(body string) error {
	if s.phase != PhaseInRoom {
		return ErrWrongPhase
	}
	if strings.TrimSpace(body) == "" {
		return ErrBlankMessage
	}
	m := wire.ChatMessage{Message: body, Sender: s.username, RoomID: s.engine.RoomID()}
	if err := s.send(wire.EvtSendMessage, m); err != nil {
		return err
	}
	// Optimistic local echo; the backend never echoes to the origin.
	s.engine.AppendMessage(room.Message{Sender: m.Sender, Body: m.Message, RoomID: m.RoomID})
	s.broadcast()
	return nil
}

func (s *Session) handleRun() error {
	if s.phase != PhaseInRoom {
		return ErrWrongPhase
	}
	gen, err := s.runner.Start(s.engine.RoomID(), s.engine.Code(), time.Now())
	if err != nil {
		return err
	}
	if err := s.send(wire.EvtRunCode, wire.RunCode{RoomID: s.engine.RoomID()}); err != nil {
		s.runner.Timeout(gen) // roll the pending state back
		return err
	}
	if s.opts.ExecTimeout > 0 {
		time.AfterFunc(s.opts.ExecTimeout, func() { s.post(execTimedOut{gen: gen}) })
	}
	s.lastErr = ""
	s.broadcast()
	return nil
}

// clearRoom drops every piece of room-scoped state: document, roster,
// chat, typing hint, execution state.
func (s *Session) clearRoom() {
	s.engine = nil
	s.hint.Clear()
	s.runner.Reset()
}
