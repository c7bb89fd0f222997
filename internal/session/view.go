package session

import (
	"github.com/coderoom/coderoom/internal/exec"
	"github.com/coderoom/coderoom/internal/room"
)

// View is the immutable snapshot handed to the presentation layer. It is
// the whole contract between the core and whatever renders it.
type View struct {
	Phase    Phase
	Username string

	// Room-scoped; zero values outside Joining/InRoom.
	RoomID       string
	Code         string
	Participants []string
	Chat         []room.Message
	TypingBy     string // "" when nobody is typing

	RunPending bool
	RunOutput  string
	HasOutput  bool

	// Err is the last surfaced error message, verbatim. Cleared by the
	// next accepted intent.
	Err string
}

func (s *Session) view() View {
	v := View{
		Phase:    s.phase,
		Username: s.username,
		Err:      s.lastErr,
	}
	if s.engine != nil {
		v.RoomID = s.engine.RoomID()
		v.Code = s.engine.Code()
		v.Participants = s.engine.Participants()
		v.Chat = s.engine.Chat()
		v.TypingBy = s.hint.Active()
	}
	v.RunPending = s.runner.Status() == exec.StatusPending
	v.RunOutput, v.HasOutput = s.runner.Output()
	return v
}
