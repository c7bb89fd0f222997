package room

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentSync_LastWriterWins(t *testing.T) {
	cases := []struct {
		name string
		ops  func(e *Engine)
		want string
	}{
		{
			name: "local edit shows immediately",
			ops: func(e *Engine) {
				e.ApplyLocalEdit("print(1)")
			},
			want: "print(1)",
		},
		{
			name: "remote overwrites local",
			ops: func(e *Engine) {
				e.ApplyLocalEdit("print(1)")
				e.ApplyRemoteCode("print(2)")
			},
			want: "print(2)",
		},
		{
			name: "self echo is idempotent",
			ops: func(e *Engine) {
				e.ApplyLocalEdit("a")
				e.ApplyLocalEdit("ab")
				e.ApplyRemoteCode("ab")
			},
			want: "ab",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine("R1")
			tc.ops(e)
			require.Equal(t, tc.want, e.Code())
		})
	}
}

func TestRoster_IsFullSnapshot(t *testing.T) {
	e := NewEngine("R1")
	e.ApplyRoster([]string{"alice", "bob"})
	e.ApplyRoster([]string{"bob"})
	require.Equal(t, []string{"bob"}, e.Participants())
}

func TestChat_AppendOnlyArrivalOrder(t *testing.T) {
	e := NewEngine("R1")
	e.AppendMessage(Message{Sender: "alice", Body: "hi", RoomID: "R1"})
	e.AppendMessage(Message{Sender: "bob", Body: "yo", RoomID: "R1"})

	chat := e.Chat()
	require.Len(t, chat, 2)
	require.Equal(t, "alice", chat[0].Sender)
	require.Equal(t, "bob", chat[1].Sender)

	// Snapshot is a copy: mutating it must not reach the engine.
	chat[0].Body = "edited"
	require.Equal(t, "hi", e.Chat()[0].Body)
}
