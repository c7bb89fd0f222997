package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/wire"
)

// helper: receive one envelope with a timeout so tests never hang
func recvEnv(t *testing.T, ch <-chan wire.Envelope, within time.Duration) wire.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(within):
		t.Fatalf("timed out waiting for envelope")
		return wire.Envelope{} // unreachable
	}
}

func recvNoEnv(t *testing.T, ch <-chan wire.Envelope, within time.Duration) {
	t.Helper()
	select {
	case env := <-ch:
		t.Fatalf("expected no envelope within %v, but got: %s", within, env.Event)
	case <-time.After(within):
		// good: nothing delivered
	}
}

func recvRoomView(t *testing.T, r *Room, within time.Duration) RoomView {
	t.Helper()
	reply := make(chan RoomView, 1)
	r.Inbox() <- getRoomState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for room view")
		return RoomView{} // unreachable
	}
}

func payload[T any](t *testing.T, env wire.Envelope) T {
	t.Helper()
	var p T
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func newTestRoom(t *testing.T, runner Runner) *Room {
	t.Helper()
	if runner == nil {
		runner = stubRunner()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return newRoom(ctx, "R1", runner, nil, zap.NewNop())
}

func TestRoom_JoinDeliversDocumentThenRoster(t *testing.T) {
	r := newTestRoom(t, nil)

	aliceOut := make(chan wire.Envelope, 8)
	r.Inbox() <- edit{From: "seed", Code: "print(1)"}
	r.Inbox() <- join{ConnID: "c1", Username: "alice", Outbox: aliceOut}

	first := recvEnv(t, aliceOut, time.Second)
	require.Equal(t, wire.EvtLoadCode, first.Event)
	require.Equal(t, "print(1)", payload[wire.CodeUpdate](t, first).Code)

	second := recvEnv(t, aliceOut, time.Second)
	require.Equal(t, wire.EvtUpdateUsers, second.Event)
	require.Equal(t, []string{"alice"}, payload[wire.Roster](t, second).Users)
}

func TestRoom_EditFansOutButSkipsOrigin(t *testing.T) {
	r := newTestRoom(t, nil)

	aliceOut := make(chan wire.Envelope, 8)
	bobOut := make(chan wire.Envelope, 8)
	r.Inbox() <- join{ConnID: "c1", Username: "alice", Outbox: aliceOut}
	r.Inbox() <- join{ConnID: "c2", Username: "bob", Outbox: bobOut}

	// Drain join traffic.
	_ = recvEnv(t, aliceOut, time.Second) // loadCode
	_ = recvEnv(t, aliceOut, time.Second) // roster (alice)
	_ = recvEnv(t, aliceOut, time.Second) // roster (alice, bob)
	_ = recvEnv(t, bobOut, time.Second)   // loadCode
	_ = recvEnv(t, bobOut, time.Second)   // roster

	r.Inbox() <- edit{From: "c1", Code: "x = 1"}

	env := recvEnv(t, bobOut, time.Second)
	require.Equal(t, wire.EvtCodeChange, env.Event)
	require.Equal(t, "x = 1", payload[wire.CodeUpdate](t, env).Code)

	// The origin must never see its own edit echoed back.
	recvNoEnv(t, aliceOut, 50*time.Millisecond)

	view := recvRoomView(t, r, time.Second)
	require.Equal(t, "x = 1", view.Code)
	require.Equal(t, []string{"alice", "bob"}, view.Users)
}

func TestRoom_ChatAndTypingSkipOrigin(t *testing.T) {
	r := newTestRoom(t, nil)

	aliceOut := make(chan wire.Envelope, 8)
	bobOut := make(chan wire.Envelope, 8)
	r.Inbox() <- join{ConnID: "c1", Username: "alice", Outbox: aliceOut}
	r.Inbox() <- join{ConnID: "c2", Username: "bob", Outbox: bobOut}
	_ = recvEnv(t, aliceOut, time.Second)
	_ = recvEnv(t, aliceOut, time.Second)
	_ = recvEnv(t, aliceOut, time.Second)
	_ = recvEnv(t, bobOut, time.Second)
	_ = recvEnv(t, bobOut, time.Second)

	r.Inbox() <- chat{From: "c1", Msg: wire.ChatMessage{Message: "hi", Sender: "alice", RoomID: "R1"}}
	r.Inbox() <- typed{From: "c1", Username: "alice"}

	env := recvEnv(t, bobOut, time.Second)
	require.Equal(t, wire.EvtReceiveGroupMessage, env.Event)
	require.Equal(t, "hi", payload[wire.ChatMessage](t, env).Message)

	env = recvEnv(t, bobOut, time.Second)
	require.Equal(t, wire.EvtUserTyping, env.Event)
	require.Equal(t, "alice", payload[wire.Typing](t, env).Username)

	recvNoEnv(t, aliceOut, 50*time.Millisecond)
}

func TestRoom_RunBroadcastsResultToEveryone(t *testing.T) {
	ran := make(chan string, 1)
	runner := RunnerFunc(func(ctx context.Context, code string) (string, error) {
		ran <- code
		return "ok\n", nil
	})
	r := newTestRoom(t, runner)

	aliceOut := make(chan wire.Envelope, 8)
	r.Inbox() <- join{ConnID: "c1", Username: "alice", Outbox: aliceOut}
	_ = recvEnv(t, aliceOut, time.Second)
	_ = recvEnv(t, aliceOut, time.Second)

	r.Inbox() <- edit{From: "c1", Code: "print(1)"}
	r.Inbox() <- run{From: "c1"}

	select {
	case code := <-ran:
		require.Equal(t, "print(1)", code)
	case <-time.After(time.Second):
		t.Fatalf("runner never invoked")
	}

	// Unlike edits, the requester receives the result too.
	env := recvEnv(t, aliceOut, time.Second)
	require.Equal(t, wire.EvtCodeResult, env.Event)
	require.Equal(t, "ok\n", payload[wire.CodeResult](t, env).Logs)
}

func TestRoom_OneExecutionAtATime(t *testing.T) {
	release := make(chan struct{})
	var calls int
	runner := RunnerFunc(func(ctx context.Context, code string) (string, error) {
		calls++
		<-release
		return "done", nil
	})
	r := newTestRoom(t, runner)

	out := make(chan wire.Envelope, 8)
	r.Inbox() <- join{ConnID: "c1", Username: "alice", Outbox: out}
	_ = recvEnv(t, out, time.Second)
	_ = recvEnv(t, out, time.Second)

	r.Inbox() <- edit{From: "c1", Code: "print(1)"}
	r.Inbox() <- run{From: "c1"}
	r.Inbox() <- run{From: "c1"} // ignored while one is live

	require.Eventually(t, func() bool {
		return recvRoomView(t, r, time.Second).Running
	}, time.Second, 5*time.Millisecond)
	close(release)

	env := recvEnv(t, out, time.Second)
	require.Equal(t, wire.EvtCodeResult, env.Event)
	recvNoEnv(t, out, 50*time.Millisecond)
	require.Equal(t, 1, calls)
}

func TestHub_RemovesRoomOnceDeserted(t *testing.T) {
	h := NewHub(context.Background(), nil, zap.NewNop())
	defer func() { h.Inbox() <- ShutdownHub{} }()

	reply := make(chan *Room, 1)
	h.Inbox() <- CreateRoom{Reply: reply}
	r := <-reply

	out := make(chan wire.Envelope, 8)
	r.Inbox() <- join{ConnID: "c1", Username: "alice", Outbox: out}
	_ = recvEnv(t, out, time.Second) // loadCode
	_ = recvEnv(t, out, time.Second) // roster

	r.Inbox() <- leave{ConnID: "c1"}

	require.Eventually(t, func() bool {
		got := make(chan *Room, 1)
		h.Inbox() <- GetRoom{Code: r.Code(), Reply: got}
		return <-got == nil
	}, time.Second, 5*time.Millisecond)
}

func TestHub_CreateThenGet_SameRoom(t *testing.T) {
	h := NewHub(context.Background(), nil, zap.NewNop())

	reply := make(chan *Room, 1)
	h.Inbox() <- CreateRoom{Reply: reply}
	created := <-reply
	require.NotNil(t, created)
	require.Len(t, created.Code(), 6)

	h.Inbox() <- GetRoom{Code: created.Code(), Reply: reply}
	got := <-reply
	require.Same(t, created, got)

	h.Inbox() <- GetRoom{Code: "MISSING", Reply: reply}
	require.Nil(t, <-reply)

	h.Inbox() <- ShutdownHub{}
}
