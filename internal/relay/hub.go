package relay

import (
	"context"
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"
)

type hubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Reply chan *Room
}

type GetRoom struct {
	Code  string
	Reply chan *Room
}

type RemoveRoom struct{ Code string }

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the room registry actor. Rooms are created with a fresh
// collision-checked code and live until the hub shuts down.
type Hub struct {
	inbox  chan hubMsg
	rooms  map[string]*Room
	runner Runner
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, runner Runner, log *zap.Logger) *Hub {
	if runner == nil {
		runner = stubRunner()
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan hubMsg, 64),
		rooms:  make(map[string]*Room),
		runner: runner,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- hubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				code := h.freshCode()
				onEmpty := func() {
					select {
					case h.inbox <- RemoveRoom{Code: code}:
					case <-h.ctx.Done():
					}
				}
				r := newRoom(h.ctx, code, h.runner, onEmpty, h.log)
				h.rooms[code] = r
				h.log.Info("room created", zap.String("room", code))
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Inbox() <- roomShutdown{}
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code))
				}

			case ShutdownHub:
				for _, r := range h.rooms {
					r.Inbox() <- roomShutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

func (h *Hub) freshCode() string {
	for {
		code, err := generateCode()
		if err != nil {
			h.log.Error("code generation failed", zap.Error(err))
			continue
		}
		if _, taken := h.rooms[code]; !taken {
			return code
		}
		h.log.Info("collision on code, regenerating")
	}
}

func generateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
