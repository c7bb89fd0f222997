package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/wire"
)

// wsHandler accepts one websocket connection and shuttles its events
// between the socket and the hub/room actors. Per-connection state is the
// identity and the room currently joined.
func wsHandler(h *Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		outbox := make(chan wire.Envelope, 16)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case env := <-outbox:
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = wsjson.Write(ctx, conn, env)
					cancel()
				}
			}
		}()

		var username string
		var current *Room
		defer func() {
			if current != nil {
				current.Inbox() <- leave{ConnID: connID}
			}
		}()

		// Reader loop
		for {
			var env wire.Envelope
			if err := wsjson.Read(r.Context(), conn, &env); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (leave in defer):
				return
			}

			switch env.Event {
			case wire.EvtSetIdentity:
				var p wire.Identity
				if decode(env.Data, &p, outbox) {
					username = p.Username
				}

			case wire.EvtCreateRoom:
				reply := make(chan *Room, 1)
				h.Inbox() <- CreateRoom{Reply: reply}
				room := <-reply
				send(outbox, wire.EvtRoomCreated, wire.RoomCreated{RoomID: room.Code()})

			case wire.EvtJoinRoom:
				var p wire.JoinRoom
				if !decode(env.Data, &p, outbox) {
					continue
				}
				reply := make(chan *Room, 1)
				h.Inbox() <- GetRoom{Code: p.RoomID, Reply: reply}
				room := <-reply
				if room == nil {
					send(outbox, wire.EvtRoomError, wire.RoomError{Message: "room " + p.RoomID + " does not exist"})
					continue
				}
				if current != nil {
					current.Inbox() <- leave{ConnID: connID}
				}
				name := p.Username
				if name == "" {
					name = username
				}
				room.Inbox() <- join{ConnID: connID, Username: name, Outbox: outbox}
				current = room

			case wire.EvtEditCode:
				var p wire.EditCode
				if decode(env.Data, &p, outbox) && current != nil {
					current.Inbox() <- edit{From: connID, Code: p.NewCode}
				}

			case wire.EvtTyping:
				var p wire.Typing
				if decode(env.Data, &p, outbox) && current != nil {
					current.Inbox() <- typed{From: connID, Username: p.Username}
				}

			case wire.EvtSendMessage:
				var p wire.ChatMessage
				if decode(env.Data, &p, outbox) && current != nil {
					current.Inbox() <- chat{From: connID, Msg: p}
				}

			case wire.EvtLeaveRoom:
				if current != nil {
					current.Inbox() <- leave{ConnID: connID}
					current = nil
				}

			case wire.EvtRunCode:
				if current != nil {
					current.Inbox() <- run{From: connID}
				}

			default:
				log.Debug("unknown event", zap.String("event", env.Event))
			}
		}
	}
}

func decode(data json.RawMessage, into any, outbox chan wire.Envelope) bool {
	if err := json.Unmarshal(data, into); err != nil {
		send(outbox, wire.EvtRoomError, wire.RoomError{Message: "bad payload"})
		return false
	}
	return true
}

func send(outbox chan wire.Envelope, event string, payload any) {
	env, err := wire.Seal(event, payload)
	if err != nil {
		return
	}
	select {
	case outbox <- env:
	default:
	}
}
