// Package wire defines the event contract between the client and the
// collaboration backend. Every frame on the channel is one Envelope; the
// event name selects the payload type.
package wire

import "encoding/json"

// Client -> server
const (
	EvtSetIdentity = "setIdentity"
	EvtCreateRoom  = "createRoom"
	EvtJoinRoom    = "joinRoom"
	EvtEditCode    = "editCode"
	EvtTyping      = "typing"
	EvtSendMessage = "sendMessage"
	EvtLeaveRoom   = "leaveRoom"
	EvtRunCode     = "runCode"
)

// Server -> client
const (
	EvtLoadCode            = "loadCode"
	EvtCodeChange          = "codeChange"
	EvtUpdateUsers         = "updateUsers"
	EvtUserTyping          = "userTyping"
	EvtReceiveGroupMessage = "receiveGroupMessage"
	EvtRoomCreated         = "roomCreated"
	EvtRoomError           = "roomError"
	EvtCodeResult          = "CodeResult"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Identity struct {
	Username string `json:"username"`
}

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type EditCode struct {
	RoomID  string `json:"roomId"`
	NewCode string `json:"newCode"`
}

type Typing struct {
	Username string `json:"username"`
}

type ChatMessage struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
	RoomID  string `json:"roomId"`
}

type LeaveRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type RunCode struct {
	RoomID string `json:"roomId"`
}

// CodeUpdate is the payload of both loadCode and codeChange: the full
// document text, not a delta.
type CodeUpdate struct {
	Code string `json:"code"`
}

// Roster is a full snapshot of a room's participants in join order.
type Roster struct {
	Users []string `json:"users"`
}

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type RoomError struct {
	Message string `json:"message"`
}

type CodeResult struct {
	Logs string `json:"logs"`
}

// Seal marshals a payload into a ready-to-send Envelope.
func Seal(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}
