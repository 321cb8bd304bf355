package ws

import (
	"encoding/json"

	"github.com/arcade-neon/arcade-neon-sub000/internal/domain"
)

const (
	// client → server
	MsgMove  = "move"
	MsgReady = "ready"
	MsgLeave = "leave"

	// server → client
	MsgState = "state"
	MsgError = "error"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// client → server
type MovePayload struct {
	Version int64           `json:"version"`
	Move    json.RawMessage `json:"move"`
}

// server → client

// StatePayload is the full match document snapshot, sent on attach and on
// every change-feed delivery, the subscriber's own writes included. The
// client diffs against what it already rendered.
type StatePayload struct {
	Room    *domain.MatchDoc `json:"room"`
	Version int64            `json:"version"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
