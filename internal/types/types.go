package types

import "github.com/DoyleJ11/truco-backend/internal/engine"

// ClientMessage is one action sent over the socket. The acting user comes from the
// connection, never from the message.
type ClientMessage struct {
	Type   string             `json:"type"`
	Card   *engine.Card       `json:"card,omitempty"`
	Level  engine.EnvidoLevel `json:"level,omitempty"`
	Accept bool               `json:"accept,omitempty"`
}

const (
	MsgState = "state"
	MsgError = "error"
)

type ServerMessage struct {
	Type    string         `json:"type"` // "state" | "error"
	Version int            `json:"version,omitempty"`
	State   *engine.State  `json:"state,omitempty"`
	Events  []engine.Event `json:"events,omitempty"`
	Error   string         `json:"error,omitempty"`
}
