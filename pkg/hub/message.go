// Package hub fans dashboard events out to websocket clients using the
// channel-based register/unregister/broadcast loop.
package hub

import (
	"encoding/json"
	"time"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG frames)
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// Envelope wraps every JSON event so clients can switch on Event.
type Envelope struct {
	Event string          `json:"event"`
	Time  time.Time       `json:"time"`
	Data  json.RawMessage `json:"data"`
}

// NewEvent encodes v inside an Envelope.
func NewEvent(event string, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	env, err := json.Marshal(Envelope{Event: event, Time: time.Now(), Data: data})
	if err != nil {
		return Message{}, err
	}
	return Message{Type: JSONMessage, Data: env}, nil
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
