// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is a pre-encoded JSON frame to broadcast to clients
type Message struct {
	Data []byte
}

// Envelope is the JSON frame sent to browser clients.
type Envelope struct {
	Type string      `json:"type"` // "placement", "state", ...
	Time time.Time   `json:"time"`
	Data interface{} `json:"data"`
}

// Encode marshals an envelope of the given type.
func Encode(msgType string, data interface{}) (Message, error) {
	b, err := json.Marshal(Envelope{Type: msgType, Time: time.Now(), Data: data})
	if err != nil {
		return Message{}, err
	}
	return Message{Data: b}, nil
}
