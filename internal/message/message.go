// Package message defines the immutable value object carried on the bus.
package message

import (
	"encoding/json"
	"time"
)

// SenderSystem is the sender recorded when the runtime itself originates a
// message.
const SenderSystem = "system"

// Message is one published unit of routing. The bus treats it as read-only
// in transit; all matching agents may share the same pointer.
type Message struct {
	Type      string         // dot-segmented topic, e.g. "system.status.request"
	Data      map[string]any // optional payload; nil means none
	Timestamp time.Time
	Sender    string
}

// New constructs a Message with the construction-time timestamp and the
// system sender sentinel.
func New(msgType string, data map[string]any) *Message {
	return &Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
		Sender:    SenderSystem,
	}
}

// InvalidMessageError is returned by Validate (and surfaced from Publish)
// when a message cannot be routed.
type InvalidMessageError struct {
	Reason string
}

func (e *InvalidMessageError) Error() string {
	return "invalid message: " + e.Reason
}

// Validate checks that the message is routable. Payload shape is the
// receiving agent's concern; only the type is enforced here.
func (m *Message) Validate() error {
	if m == nil {
		return &InvalidMessageError{Reason: "message is nil"}
	}
	if m.Type == "" {
		return &InvalidMessageError{Reason: "message_type is required"}
	}
	return nil
}

// wire is the JSON schema used by transports outside the core.
// Timestamp travels as unix seconds to match the original protocol.
type wire struct {
	Type      string         `json:"message_type"`
	Data      map[string]any `json:"data"`
	Timestamp float64        `json:"timestamp,omitempty"`
	Sender    string         `json:"sender,omitempty"`
}

// MarshalJSON encodes the message in the wire schema.
func (m *Message) MarshalJSON() ([]byte, error) {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(wire{
		Type:      m.Type,
		Data:      m.Data,
		Timestamp: float64(ts.UnixNano()) / float64(time.Second),
		Sender:    m.Sender,
	})
}

// UnmarshalJSON decodes the wire schema, applying the defaults the schema
// specifies: timestamp = now, sender = "system".
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Type = w.Type
	m.Data = w.Data
	if w.Timestamp > 0 {
		sec := int64(w.Timestamp)
		nsec := int64((w.Timestamp - float64(sec)) * float64(time.Second))
		m.Timestamp = time.Unix(sec, nsec)
	} else {
		m.Timestamp = time.Now()
	}
	m.Sender = w.Sender
	if m.Sender == "" {
		m.Sender = SenderSystem
	}
	return nil
}
