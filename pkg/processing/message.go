package processing

import "time"

// Topics published by the console.
const (
	TopicVehicleState   = "teleop.vehicle.state"
	TopicControlCommand = "teleop.control.command"
	TopicControlAction  = "teleop.control.action"
)

// Content types carried in Message.ContentType.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeFlatbuffers = "application/x-flatbuffers"
)

// Message is one event travelling from the control loops to the sinks.
type Message struct {
	Topic       string
	ContentType string
	Data        []byte
	Timestamp   int64 // unix nanoseconds
}

// NewMessage stamps a message with the current time.
func NewMessage(topic, contentType string, data []byte) *Message {
	return &Message{
		Topic:       topic,
		ContentType: contentType,
		Data:        data,
		Timestamp:   GetCurrentTimestamp(),
	}
}

// GetCurrentTimestamp gets the current timestamp in nanoseconds
func GetCurrentTimestamp() int64 {
	return time.Now().UnixNano()
}
