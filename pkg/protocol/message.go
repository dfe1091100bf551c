// Package protocol defines the WebSocket message types between the
// vision core, its dashboard and external consumers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Core → client messages
	TypeFrame MessageType = "frame" // Prepared capture frame
	TypeState MessageType = "state" // Table state snapshot
	TypeSeats MessageType = "seats" // Seat registry diagnostics
	TypeError MessageType = "error" // Pipeline stage failure

	// Client → core messages
	TypeConfig  MessageType = "config"  // Capture configuration update
	TypeCommand MessageType = "command" // Control command

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Command names carried by TypeCommand messages.
const (
	CommandReset  = "reset"  // Forget buffered cards and tracked seats
	CommandPause  = "pause"  // Stop ticking, keep connections
	CommandResume = "resume" // Resume ticking
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// FrameData contains one prepared capture frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// ErrorData reports a pipeline stage failure
type ErrorData struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
	Tick  uint64 `json:"tick"`
}

// ConfigUpdate carries capture configuration changes from the
// dashboard. Keys follow the capture manager's parameter names.
type ConfigUpdate struct {
	Capture map[string]interface{} `json:"capture,omitempty"`
}

// CommandData carries a control command
type CommandData struct {
	Name string `json:"name"` // CommandReset, CommandPause, CommandResume
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
