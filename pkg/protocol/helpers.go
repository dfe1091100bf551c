package protocol

import (
	"encoding/base64"
	"time"

	"github.com/feltvision/tablesight/pkg/table"
)

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	})
}

// NewStateMessage wraps a table state snapshot
func NewStateMessage(st table.State) (*Message, error) {
	return NewMessage(TypeState, st)
}

// NewSeatsMessage wraps a seat registry snapshot
func NewSeatsMessage(snap table.RegistrySnapshot) (*Message, error) {
	return NewMessage(TypeSeats, snap)
}

// NewErrorMessage reports a pipeline stage failure
func NewErrorMessage(stage, errText string, tick uint64) (*Message, error) {
	return NewMessage(TypeError, ErrorData{
		Stage: stage,
		Error: errText,
		Tick:  tick,
	})
}

// NewConfigMessage creates a capture configuration update message
func NewConfigMessage(capture map[string]interface{}) (*Message, error) {
	return NewMessage(TypeConfig, ConfigUpdate{Capture: capture})
}

// NewCommandMessage creates a control command message
func NewCommandMessage(name string) (*Message, error) {
	return NewMessage(TypeCommand, CommandData{Name: name})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetStateData extracts a table state snapshot from a message
func (m *Message) GetStateData() (*table.State, error) {
	var data table.State
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSeatsData extracts a seat registry snapshot from a message
func (m *Message) GetSeatsData() (*table.RegistrySnapshot, error) {
	var data table.RegistrySnapshot
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetConfigUpdate extracts config update from a message
func (m *Message) GetConfigUpdate() (*ConfigUpdate, error) {
	var data ConfigUpdate
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommandData extracts a control command from a message
func (m *Message) GetCommandData() (*CommandData, error) {
	var data CommandData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
