package protocol

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/feltvision/tablesight/pkg/table"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    FrameData{Width: 640, Height: 480, Format: "jpeg"},
			wantErr: false,
		},
		{
			name:    "error message",
			msgType: TypeError,
			data:    ErrorData{Stage: "detect", Error: "model not loaded", Tick: 7},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if msg == nil && !tt.wantErr {
				t.Error("NewMessage() returned nil message")
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	// Create a frame message
	originalFrame := FrameData{
		Width:   1920,
		Height:  1080,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString([]byte("test image data")),
		FrameID: 42,
	}

	msg, err := NewMessage(TypeFrame, originalFrame)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	// Serialize to bytes
	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	// Parse back
	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	// Verify type
	if parsed.Type != TypeFrame {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeFrame)
	}

	// Extract data
	frameData, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}

	if frameData.Width != originalFrame.Width {
		t.Errorf("Width = %v, want %v", frameData.Width, originalFrame.Width)
	}
	if frameData.Height != originalFrame.Height {
		t.Errorf("Height = %v, want %v", frameData.Height, originalFrame.Height)
	}
	if frameData.FrameID != originalFrame.FrameID {
		t.Errorf("FrameID = %v, want %v", frameData.FrameID, originalFrame.FrameID)
	}
}

func TestFrameMessage(t *testing.T) {
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10} // Fake JPEG header

	msg, err := NewFrameMessage(640, 480, jpegData, 1)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	if msg.Type != TypeFrame {
		t.Errorf("Type = %v, want %v", msg.Type, TypeFrame)
	}

	frameData, err := msg.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}

	if frameData.Width != 640 {
		t.Errorf("Width = %v, want 640", frameData.Width)
	}
	if frameData.Format != "jpeg" {
		t.Errorf("Format = %v, want jpeg", frameData.Format)
	}

	decoded, err := frameData.DecodeFrameData()
	if err != nil {
		t.Fatalf("DecodeFrameData() error = %v", err)
	}

	if len(decoded) != len(jpegData) {
		t.Errorf("Decoded length = %v, want %v", len(decoded), len(jpegData))
	}
}

func TestStateMessage(t *testing.T) {
	st := table.State{
		Tick:          99,
		HeroCards:     []string{"Ah", "Kd"},
		BoardCards:    []string{"2c", "7s", "Jh"},
		Street:        table.StreetFlop,
		HeroActive:    true,
		PlayersInHand: 3,
		ActivePlayers: 5,
		TableFormat:   "6-Max",
		Blinds:        table.Blinds{Small: 0.5, Big: 1.0},
	}

	msg, err := NewStateMessage(st)
	if err != nil {
		t.Fatalf("NewStateMessage() error = %v", err)
	}

	if msg.Type != TypeState {
		t.Errorf("Type = %v, want %v", msg.Type, TypeState)
	}

	stateData, err := msg.GetStateData()
	if err != nil {
		t.Fatalf("GetStateData() error = %v", err)
	}

	if stateData.Tick != 99 {
		t.Errorf("Tick = %v, want 99", stateData.Tick)
	}
	if len(stateData.HeroCards) != 2 || stateData.HeroCards[0] != "Ah" {
		t.Errorf("HeroCards = %v, want [Ah Kd]", stateData.HeroCards)
	}
	if stateData.Street != table.StreetFlop {
		t.Errorf("Street = %v, want %v", stateData.Street, table.StreetFlop)
	}
	if !stateData.HeroActive {
		t.Error("HeroActive should be true")
	}
	if stateData.Blinds.Big != 1.0 {
		t.Errorf("Blinds.Big = %v, want 1.0", stateData.Blinds.Big)
	}
}

func TestSeatsMessage(t *testing.T) {
	snap := table.RegistrySnapshot{
		Confirmed: 4,
		Tracked:   6,
		Points: []table.Point{
			{X: 0.12, Y: 0.44},
			{X: 0.88, Y: 0.44},
		},
	}

	msg, err := NewSeatsMessage(snap)
	if err != nil {
		t.Fatalf("NewSeatsMessage() error = %v", err)
	}

	if msg.Type != TypeSeats {
		t.Errorf("Type = %v, want %v", msg.Type, TypeSeats)
	}

	seatsData, err := msg.GetSeatsData()
	if err != nil {
		t.Fatalf("GetSeatsData() error = %v", err)
	}

	if seatsData.Confirmed != 4 {
		t.Errorf("Confirmed = %v, want 4", seatsData.Confirmed)
	}
	if seatsData.Tracked != 6 {
		t.Errorf("Tracked = %v, want 6", seatsData.Tracked)
	}
	if len(seatsData.Points) != 2 {
		t.Fatalf("Points length = %v, want 2", len(seatsData.Points))
	}
	if seatsData.Points[0].X != 0.12 {
		t.Errorf("Points[0].X = %v, want 0.12", seatsData.Points[0].X)
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage("ocr", "deadline exceeded", 123)
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}

	if msg.Type != TypeError {
		t.Errorf("Type = %v, want %v", msg.Type, TypeError)
	}

	errData, err := msg.GetErrorData()
	if err != nil {
		t.Fatalf("GetErrorData() error = %v", err)
	}

	if errData.Stage != "ocr" {
		t.Errorf("Stage = %v, want ocr", errData.Stage)
	}
	if errData.Error != "deadline exceeded" {
		t.Errorf("Error = %v, want deadline exceeded", errData.Error)
	}
	if errData.Tick != 123 {
		t.Errorf("Tick = %v, want 123", errData.Tick)
	}
}

func TestConfigMessage(t *testing.T) {
	msg, err := NewConfigMessage(map[string]interface{}{
		"preset":       "left-half",
		"region_width": 960,
	})
	if err != nil {
		t.Fatalf("NewConfigMessage() error = %v", err)
	}

	if msg.Type != TypeConfig {
		t.Errorf("Type = %v, want %v", msg.Type, TypeConfig)
	}

	configUpdate, err := msg.GetConfigUpdate()
	if err != nil {
		t.Fatalf("GetConfigUpdate() error = %v", err)
	}

	if configUpdate.Capture == nil {
		t.Fatal("Capture config should not be nil")
	}
	if configUpdate.Capture["preset"] != "left-half" {
		t.Errorf("preset = %v, want left-half", configUpdate.Capture["preset"])
	}
}

func TestCommandMessage(t *testing.T) {
	msg, err := NewCommandMessage(CommandReset)
	if err != nil {
		t.Fatalf("NewCommandMessage() error = %v", err)
	}

	if msg.Type != TypeCommand {
		t.Errorf("Type = %v, want %v", msg.Type, TypeCommand)
	}

	cmd, err := msg.GetCommandData()
	if err != nil {
		t.Fatalf("GetCommandData() error = %v", err)
	}

	if cmd.Name != CommandReset {
		t.Errorf("Name = %v, want %v", cmd.Name, CommandReset)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	if pingMsg.Type != TypePing {
		t.Errorf("Type = %v, want %v", pingMsg.Type, TypePing)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}

	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	// Create pong response
	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingMsg.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}

	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid json",
			input:   "not json",
			wantErr: true,
		},
		{
			name:    "empty json",
			input:   "{}",
			wantErr: false, // Empty is valid, just no type
		},
		{
			name:    "valid message",
			input:   `{"type":"ping","ts":1234567890}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageJSON(t *testing.T) {
	// Verify JSON structure matches expected format
	msg, _ := NewErrorMessage("capture", "no frame yet", 1)

	bytes, _ := msg.Bytes()

	var parsed map[string]interface{}
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal as map: %v", err)
	}

	if parsed["type"] != "error" {
		t.Errorf("type = %v, want error", parsed["type"])
	}

	if _, ok := parsed["ts"]; !ok {
		t.Error("ts field should be present")
	}

	if _, ok := parsed["data"]; !ok {
		t.Error("data field should be present")
	}
}

func BenchmarkNewFrameMessage(b *testing.B) {
	jpegData := make([]byte, 100*1024) // 100KB fake JPEG

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewFrameMessage(1920, 1080, jpegData, uint64(i))
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewFrameMessage(1920, 1080, make([]byte, 100*1024), 1)
	bytes, _ := msg.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseMessage(bytes)
	}
}
