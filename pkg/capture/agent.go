package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/feltvision/tablesight/internal/config"
	"github.com/feltvision/tablesight/internal/httpc"
	"github.com/feltvision/tablesight/internal/log"
)

// AgentSource receives the table window from a remote capture agent
// over WebRTC. The agent multicasts its screen as H264; we attach as a
// receive-only peer through its signalling server.
type AgentSource struct {
	cfg           Config
	signallingURL string
	logger        *slog.Logger

	ws      *websocket.Conn
	pc      *webrtc.PeerConnection
	wsMutex sync.Mutex

	myPeerID   string
	producerID string
	sessionID  string

	decoder    *Decoder
	frameReady chan struct{}

	// Window title and display-space table rect of the captured
	// table, pushed by the agent over the signalling channel.
	metaMu    sync.RWMutex
	title     string
	region    image.Rectangle
	hasRegion bool

	packets     atomic.Uint64
	packetsLost atomic.Uint64
	frames      atomic.Uint64
	seq         atomic.Uint64

	// RTP continuity state, touched only from the track goroutine.
	lastSeq uint16
	haveSeq bool

	closed atomic.Bool
}

// NewAgent connects to the capture agent and waits for video.
func NewAgent(cfg Config) (*AgentSource, error) {
	// The signalling server answers plain HTTP on the same port. A
	// quick probe gives a clearer error than a websocket dial timeout
	// when the agent host is down.
	if resp, err := httpc.Get(fmt.Sprintf("http://%s/status", cfg.AgentAddr)); err != nil {
		return nil, fmt.Errorf("agent %s unreachable: %w", cfg.AgentAddr, err)
	} else {
		resp.Body.Close()
	}

	a := &AgentSource{
		cfg:           cfg,
		signallingURL: fmt.Sprintf("ws://%s", cfg.AgentAddr),
		logger:        log.Component("capture"),
		decoder:       NewDecoder(100 * time.Millisecond),
		frameReady:    make(chan struct{}, 1),
	}
	if err := a.connect(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *AgentSource) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	var err error
	a.ws, _, err = dialer.Dial(a.signallingURL, nil)
	if err != nil {
		return fmt.Errorf("signalling connect failed: %w", err)
	}

	if err := a.waitForWelcome(); err != nil {
		return fmt.Errorf("welcome failed: %w", err)
	}
	if err := a.findProducer(); err != nil {
		return fmt.Errorf("find producer failed: %w", err)
	}
	if err := a.createPeerConnection(); err != nil {
		return fmt.Errorf("peer connection failed: %w", err)
	}
	if err := a.startSession(); err != nil {
		return fmt.Errorf("start session failed: %w", err)
	}

	go a.handleSignalling()

	select {
	case <-a.frameReady:
		a.logger.Info("agent video connected", "agent", a.cfg.AgentAddr)
	case <-time.After(15 * time.Second):
		return fmt.Errorf("timeout waiting for agent video")
	}
	return nil
}

func (a *AgentSource) waitForWelcome() error {
	a.ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := a.ws.ReadMessage()
	a.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var welcome struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", welcome.Type)
	}
	a.myPeerID = welcome.PeerID
	return nil
}

func (a *AgentSource) findProducer() error {
	a.wsMutex.Lock()
	err := a.ws.WriteJSON(map[string]string{"type": "list"})
	a.wsMutex.Unlock()
	if err != nil {
		return err
	}

	a.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := a.ws.ReadMessage()
	a.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var listResp struct {
		Type      string `json:"type"`
		Producers []struct {
			ID   string            `json:"id"`
			Meta map[string]string `json:"meta"`
		} `json:"producers"`
	}
	if err := json.Unmarshal(msg, &listResp); err != nil {
		return err
	}

	for _, p := range listResp.Producers {
		if name, ok := p.Meta["name"]; ok && name == a.cfg.AgentName {
			a.producerID = p.ID
			if t, ok := p.Meta["title"]; ok {
				a.setTitle(t)
			}
			if r, ok := config.ParseRect(p.Meta["region"]); ok {
				a.setRegion(r)
			}
			return nil
		}
	}
	return fmt.Errorf("producer %q not found among %d producers", a.cfg.AgentName, len(listResp.Producers))
}

func (a *AgentSource) createPeerConnection() error {
	var err error
	a.pc, err = webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}

	if _, err = a.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	a.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			a.logger.Info("agent track attached", "codec", track.Codec().MimeType)
			go a.handleVideoTrack(track)
		}
	})

	a.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			a.sendICECandidate(candidate)
		}
	})

	a.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		a.logger.Info("agent connection state", "state", state.String())
	})

	return nil
}

func (a *AgentSource) startSession() error {
	a.wsMutex.Lock()
	defer a.wsMutex.Unlock()
	return a.ws.WriteJSON(map[string]string{
		"type":   "startSession",
		"peerId": a.producerID,
	})
}

func (a *AgentSource) handleSignalling() {
	for !a.closed.Load() {
		_, msg, err := a.ws.ReadMessage()
		if err != nil {
			if !a.closed.Load() {
				a.logger.Warn("signalling read failed", "error", err)
			}
			return
		}

		var baseMsg struct {
			Type      string `json:"type"`
			SessionID string `json:"sessionId"`
		}
		json.Unmarshal(msg, &baseMsg)

		switch baseMsg.Type {
		case "sessionStarted":
			a.sessionID = baseMsg.SessionID
		case "peer":
			a.handlePeerMessage(msg)
		case "meta":
			var metaMsg struct {
				Title  string `json:"title"`
				Region string `json:"region"` // "x,y,w,h" in display pixels
			}
			if json.Unmarshal(msg, &metaMsg) != nil {
				continue
			}
			if metaMsg.Title != "" {
				a.setTitle(metaMsg.Title)
			}
			if r, ok := config.ParseRect(metaMsg.Region); ok {
				a.setRegion(r)
			}
		case "endSession":
			return
		}
	}
}

func (a *AgentSource) handlePeerMessage(msg []byte) {
	var peerMsg struct {
		SDP *struct {
			Type string `json:"type"`
			SDP  string `json:"sdp"`
		} `json:"sdp"`
		ICE *struct {
			Candidate     string  `json:"candidate"`
			SDPMid        *string `json:"sdpMid"`
			SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
		} `json:"ice"`
	}
	if err := json.Unmarshal(msg, &peerMsg); err != nil {
		a.logger.Warn("bad peer message", "error", err)
		return
	}

	if peerMsg.SDP != nil && peerMsg.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  peerMsg.SDP.SDP,
		}
		if err := a.pc.SetRemoteDescription(offer); err != nil {
			a.logger.Warn("set remote description failed", "error", err)
			return
		}

		answer, err := a.pc.CreateAnswer(nil)
		if err != nil {
			a.logger.Warn("create answer failed", "error", err)
			return
		}
		if err := a.pc.SetLocalDescription(answer); err != nil {
			a.logger.Warn("set local description failed", "error", err)
			return
		}
		a.sendSDP(answer)
	}

	if peerMsg.ICE != nil {
		a.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     peerMsg.ICE.Candidate,
			SDPMid:        peerMsg.ICE.SDPMid,
			SDPMLineIndex: peerMsg.ICE.SDPMLineIndex,
		})
	}
}

func (a *AgentSource) sendSDP(sdp webrtc.SessionDescription) {
	msg := map[string]interface{}{
		"type":      "peer",
		"sessionId": a.sessionID,
		"sdp": map[string]string{
			"type": sdp.Type.String(),
			"sdp":  sdp.SDP,
		},
	}
	a.wsMutex.Lock()
	a.ws.WriteJSON(msg)
	a.wsMutex.Unlock()
}

func (a *AgentSource) sendICECandidate(candidate *webrtc.ICECandidate) {
	if a.sessionID == "" {
		return
	}

	init := candidate.ToJSON()
	msg := map[string]interface{}{
		"type":      "peer",
		"sessionId": a.sessionID,
		"ice": map[string]interface{}{
			"candidate":     init.Candidate,
			"sdpMid":        init.SDPMid,
			"sdpMLineIndex": init.SDPMLineIndex,
		},
	}
	a.wsMutex.Lock()
	a.ws.WriteJSON(msg)
	a.wsMutex.Unlock()
}

// handleVideoTrack accumulates H264 payload until the RTP marker bit
// closes an access unit, then hands the unit to the decoder.
func (a *AgentSource) handleVideoTrack(track *webrtc.TrackRemote) {
	var nalBuffer bytes.Buffer

	for !a.closed.Load() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		a.account(pkt)

		nalBuffer.Write(pkt.Payload)
		if !pkt.Marker {
			continue
		}

		if frame, _ := a.decoder.DecodeNAL(nalBuffer.Bytes()); frame != nil {
			a.frames.Add(1)
			select {
			case a.frameReady <- struct{}{}:
			default:
			}
		}
		nalBuffer.Reset()
	}
}

// account counts the packet and any sequence gap since the previous
// one as loss. uint16 arithmetic handles wraparound.
func (a *AgentSource) account(pkt *rtp.Packet) {
	a.packets.Add(1)
	if a.haveSeq {
		if gap := pkt.SequenceNumber - a.lastSeq - 1; gap > 0 {
			a.packetsLost.Add(uint64(gap))
		}
	}
	a.lastSeq = pkt.SequenceNumber
	a.haveSeq = true
}

// Capture returns the newest decoded frame from the agent stream.
func (a *AgentSource) Capture() (*Frame, error) {
	data := a.decoder.Latest()
	if data == nil {
		return nil, fmt.Errorf("no frame from agent yet")
	}

	size, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("agent frame corrupt: %w", err)
	}

	return &Frame{
		JPEG:       data,
		Width:      size.Width,
		Height:     size.Height,
		Sequence:   a.seq.Add(1),
		CapturedAt: time.Now(),
	}, nil
}

func (a *AgentSource) setTitle(t string) {
	a.metaMu.Lock()
	a.title = t
	a.metaMu.Unlock()
}

func (a *AgentSource) setRegion(r image.Rectangle) {
	a.metaMu.Lock()
	a.region = r
	a.hasRegion = true
	a.metaMu.Unlock()
}

// Title returns the captured window's title as last reported by the
// agent, empty until the first report.
func (a *AgentSource) Title() string {
	a.metaMu.RLock()
	defer a.metaMu.RUnlock()
	return a.title
}

// Region returns the display-space table rect as last reported by the
// agent. ok is false until the first report.
func (a *AgentSource) Region() (image.Rectangle, bool) {
	a.metaMu.RLock()
	defer a.metaMu.RUnlock()
	return a.region, a.hasRegion
}

// Stats reports transport counters for the agent link.
func (a *AgentSource) Stats() Stats {
	return Stats{
		Packets:      a.packets.Load(),
		PacketsLost:  a.packetsLost.Load(),
		FramesOutput: a.frames.Load(),
	}
}

// Close tears down the WebRTC session.
func (a *AgentSource) Close() error {
	a.closed.Store(true)
	if a.pc != nil {
		a.pc.Close()
	}
	if a.ws != nil {
		a.ws.Close()
	}
	return nil
}

// Ensure AgentSource implements Source.
var _ Source = (*AgentSource)(nil)
