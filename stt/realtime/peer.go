package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	opuscodec "github.com/jj11hh/opus"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var (
	ErrNotReady = errors.New("realtime: call not connected")
	ErrClosed   = errors.New("realtime: call closed")
)

// maxOpusPacket is the largest packet a single Opus frame encodes to.
const maxOpusPacket = 1275

var iceServers = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	APIKey   string
	Endpoint string        // SDP exchange endpoint, defaults to CallsEndpoint
	Session  SessionConfig // Transcription session config
}

// peer is one WebRTC call to the Realtime API: an Opus audio track out and
// transcription events in over the data channel.
type peer struct {
	cfg ClientConfig

	mu     sync.Mutex
	closed bool
	pc     *webrtc.PeerConnection
	track  *webrtc.TrackLocalStaticSample
	enc    *opuscodec.Encoder
	packet []byte

	events chan Event
	errs   chan error
	done   chan struct{}
	opened chan struct{}
}

// newPeer prepares a call; Connect dials it.
func newPeer(cfg ClientConfig) *peer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = CallsEndpoint
	}
	return &peer{
		cfg:    cfg,
		packet: make([]byte, maxOpusPacket),
		events: make(chan Event, 100),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		opened: make(chan struct{}),
	}
}

// Connect mints a session key, negotiates the call and waits for the event
// channel to open. On error the caller must still Close the peer.
func (p *peer) Connect(ctx context.Context) error {
	secret, err := createSession(ctx, p.cfg.APIKey, p.cfg.Session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := p.setup(); err != nil {
		return err
	}
	if err := p.negotiate(ctx, secret); err != nil {
		return err
	}

	select {
	case <-p.opened:
		slog.Debug("realtime call connected")
		return nil
	case err := <-p.errs:
		return err
	case <-ctx.Done():
		return fmt.Errorf("wait for event channel: %w", ctx.Err())
	}
}

// setup builds the peer connection with its outgoing track and event
// channel.
func (p *peer) setup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	me := &webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		return fmt.Errorf("register codecs: %w", err)
	}
	pc, err := webrtc.NewAPI(webrtc.WithMediaEngine(me)).
		NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	p.pc = pc

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: outputRate,
		Channels:  outputChannels,
	}, "audio", "echoflow-mic")
	if err != nil {
		return fmt.Errorf("create audio track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		return fmt.Errorf("add audio track: %w", err)
	}
	enc, err := opuscodec.NewEncoder(outputRate, outputChannels, opuscodec.AppRestrictedLowdelay)
	if err != nil {
		return fmt.Errorf("create opus encoder: %w", err)
	}
	p.track, p.enc = track, enc

	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	dc.OnOpen(func() { close(p.opened) })
	dc.OnMessage(p.handleDataMessage)

	// Transcription sessions send no audio back; drain anything that arrives.
	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := remote.Read(buf); err != nil {
					return
				}
			}
		}()
	})
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if state != webrtc.ICEConnectionStateFailed && state != webrtc.ICEConnectionStateClosed {
			return
		}
		select {
		case p.errs <- fmt.Errorf("ICE connection %s", state):
		default:
		}
	})
	return nil
}

// negotiate sends a fully gathered offer and applies the answer.
func (p *peer) negotiate(ctx context.Context, secret string) error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return fmt.Errorf("gather ICE candidates: %w", ctx.Err())
	}

	answer, err := exchangeSDP(ctx, p.cfg.Endpoint, p.pc.LocalDescription().SDP, secret)
	if err != nil {
		return fmt.Errorf("exchange SDP: %w", err)
	}
	err = p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer})
	if err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (p *peer) handleDataMessage(msg webrtc.DataChannelMessage) {
	event, err := ParseEvent(msg.Data)
	if err != nil {
		slog.Warn("parse realtime event", "error", err)
		return
	}

	select {
	case p.events <- event:
	case <-p.done:
	case <-time.After(50 * time.Millisecond):
		slog.Warn("realtime event queue full, dropping", "type", event.eventType())
	}
}

// SendAudio encodes and sends one 20 ms frame of 48 kHz stereo interleaved
// samples.
func (p *peer) SendAudio(samples []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.track == nil || p.enc == nil {
		return ErrNotReady
	}

	n, err := p.enc.EncodeFloat32(samples, p.packet)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	return p.track.WriteSample(media.Sample{
		Data:     p.packet[:n],
		Duration: time.Duration(len(samples)/outputChannels) * time.Second / outputRate,
	})
}

// Messages returns parsed server events.
func (p *peer) Messages() <-chan Event { return p.events }

// Errors returns connection failures.
func (p *peer) Errors() <-chan error { return p.errs }

// Done is closed once the peer is closed.
func (p *peer) Done() <-chan struct{} { return p.done }

// Close hangs up. It is safe to call more than once.
func (p *peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	if p.pc != nil {
		return p.pc.Close()
	}
	return nil
}
