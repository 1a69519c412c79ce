// internal/input/camera.go
//
// Camera-backed gesture pipeline.
//
// Run opens the camera, then once per display interval pulls the latest
// frame, locates a hand, classifies it and feeds the gesture channel.
// Frames that are not ready are skipped, as are frames arriving before a
// detector/classifier is available. Cancelling the context stops polling and
// releases the camera stream.

package input

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Constraints are the minimum video dimensions requested from a camera.
type Constraints struct {
	MinWidth  int `json:"minWidth"`
	MinHeight int `json:"minHeight"`
}

// DefaultConstraints matches a small front-facing webcam.
var DefaultConstraints = Constraints{MinWidth: 320, MinHeight: 240}

// Frame is one video frame. Hands carries landmarks a client already
// located; Fist carries a probability a client already computed.
type Frame struct {
	Seq    uint64    `json:"seq"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Hands  [][]Point `json:"hands,omitempty"`
	Fist   *float64  `json:"fist,omitempty"`
}

// Camera opens a video stream.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream yields frames. Next reports false when no new frame is ready.
type Stream interface {
	Next() (Frame, bool)
	Stop()
}

// HandDetector locates hands in a frame.
type HandDetector interface {
	Detect(f Frame) ([][]Point, error)
}

// PassthroughDetector returns the landmarks already attached to the frame.
type PassthroughDetector struct{}

func (PassthroughDetector) Detect(f Frame) ([][]Point, error) { return f.Hands, nil }

// DisplayInterval is the default poll period, one frame at 60Hz.
const DisplayInterval = 16 * time.Millisecond

// GesturePipeline connects a camera to the gesture channel.
type GesturePipeline struct {
	Camera     Camera
	Detector   HandDetector
	Classifier FistClassifier
	Gesture    *Gesture
	Interval   time.Duration
}

// Run polls until ctx is done. A camera failure marks the gesture channel
// unsupported and is returned.
func (p *GesturePipeline) Run(ctx context.Context) error {
	if p.Camera == nil {
		p.Gesture.MarkUnsupported("Camera not available")
		return ErrUnsupported
	}
	stream, err := p.Camera.Open(ctx, DefaultConstraints)
	if err != nil {
		p.Gesture.MarkUnsupported("Camera access denied or unavailable. Gesture control is disabled.")
		return fmt.Errorf("open camera: %w", err)
	}
	defer stream.Stop()
	p.Gesture.MarkSupported()

	interval := p.Interval
	if interval <= 0 {
		interval = DisplayInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(stream)
		}
	}
}

func (p *GesturePipeline) poll(stream Stream) {
	frame, ok := stream.Next()
	if !ok {
		return
	}
	if frame.Fist != nil {
		p.Gesture.Observe(Sample{HandPresent: true, FistProb: *frame.Fist})
		return
	}
	if p.Detector == nil || p.Classifier == nil {
		return
	}
	hands, err := p.Detector.Detect(frame)
	if err != nil {
		log.Debug().Err(err).Msg("hand detection")
		return
	}
	if len(hands) == 0 {
		p.Gesture.Observe(Sample{})
		return
	}
	prob, err := FistProbability(p.Classifier, hands[0])
	if err != nil {
		log.Debug().Err(err).Msg("fist classification")
		return
	}
	p.Gesture.Observe(Sample{HandPresent: true, FistProb: prob})
}

// Outbound commands for a client-hosted camera.
const (
	CommandCameraStart = "camera.start"
	CommandCameraStop  = "camera.stop"
)

// RemoteCamera is a Camera whose device lives on the client. Frames are
// pushed in from the socket; only the newest unread frame is kept.
type RemoteCamera struct {
	send func(command string) error

	mu     sync.Mutex
	denied string
	seq    uint64
	latest Frame
	read   uint64
}

// NewRemoteCamera returns a camera that issues commands through send.
func NewRemoteCamera(send func(command string) error) *RemoteCamera {
	return &RemoteCamera{send: send}
}

// Open asks the client to start its camera.
func (c *RemoteCamera) Open(ctx context.Context, cons Constraints) (Stream, error) {
	c.mu.Lock()
	denied := c.denied
	c.mu.Unlock()
	if denied != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, denied)
	}
	if err := c.send(CommandCameraStart); err != nil {
		return nil, err
	}
	return &remoteStream{cam: c}, nil
}

// Deny records that the client could not provide a camera. Empty reason
// clears a previous denial.
func (c *RemoteCamera) Deny(reason string) {
	c.mu.Lock()
	c.denied = reason
	c.mu.Unlock()
}

// Push stores f as the newest frame.
func (c *RemoteCamera) Push(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	f.Seq = c.seq
	c.latest = f
}

type remoteStream struct {
	cam  *RemoteCamera
	once sync.Once
}

func (s *remoteStream) Next() (Frame, bool) {
	c := s.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == 0 || c.read == c.seq {
		return Frame{}, false
	}
	c.read = c.seq
	return c.latest, true
}

func (s *remoteStream) Stop() {
	s.once.Do(func() { _ = s.cam.send(CommandCameraStop) })
}
