package input

import (
	"sync"
	"time"
)

// RemoteRecognizer is a Recognizer whose engine runs on the client.
// Start and Stop become outbound commands; client messages are pushed back
// in as events.
type RemoteRecognizer struct {
	send   func(command string) error
	events chan RecognizerEvent

	once sync.Once
	done chan struct{}
}

// Outbound commands sent to the client.
const (
	CommandSpeechStart = "speech.start"
	CommandSpeechStop  = "speech.stop"
)

// NewRemoteRecognizer returns a recognizer that issues commands through send.
func NewRemoteRecognizer(send func(command string) error) *RemoteRecognizer {
	return &RemoteRecognizer{
		send:   send,
		events: make(chan RecognizerEvent, 16),
		done:   make(chan struct{}),
	}
}

func (r *RemoteRecognizer) Start() error { return r.send(CommandSpeechStart) }

func (r *RemoteRecognizer) Stop() { _ = r.send(CommandSpeechStop) }

func (r *RemoteRecognizer) Events() <-chan RecognizerEvent { return r.events }

// Push delivers a client event. It gives up after timeout so a stalled
// consumer cannot wedge the socket reader.
func (r *RemoteRecognizer) Push(ev RecognizerEvent, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case r.events <- ev:
		return true
	case <-r.done:
	case <-t.C:
	}
	return false
}

// Close releases a blocked Push.
func (r *RemoteRecognizer) Close() {
	r.once.Do(func() { close(r.done) })
}
