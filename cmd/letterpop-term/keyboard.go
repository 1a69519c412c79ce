// cmd/letterpop-term/keyboard.go
//
// Typed transcripts stand in for a microphone: the ':' prompt feeds lines to
// a Recognizer the session supervises like any other.

package main

import (
	"sync"

	"github.com/robalobadob/letterpop/internal/input"
)

// typedRecognizer is a Recognizer fed from the keyboard.
type typedRecognizer struct {
	mu        sync.Mutex
	listening bool
	events    chan input.RecognizerEvent
}

func newTypedRecognizer() *typedRecognizer {
	return &typedRecognizer{events: make(chan input.RecognizerEvent, 8)}
}

func (t *typedRecognizer) Start() error {
	t.mu.Lock()
	t.listening = true
	t.mu.Unlock()
	t.emit(input.RecognizerEvent{Kind: input.EventStart})
	return nil
}

func (t *typedRecognizer) Stop() {
	t.mu.Lock()
	was := t.listening
	t.listening = false
	t.mu.Unlock()
	if was {
		t.emit(input.RecognizerEvent{Kind: input.EventEnd})
	}
}

func (t *typedRecognizer) Events() <-chan input.RecognizerEvent { return t.events }

// Say delivers a transcript. It reports false when nothing is listening.
func (t *typedRecognizer) Say(text string) bool {
	t.mu.Lock()
	on := t.listening
	t.mu.Unlock()
	if on {
		t.emit(input.RecognizerEvent{Kind: input.EventResult, Transcript: text})
	}
	return on
}

func (t *typedRecognizer) emit(ev input.RecognizerEvent) {
	select {
	case t.events <- ev:
	default:
	}
}
