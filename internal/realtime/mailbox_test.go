package realtime

import (
	"strings"
	"testing"
)

func family(cmd string) string { return strings.SplitN(cmd, ".", 2)[0] }

func TestMailbox_CoalescesByKey(t *testing.T) {
	m := NewMailbox(family)
	m.Put("speech.start")
	m.Put("camera.start")
	m.Put("speech.stop")

	got := m.Take()
	if len(got) != 2 || got[0] != "speech.stop" || got[1] != "camera.start" {
		t.Errorf("Take = %v, want [speech.stop camera.start]", got)
	}
	if m.Len() != 0 || len(m.Take()) != 0 {
		t.Error("Take should empty the box")
	}
}

func TestMailbox_NeverDropsWhileUnread(t *testing.T) {
	m := NewMailbox(family)
	for i := 0; i < 1000; i++ {
		m.Put("speech.stop")
		m.Put("speech.start")
	}
	select {
	case <-m.Ready():
	default:
		t.Fatal("reader not woken")
	}
	if got := m.Take(); len(got) != 1 || got[0] != "speech.start" {
		t.Errorf("Take = %v, want the latest command", got)
	}
}
