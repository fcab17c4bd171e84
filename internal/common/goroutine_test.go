package common

import (
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func TestSafeGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})
	SafeGo(arbor.NewLogger(), "runs", func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine never ran")
	}
}

func TestSafeGo_ContainsPanic(t *testing.T) {
	panicked := make(chan struct{})
	SafeGo(arbor.NewLogger(), "panics", func() {
		defer close(panicked)
		panic("bad payload")
	})

	select {
	case <-panicked:
	case <-time.After(time.Second):
		t.Fatal("goroutine never ran")
	}

	// The panic was absorbed; subsequent work proceeds.
	done := make(chan struct{})
	SafeGo(nil, "after", func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follow-up goroutine never ran")
	}
}
