package events_test

import (
	"fmt"
	"testing"

	"github.com/csbeno10/Kripto/foundation/events"
)

func Test_Events(t *testing.T) {
	evts := events.New()

	a := evts.Acquire("a")
	b := evts.Acquire("b")

	if evts.Acquire("a") != a {
		t.Fatal("Should return the same channel for the same id.")
	}

	evts.Send("block: Next: blk[1]: hash[00ab]")

	for name, ch := range map[string]<-chan string{"a": a, "b": b} {
		if msg := <-ch; msg != "block: Next: blk[1]: hash[00ab]" {
			t.Fatalf("[%s] Should receive the message, got %q.", name, msg)
		}
	}

	if err := evts.Release("a"); err != nil {
		t.Fatalf("Should be able to release a listener: %s", err)
	}

	if _, open := <-a; open {
		t.Fatal("Should close a released channel.")
	}

	if err := evts.Release("a"); err == nil {
		t.Fatal("Should not release an unknown id.")
	}

	if evts.Listeners() != 1 {
		t.Fatalf("Should have one listener left, got %d.", evts.Listeners())
	}

	evts.Shutdown()

	if _, open := <-b; open {
		t.Fatal("Should close every channel on shutdown.")
	}
}

func Test_SlowListener(t *testing.T) {
	evts := events.New()
	ch := evts.Acquire("slow")

	// Send never blocks, messages beyond the buffer are dropped.
	for i := range 1000 {
		evts.Send(fmt.Sprintf("msg %d", i))
	}

	if len(ch) == 0 || len(ch) >= 1000 {
		t.Fatalf("Should buffer some messages and drop the rest, got %d.", len(ch))
	}
}
