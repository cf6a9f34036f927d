package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

func TestObserverTransitions(t *testing.T) {
	type edge struct{ from, to string }
	var seen []edge

	obs := NewObserver("idle", []string{"busy", "done"}, func(from, to string) {
		seen = append(seen, edge{from, to})
	})

	obs.Observe("busy")
	obs.Observe("busy") // repeat, must stay silent
	obs.Observe("done")
	obs.Observe("idle") // any distinct transition is legal

	want := []edge{{"idle", "busy"}, {"busy", "done"}, {"done", "idle"}}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
	if obs.Current() != "idle" {
		t.Errorf("Current() = %q", obs.Current())
	}
}

func TestObserverInitialInStates(t *testing.T) {
	// initial listed again in states must not produce a duplicate event.
	obs := NewObserver("a", []string{"a", "b"}, nil)
	obs.Observe("b")
	if obs.Current() != "b" {
		t.Errorf("Current() = %q", obs.Current())
	}
}

func TestWrapEventRecordsError(t *testing.T) {
	wantErr := errors.New("boom")
	cb := WrapEvent(func(ctx context.Context, event *fsm.Event) error {
		return wantErr
	})

	evt := &fsm.Event{}
	cb(context.Background(), evt)
	if !errors.Is(evt.Err, wantErr) {
		t.Errorf("event err = %v, want %v", evt.Err, wantErr)
	}
}
