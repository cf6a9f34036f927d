// Package fsm carries small helpers around looplab/fsm.
package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to the fsm.Callback shape,
// recording the error on the event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Observer is a state machine in which every transition between distinct
// states is legal. It suits observed state streams (telemetry phases) where
// samples may be lost, so restricting edges would only manufacture errors.
// Not safe for concurrent use; callers serialize access.
type Observer struct {
	m *fsm.FSM
}

// NewObserver builds an Observer starting at initial. onTransition fires on
// every state change, including the first one away from initial.
func NewObserver(initial string, states []string, onTransition func(from, to string)) *Observer {
	all := []string{initial}
	for _, s := range states {
		if s != initial {
			all = append(all, s)
		}
	}

	events := fsm.Events{}
	for _, dst := range all {
		src := make([]string, 0, len(all)-1)
		for _, s := range all {
			if s != dst {
				src = append(src, s)
			}
		}
		events = append(events, fsm.EventDesc{Name: eventFor(dst), Src: src, Dst: dst})
	}

	callbacks := fsm.Callbacks{
		"enter_state": WrapEvent(func(ctx context.Context, e *fsm.Event) error {
			if onTransition != nil {
				onTransition(e.Src, e.Dst)
			}
			return nil
		}),
	}

	return &Observer{m: fsm.NewFSM(initial, events, callbacks)}
}

// Observe moves the machine to state. Repeats of the current state are a
// no-op and fire nothing.
func (o *Observer) Observe(state string) {
	if o.m.Current() == state {
		return
	}
	// The only error paths are no-transition ones, filtered above.
	_ = o.m.Event(context.Background(), eventFor(state))
}

// Current returns the present state.
func (o *Observer) Current() string {
	return o.m.Current()
}

func eventFor(state string) string {
	return "observe_" + state
}
