package monitor

import "fmt"

// State represents a state of the sampling loop.
//
// The loop goes Init → Waiting → Sampling → Rendering → Sleeping
// and back to Waiting, or to Done when all the requested records have
// been printed. Cancellation moves from any state to Interrupted
// and then Done.
type State int

const (
	Init State = iota
	Waiting
	Sampling
	Rendering
	Sleeping
	Interrupted
	Done
)

var stateNames = []string{
	Init:        "init",
	Waiting:     "waiting",
	Sampling:    "sampling",
	Rendering:   "rendering",
	Sleeping:    "sleeping",
	Interrupted: "interrupted",
	Done:        "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}
