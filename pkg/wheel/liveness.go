package wheel

import (
	"fmt"
	"time"
)

// DefaultLivenessTimeout is the silence tolerated on the command link.
const DefaultLivenessTimeout = 5 * time.Second

// LivenessState is the state of the Watchdog.
type LivenessState int

// Liveness states.
const (
	AwaitingFirstCommand LivenessState = iota
	Operational
	Restarting
)

func (s LivenessState) String() string {
	switch s {
	case AwaitingFirstCommand:
		return "awaiting-first-command"
	case Operational:
		return "operational"
	case Restarting:
		return "restarting"
	}
	return fmt.Sprintf("liveness(%d)", int(s))
}

// LivenessMode selects when silence is fatal.
type LivenessMode int

// Liveness modes.
const (
	// Rearm expires on silence both before and after the first command.
	Rearm LivenessMode = iota
	// FirstCommandOnly expires only when no command arrives at all.
	FirstCommandOnly
)

func (m LivenessMode) String() string {
	switch m {
	case Rearm:
		return "rearm"
	case FirstCommandOnly:
		return "first-command"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseLivenessMode parses the name of a LivenessMode.
func ParseLivenessMode(s string) (LivenessMode, error) {
	switch s {
	case "rearm", "":
		return Rearm, nil
	case "first-command":
		return FirstCommandOnly, nil
	}
	return Rearm, fmt.Errorf("unknown liveness mode %q", s)
}

// Watchdog tracks the recency of inbound commands. It's owned by the loop
// goroutine and not safe for concurrent use.
type Watchdog struct {
	Timeout time.Duration
	Mode    LivenessMode

	state LivenessState
	last  time.Time
}

// NewWatchdog creates a Watchdog.
func NewWatchdog(timeout time.Duration, mode LivenessMode) *Watchdog {
	return &Watchdog{Timeout: timeout, Mode: mode}
}

// State returns the current state.
func (w *Watchdog) State() LivenessState {
	return w.state
}

// LastReceived returns when a command was last received, or when the
// watchdog started watching.
func (w *Watchdog) LastReceived() time.Time {
	return w.last
}

// Touch records a command received at now.
func (w *Watchdog) Touch(now time.Time) {
	if w.state == Restarting {
		return
	}
	w.state, w.last = Operational, now
}

// Check reports true exactly once, when silence exceeds the timeout and
// the watchdog moves to Restarting.
func (w *Watchdog) Check(now time.Time) bool {
	if w.last.IsZero() {
		w.last = now
		return false
	}
	switch w.state {
	case Restarting:
		return false
	case Operational:
		if w.Mode == FirstCommandOnly {
			return false
		}
	}
	if now.Sub(w.last) <= w.Timeout {
		return false
	}
	w.state = Restarting
	return true
}
