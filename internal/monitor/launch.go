package monitor

import (
	"sync"
	"time"
)

// LaunchState records whether the process already reported its first
// completed transition. Create one per process and share it between all
// monitors; it lives until the process exits.
type LaunchState struct {
	mu        sync.Mutex
	start     time.Time
	completed bool
}

// NewLaunchState anchors elapsed-time measurement at start, normally the
// moment the process began.
func NewLaunchState(start time.Time) *LaunchState {
	return &LaunchState{start: start}
}

// Claim flips the state to launched. It returns true, with the time elapsed
// since start, exactly once per process; every later call returns false.
func (l *LaunchState) Claim(now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.completed {
		return false, 0
	}
	l.completed = true
	return true, now.Sub(l.start)
}

// HasFirstTransitionCompleted reports whether the launch was claimed.
func (l *LaunchState) HasFirstTransitionCompleted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed
}

// Reset makes the next Claim report a launch again. Tests only.
func (l *LaunchState) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = false
}
