package dayview

import "fmt"

// DefaultBreakSeconds is the timer duration for a day without exercises.
const DefaultBreakSeconds = 60

// Presets are the quick durations offered next to the rest timer.
var Presets = []int{30, 60, 90, 120}

// RestTimer is a single countdown measured in whole seconds.
type RestTimer struct {
	Duration  int  `json:"duration"`
	Remaining int  `json:"remaining"`
	Running   bool `json:"running"`
}

// NewRestTimer returns a paused timer loaded with seconds.
func NewRestTimer(seconds int) RestTimer {
	if seconds < 0 {
		seconds = 0
	}
	return RestTimer{Duration: seconds, Remaining: seconds}
}

// CanStart reports whether Start would do anything. A timer that ran down to
// zero has to be reset or given a preset first.
func (t *RestTimer) CanStart() bool {
	return !t.Running && t.Remaining > 0
}

// Start restarts the countdown from the configured duration.
func (t *RestTimer) Start() bool {
	if !t.CanStart() {
		return false
	}
	return t.StartWith(t.Duration)
}

// StartWith makes seconds the configured duration and starts counting down
// from it.
func (t *RestTimer) StartWith(seconds int) bool {
	if seconds <= 0 {
		return false
	}
	t.Duration = seconds
	t.Remaining = seconds
	t.Running = true
	return true
}

func (t *RestTimer) Pause() {
	t.Running = false
}

// Reset stops the timer and restores the configured duration.
func (t *RestTimer) Reset() {
	t.Running = false
	t.Remaining = t.Duration
}

// SetPreset loads seconds without starting or stopping the countdown.
func (t *RestTimer) SetPreset(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	t.Duration = seconds
	t.Remaining = seconds
}

// Tick advances a running timer by one second and reports whether it is still
// running. Reaching zero pauses it.
func (t *RestTimer) Tick() bool {
	if !t.Running {
		return false
	}
	if t.Remaining > 0 {
		t.Remaining--
	}
	if t.Remaining == 0 {
		t.Running = false
	}
	return t.Running
}

// Clock formats the remaining time as mm:ss.
func (t RestTimer) Clock() string {
	return fmt.Sprintf("%02d:%02d", t.Remaining/60, t.Remaining%60)
}
