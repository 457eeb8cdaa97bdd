package stream

import "time"

// ErrorWindow counts errors inside a sliding time window. The count resets
// when more than Window has passed since the last counted error. Reaching
// Threshold trips the window once; later errors do not trip it again.
//
// ErrorWindow is not safe for concurrent use.
type ErrorWindow struct {
	Window    time.Duration
	Threshold int

	count   int
	last    time.Time
	tripped bool
}

func NewErrorWindow(window time.Duration, threshold int) *ErrorWindow {
	return &ErrorWindow{Window: window, Threshold: threshold}
}

// Record counts one error observed at now and reports whether this error
// reached the threshold. A non-positive threshold never trips.
func (w *ErrorWindow) Record(now time.Time) bool {
	if w == nil || w.tripped {
		return false
	}

	w.expire(now)
	w.count++
	w.last = now

	if w.Threshold > 0 && w.count >= w.Threshold {
		w.tripped = true
		return true
	}
	return false
}

// Count returns the number of errors still inside the window at now.
func (w *ErrorWindow) Count(now time.Time) int {
	if w == nil {
		return 0
	}

	w.expire(now)
	return w.count
}

func (w *ErrorWindow) Tripped() bool {
	return w != nil && w.tripped
}

func (w *ErrorWindow) expire(now time.Time) {
	if w.count > 0 && now.Sub(w.last) > w.Window {
		w.count = 0
	}
}
