package orchestration

import "time"

type clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine after d. The returned function
	// cancels the call if it has not started yet.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// spawner runs blocking work, such as clip loads and result fetches, off the
// reactor.
type spawner func(func())

func goSpawner(work func()) { go work() }
