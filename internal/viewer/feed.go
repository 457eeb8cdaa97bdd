package viewer

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-debate/core/events"
)

// EventMsg carries one session event into the program.
type EventMsg struct {
	Event events.Event
}

// Feed queues session events for a program without ever blocking the
// session.
type Feed struct {
	mu      sync.Mutex
	pending []events.Event
	signal  chan struct{}
}

func NewFeed() *Feed {
	return &Feed{signal: make(chan struct{}, 1)}
}

// Handle is meant to be registered as the session's event handler.
func (f *Feed) Handle(event events.Event) {
	f.mu.Lock()
	f.pending = append(f.pending, event)
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Run forwards queued events in order until ctx is done.
func (f *Feed) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.signal:
		}

		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()

		for _, event := range batch {
			send(EventMsg{Event: event})
		}
	}
}
