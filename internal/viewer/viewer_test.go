package viewer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-debate/core"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
)

type sourceStub struct {
	snapshot orchestration.Snapshot
	results  *debate.Results
	closed   bool
}

func (s *sourceStub) ID() string                       { return "debate-1" }
func (s *sourceStub) Snapshot() orchestration.Snapshot { return s.snapshot }
func (s *sourceStub) Close()                           { s.closed = true }

func (s *sourceStub) Results() (debate.Results, bool) {
	if s.results == nil {
		return debate.Results{}, false
	}
	return *s.results, true
}

func visibleTurn(speaker, text string, round int) orchestration.TurnView {
	turn := debate.Turn{SpeakerID: speaker, SpeakerName: strings.ToUpper(speaker[:1]) + speaker[1:], Round: round, Text: text}
	return orchestration.TurnView{ID: debate.NewTurnID(turn, 0), Turn: turn, Visible: true}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("expected viewer model, got %T", next)
	}
	return model
}

func TestModelShowsRevealedTurnsOnly(t *testing.T) {
	source := &sourceStub{}
	m := update(t, New(source, "Will it rain?"), tea.WindowSizeMsg{Width: 100, Height: 30})

	hidden := visibleTurn("beta", "hidden rebuttal", 1)
	hidden.Visible = false
	source.snapshot.Turns = []orchestration.TurnView{visibleTurn("alpha", "Rain is likely tomorrow.", 1), hidden}
	m = update(t, m, EventMsg{Event: events.NewTurnRevealed(source.snapshot.Turns[0].ID, source.snapshot.Turns[0].Turn)})

	view := m.View()
	if !strings.Contains(view, "Alpha") || !strings.Contains(view, "Rain is likely tomorrow.") {
		t.Fatalf("expected revealed turn in view, got %q", view)
	}
	if strings.Contains(view, "hidden rebuttal") {
		t.Fatalf("expected hidden turn to stay off screen")
	}
	if !strings.Contains(view, "Will it rain?") {
		t.Fatalf("expected title in view")
	}
}

func TestModelFooterReflectsSessionState(t *testing.T) {
	source := &sourceStub{}
	m := New(source, "")

	m = update(t, m, EventMsg{Event: events.NewSpeakerThinking("beta", "Beta", 1)})
	if view := m.View(); !strings.Contains(view, "Beta is thinking") {
		t.Fatalf("expected thinking indicator, got %q", view)
	}

	source.snapshot.AudioBlocked = true
	m = update(t, m, EventMsg{Event: events.NewAudioBlocked(debate.TurnID{}, errors.New("no device"))})
	if view := m.View(); !strings.Contains(view, "Audio could not be played") {
		t.Fatalf("expected audio advisory, got %q", view)
	}

	m = update(t, m, EventMsg{Event: events.NewTransportFailed(errors.New("too many errors"))})
	if view := m.View(); !strings.Contains(view, "Stream lost: too many errors") {
		t.Fatalf("expected stream lost status, got %q", view)
	}
}

func TestModelShowsResultsWhenDone(t *testing.T) {
	source := &sourceStub{results: &debate.Results{Overall: "Both models leaned yes.", Consensus: "Yes at 60%"}}
	m := update(t, New(source, ""), DoneMsg{})

	view := m.View()
	if !strings.Contains(view, "Both models leaned yes.") || !strings.Contains(view, "Consensus") {
		t.Fatalf("expected results in view, got %q", view)
	}
}

func TestModelQuitClosesSession(t *testing.T) {
	source := &sourceStub{}
	_, cmd := New(source, "").Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	if !source.closed {
		t.Fatalf("expected quitting to close the session")
	}
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestFormatPredictions(t *testing.T) {
	got := formatPredictions(debate.Predictions{"No": 30, "Yes": 70, "Maybe": 30})
	if got != "Yes 70% · Maybe 30% · No 30%" {
		t.Fatalf("expected predictions ordered by probability, got %q", got)
	}
	if got := formatPredictions(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestFeedForwardsEventsInOrder(t *testing.T) {
	feed := NewFeed()
	received := make(chan events.Kind, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx, func(msg tea.Msg) {
		received <- msg.(EventMsg).Event.Kind()
	})

	feed.Handle(events.NewSessionStarted("debate-1", 2))
	feed.Handle(events.NewSpeakerThinking("alpha", "Alpha", 1))
	feed.Handle(events.NewSessionFinished())

	expected := []events.Kind{events.KindSessionStarted, events.KindSpeakerThinking, events.KindSessionFinished}
	for _, kind := range expected {
		select {
		case got := <-received:
			if got != kind {
				t.Fatalf("expected %s, got %s", kind, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}
