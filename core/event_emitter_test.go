package orchestration

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
)

func TestCallbackEventEmitterRoutesEvents(t *testing.T) {
	var (
		all         int
		revealed    debate.TurnID
		outcome     events.PlayOutcome
		blocked     error
		progress    debate.RoundProgress
		finished    bool
		results     debate.Results
		unavailable error
	)

	opts := SessionOptions{}
	for _, opt := range []SessionOption{
		WithEventHandler(func(events.Event) { all++ }),
		WithTurnRevealedCallback(func(id debate.TurnID, _ debate.Turn) { revealed = id }),
		WithTurnPlayedCallback(func(_ debate.TurnID, o events.PlayOutcome) { outcome = o }),
		WithAudioBlockedCallback(func(err error) { blocked = err }),
		WithProgressCallback(func(p debate.RoundProgress) { progress = p }),
		WithFinishedCallback(func() { finished = true }),
		WithResultsCallback(func(r debate.Results) { results = r }),
		WithResultsUnavailableCallback(func(err error) { unavailable = err }),
	} {
		opt(&opts)
	}
	emit := newCallbackEventEmitter(opts)

	id := debate.TurnID{SpeakerID: "alpha", Round: 1, ArrivalIndex: 0}
	blockedErr := errors.New("blocked")
	fetchErr := errors.New("fetch")

	emit(events.NewTurnRevealed(id, debate.Turn{SpeakerID: "alpha"}))
	emit(events.NewTurnPlayed(id, events.PlayOutcomeCompleted))
	emit(events.NewAudioBlocked(id, blockedErr))
	emit(events.NewProgressUpdated(debate.RoundProgress{Current: 3}))
	emit(events.NewSessionFinished())
	emit(events.NewResultsReady(debate.Results{Overall: "done"}))
	emit(events.NewResultsUnavailable(3, fetchErr))
	emit(events.NewSpeakerThinking("alpha", "Alpha", 1))

	if all != 8 {
		t.Fatalf("expected 8 events through the handler, got %d", all)
	}
	if revealed != id {
		t.Fatalf("expected revealed %v, got %v", id, revealed)
	}
	if outcome != events.PlayOutcomeCompleted {
		t.Fatalf("expected completed outcome, got %q", outcome)
	}
	if !errors.Is(blocked, blockedErr) {
		t.Fatalf("expected blocked error, got %v", blocked)
	}
	if progress.Current != 3 {
		t.Fatalf("expected progress round 3, got %d", progress.Current)
	}
	if !finished {
		t.Fatalf("expected finished callback")
	}
	if results.Overall != "done" {
		t.Fatalf("expected results, got %+v", results)
	}
	if !errors.Is(unavailable, fetchErr) {
		t.Fatalf("expected unavailable error, got %v", unavailable)
	}
}
