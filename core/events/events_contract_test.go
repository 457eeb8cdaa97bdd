package events

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-debate/core/debate"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	id := debate.TurnID{SpeakerID: "a", Round: 1}

	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "session started", event: NewSessionStarted("s", 3), expected: KindSessionStarted},
		{name: "speaker thinking", event: NewSpeakerThinking("a", "A", 1), expected: KindSpeakerThinking},
		{name: "turn received", event: NewTurnReceived(debate.Turn{}), expected: KindTurnReceived},
		{name: "round completed", event: NewRoundCompleted(1, 2), expected: KindRoundCompleted},
		{name: "session completed", event: NewSessionCompleted(3, 9), expected: KindSessionCompleted},
		{name: "stream error", event: NewStreamError("a", "A", "boom"), expected: KindStreamError},
		{name: "stream reconnected", event: NewStreamReconnected(1), expected: KindStreamReconnected},
		{name: "transport failed", event: NewTransportFailed(errors.New("lost")), expected: KindTransportFailed},
		{name: "turn revealed", event: NewTurnRevealed(id, debate.Turn{}), expected: KindTurnRevealed},
		{name: "playback started", event: NewPlaybackStarted(id), expected: KindPlaybackStarted},
		{name: "turn played", event: NewTurnPlayed(id, PlayOutcomeSilent), expected: KindTurnPlayed},
		{name: "audio blocked", event: NewAudioBlocked(id, nil), expected: KindAudioBlocked},
		{name: "progress updated", event: NewProgressUpdated(debate.RoundProgress{}), expected: KindProgressUpdated},
		{name: "session finished", event: NewSessionFinished(), expected: KindSessionFinished},
		{name: "results ready", event: NewResultsReady(debate.Results{}), expected: KindResultsReady},
		{name: "results unavailable", event: NewResultsUnavailable(3, nil), expected: KindResultsUnavailable},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestKindNamespace(t *testing.T) {
	if got := KindTurnReceived.Namespace(); got != "stream" {
		t.Fatalf("expected namespace %q, got %q", "stream", got)
	}
	if got := KindSessionFinished.Namespace(); got != "session" {
		t.Fatalf("expected namespace %q, got %q", "session", got)
	}
}
