package stream

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
)

func TestClassifyMapsServerAndShortNames(t *testing.T) {
	testCases := []struct {
		name     string
		frame    Frame
		expected events.Kind
	}{
		{name: "debate_started", frame: Frame{Event: "debate_started", Data: []byte(`{"debate_id": "d1", "rounds": 3}`)}, expected: events.KindSessionStarted},
		{name: "started", frame: Frame{Event: "started", Data: []byte(`{"debate_id": "d1"}`)}, expected: events.KindSessionStarted},
		{name: "model_thinking", frame: Frame{Event: "model_thinking", Data: []byte(`{"model_id": "a", "round": 1}`)}, expected: events.KindSpeakerThinking},
		{name: "message", frame: Frame{Event: "message", Data: []byte(`{"model_id": "a", "round": 1, "text": "x"}`)}, expected: events.KindTurnReceived},
		{name: "turn", frame: Frame{Event: "turn", Data: []byte(`{"model_id": "a", "round": 1, "text": "x"}`)}, expected: events.KindTurnReceived},
		{name: "roundComplete", frame: Frame{Event: "roundComplete", Data: []byte(`{"next_round": 2}`)}, expected: events.KindRoundCompleted},
		{name: "debate_complete", frame: Frame{Event: "debate_complete", Data: []byte(`{"total_rounds": 3}`)}, expected: events.KindSessionCompleted},
		{name: "sessionComplete", frame: Frame{Event: "sessionComplete", Data: []byte(`{"total_rounds": 3}`)}, expected: events.KindSessionCompleted},
		{name: "error", frame: Frame{Event: "error", Data: []byte(`{"error": "boom"}`)}, expected: events.KindStreamError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			event, err := Classify(testCase.frame)
			if err != nil {
				t.Fatalf("expected frame to classify, got %v", err)
			}
			if event.Kind() != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, event.Kind())
			}
		})
	}
}

func TestClassifyCarriesPayload(t *testing.T) {
	event, err := Classify(Frame{Event: "debate_complete", Data: []byte(`{"total_rounds": 3, "total_messages": 9}`)})
	if err != nil {
		t.Fatalf("expected frame to classify, got %v", err)
	}

	completed, ok := event.(events.SessionCompleted)
	if !ok {
		t.Fatalf("expected SessionCompleted, got %T", event)
	}
	if completed.TotalRounds != 3 || completed.TotalTurns != 9 {
		t.Fatalf("expected totals 3/9, got %d/%d", completed.TotalRounds, completed.TotalTurns)
	}
}

func TestClassifyDropsEmptyMalformedAndUnknownFrames(t *testing.T) {
	testCases := []struct {
		name     string
		frame    Frame
		expected error
	}{
		{name: "empty error", frame: Frame{Event: "error", Data: []byte(`{}`)}, expected: debate.ErrEmptyPayload},
		{name: "empty turn", frame: Frame{Event: "turn"}, expected: debate.ErrEmptyPayload},
		{name: "empty started", frame: Frame{Event: "started", Data: []byte(`{}`)}, expected: debate.ErrEmptyPayload},
		{name: "malformed turn", frame: Frame{Event: "turn", Data: []byte(`{"round":`)}, expected: debate.ErrMalformedPayload},
		{name: "unknown", frame: Frame{Event: "heartbeat", Data: []byte(`{"x": 1}`)}, expected: ErrUnknownEvent},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Classify(testCase.frame)
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}
