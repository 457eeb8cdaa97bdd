package audio

import (
	"bytes"
	"errors"
	"testing"
)

func TestCompletionDeliversOnce(t *testing.T) {
	ended := 0
	var failed error
	completion := NewCompletion(func() { ended++ }, func(err error) { failed = err })

	completion.End()
	completion.End()
	completion.Fail(errors.New("late"))

	if ended != 1 {
		t.Fatalf("expected 1 end callback, got %d", ended)
	}
	if failed != nil {
		t.Fatalf("expected no error callback after end, got %v", failed)
	}
}

func TestCompletionDetachDropsCallbacks(t *testing.T) {
	called := false
	completion := NewCompletion(func() { called = true }, func(error) { called = true })

	completion.Detach()
	completion.End()
	completion.Fail(errors.New("late"))

	if called {
		t.Fatalf("expected detached completion to drop callbacks")
	}

	var nilCompletion *Completion
	nilCompletion.End()
	nilCompletion.Detach()
}

func TestCursorFillsAndPadsWithSilence(t *testing.T) {
	cursor := NewCursor(PCM{
		Info: EncodingInfo{SampleRate: 8000, Channels: 1, Format: EncodingMulaw},
		Data: []byte{1, 2, 3, 4, 5},
	})

	out := make([]byte, 3)
	if drained := cursor.Fill(out); drained {
		t.Fatalf("expected cursor not drained after first chunk")
	}
	if !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Fatalf("expected first chunk, got %v", out)
	}

	if drained := cursor.Fill(out); !drained {
		t.Fatalf("expected cursor drained after second chunk")
	}
	if !bytes.Equal(out, []byte{4, 5, 0xFF}) {
		t.Fatalf("expected padded chunk, got %v", out)
	}

	cursor.Rewind()
	if position := cursor.Position(); position != 0 {
		t.Fatalf("expected rewound cursor, got position %d", position)
	}
}
