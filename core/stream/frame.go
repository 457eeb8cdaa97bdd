package stream

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
)

// ErrUnknownEvent is returned by Classify for frames of an unknown kind.
var ErrUnknownEvent = errors.New("unknown event")

// Frame is one raw event read from a transport.
type Frame struct {
	Event string
	Data  []byte
	ID    string
}

type frameKind int

const (
	frameUnknown frameKind = iota
	frameStarted
	frameThinking
	frameTurn
	frameRoundComplete
	frameSessionComplete
	frameError
)

// Both the server's frame names and the short names are accepted.
var frameKinds = map[string]frameKind{
	"debate_started":   frameStarted,
	"session_started":  frameStarted,
	"started":          frameStarted,
	"model_thinking":   frameThinking,
	"thinking":         frameThinking,
	"message":          frameTurn,
	"turn":             frameTurn,
	"round_complete":   frameRoundComplete,
	"roundComplete":    frameRoundComplete,
	"debate_complete":  frameSessionComplete,
	"session_complete": frameSessionComplete,
	"sessionComplete":  frameSessionComplete,
	"error":            frameError,
}

// Classify turns a frame into a typed event. Empty and malformed payloads
// return an error wrapping debate.ErrEmptyPayload or
// debate.ErrMalformedPayload; callers drop those frames.
func Classify(frame Frame) (events.Event, error) {
	switch frameKinds[frame.Event] {
	case frameStarted:
		wire, err := debate.DecodeStarted(frame.Data)
		if err != nil {
			return nil, err
		}
		return events.NewSessionStarted(wire.DebateID, wire.TotalRounds), nil

	case frameThinking:
		wire, err := debate.DecodeThinking(frame.Data)
		if err != nil {
			return nil, err
		}
		return events.NewSpeakerThinking(wire.ModelID, wire.ModelName, wire.Round), nil

	case frameTurn:
		turn, err := debate.DecodeTurn(frame.Data)
		if err != nil {
			return nil, err
		}
		return events.NewTurnReceived(turn), nil

	case frameRoundComplete:
		wire, err := debate.DecodeRoundComplete(frame.Data)
		if err != nil {
			return nil, err
		}
		return events.NewRoundCompleted(wire.Round, wire.NextRound), nil

	case frameSessionComplete:
		wire, err := debate.DecodeSessionComplete(frame.Data)
		if err != nil {
			return nil, err
		}
		return events.NewSessionCompleted(wire.TotalRounds, wire.TotalMessages), nil

	case frameError:
		wire, err := debate.DecodeError(frame.Data)
		if err != nil {
			return nil, err
		}
		return events.NewStreamError(wire.ModelID, wire.ModelName, wire.Error), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
}
