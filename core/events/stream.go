package events

import "github.com/koscakluka/ema-debate/core/debate"

const (
	// KindSessionStarted identifies the server's session started frame.
	KindSessionStarted Kind = "stream.session_started"
	// KindSpeakerThinking identifies a speaker composing its next turn.
	KindSpeakerThinking Kind = "stream.speaker_thinking"
	// KindTurnReceived identifies a complete turn delivered by the stream.
	KindTurnReceived Kind = "stream.turn_received"
	// KindRoundCompleted identifies the server closing a round.
	KindRoundCompleted Kind = "stream.round_completed"
	// KindSessionCompleted identifies the explicit end-of-session frame.
	KindSessionCompleted Kind = "stream.session_completed"
	// KindStreamError identifies an application level error frame.
	KindStreamError Kind = "stream.error"
	// KindStreamReconnected identifies a new connection after a dropped one.
	KindStreamReconnected Kind = "stream.reconnected"
	// KindTransportFailed identifies a terminal transport failure.
	KindTransportFailed Kind = "stream.transport_failed"
)

// SessionStarted marks the start of server side generation.
type SessionStarted struct {
	Base
	SessionID   string
	TotalRounds int
}

// NewSessionStarted creates a session started event.
func NewSessionStarted(sessionID string, totalRounds int) SessionStarted {
	return SessionStarted{Base: NewBase(KindSessionStarted), SessionID: sessionID, TotalRounds: totalRounds}
}

// SpeakerThinking announces that a speaker is composing a turn for round.
type SpeakerThinking struct {
	Base
	SpeakerID   string
	SpeakerName string
	Round       int
}

// NewSpeakerThinking creates a speaker thinking event.
func NewSpeakerThinking(speakerID, speakerName string, round int) SpeakerThinking {
	return SpeakerThinking{Base: NewBase(KindSpeakerThinking), SpeakerID: speakerID, SpeakerName: speakerName, Round: round}
}

// TurnReceived carries one complete turn in network arrival order.
type TurnReceived struct {
	Base
	Turn debate.Turn
}

// NewTurnReceived creates a turn received event.
func NewTurnReceived(turn debate.Turn) TurnReceived {
	return TurnReceived{Base: NewBase(KindTurnReceived), Turn: turn}
}

// RoundCompleted marks the server finishing a round. It carries no ordering
// guarantee relative to turn visibility.
type RoundCompleted struct {
	Base
	Round     int
	NextRound int
}

// NewRoundCompleted creates a round completed event.
func NewRoundCompleted(round, nextRound int) RoundCompleted {
	return RoundCompleted{Base: NewBase(KindRoundCompleted), Round: round, NextRound: nextRound}
}

// SessionCompleted is the server's explicit end-of-session signal. Turns
// already delivered may still be waiting to be presented.
type SessionCompleted struct {
	Base
	TotalRounds int
	TotalTurns  int
}

// NewSessionCompleted creates a session completed event.
func NewSessionCompleted(totalRounds, totalTurns int) SessionCompleted {
	return SessionCompleted{Base: NewBase(KindSessionCompleted), TotalRounds: totalRounds, TotalTurns: totalTurns}
}

// StreamError carries an application level error reported by the server.
type StreamError struct {
	Base
	SpeakerID   string
	SpeakerName string
	Message     string
}

// NewStreamError creates a stream error event.
func NewStreamError(speakerID, speakerName, message string) StreamError {
	return StreamError{Base: NewBase(KindStreamError), SpeakerID: speakerID, SpeakerName: speakerName, Message: message}
}

// StreamReconnected marks a new connection after a dropped one. Servers that
// restart generation per connection replay the turns already delivered.
type StreamReconnected struct {
	Base
	Attempt int
}

// NewStreamReconnected creates a stream reconnected event. attempt counts
// connections after the first, starting at one.
func NewStreamReconnected(attempt int) StreamReconnected {
	return StreamReconnected{Base: NewBase(KindStreamReconnected), Attempt: attempt}
}

// TransportFailed marks the stream as lost for good. No reconnect follows.
type TransportFailed struct {
	Base
	Err error
}

// NewTransportFailed creates a transport failed event.
func NewTransportFailed(err error) TransportFailed {
	return TransportFailed{Base: NewBase(KindTransportFailed), Err: err}
}
