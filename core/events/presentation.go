package events

import "github.com/koscakluka/ema-debate/core/debate"

const (
	// KindTurnRevealed identifies a turn becoming visible to the viewer.
	KindTurnRevealed Kind = "presentation.turn_revealed"
	// KindPlaybackStarted identifies a turn's voice clip starting to play.
	KindPlaybackStarted Kind = "presentation.playback_started"
	// KindTurnPlayed identifies a turn finishing its presentation.
	KindTurnPlayed Kind = "presentation.turn_played"
	// KindAudioBlocked identifies the one-time "enable audio" advisory.
	KindAudioBlocked Kind = "presentation.audio_blocked"
	// KindProgressUpdated identifies a change of the round progress projection.
	KindProgressUpdated Kind = "presentation.progress_updated"
)

// PlayOutcome describes how a turn reached the played state.
type PlayOutcome string

const (
	// PlayOutcomeSilent is used for turns without a voice clip.
	PlayOutcomeSilent PlayOutcome = "silent"
	// PlayOutcomeCompleted is used when the clip played to its natural end.
	PlayOutcomeCompleted PlayOutcome = "completed"
	// PlayOutcomeFailed is used when the clip could not be played and the
	// turn was force completed after the grace delay.
	PlayOutcomeFailed PlayOutcome = "failed"
)

// TurnRevealed marks a turn as visible. Reveals follow arrival order.
type TurnRevealed struct {
	Base
	ID   debate.TurnID
	Turn debate.Turn
}

// NewTurnRevealed creates a turn revealed event.
func NewTurnRevealed(id debate.TurnID, turn debate.Turn) TurnRevealed {
	return TurnRevealed{Base: NewBase(KindTurnRevealed), ID: id, Turn: turn}
}

// PlaybackStarted marks the start of a voice clip.
type PlaybackStarted struct {
	Base
	ID debate.TurnID
}

// NewPlaybackStarted creates a playback started event.
func NewPlaybackStarted(id debate.TurnID) PlaybackStarted {
	return PlaybackStarted{Base: NewBase(KindPlaybackStarted), ID: id}
}

// TurnPlayed marks a turn's presentation as finished.
type TurnPlayed struct {
	Base
	ID      debate.TurnID
	Outcome PlayOutcome
}

// NewTurnPlayed creates a turn played event.
func NewTurnPlayed(id debate.TurnID, outcome PlayOutcome) TurnPlayed {
	return TurnPlayed{Base: NewBase(KindTurnPlayed), ID: id, Outcome: outcome}
}

// AudioBlocked asks the viewer to enable audio. Emitted at most once per
// session.
type AudioBlocked struct {
	Base
	ID  debate.TurnID
	Err error
}

// NewAudioBlocked creates an audio blocked event.
func NewAudioBlocked(id debate.TurnID, err error) AudioBlocked {
	return AudioBlocked{Base: NewBase(KindAudioBlocked), ID: id, Err: err}
}

// ProgressUpdated carries the latest round progress projection.
type ProgressUpdated struct {
	Base
	Progress debate.RoundProgress
}

// NewProgressUpdated creates a progress updated event.
func NewProgressUpdated(progress debate.RoundProgress) ProgressUpdated {
	return ProgressUpdated{Base: NewBase(KindProgressUpdated), Progress: progress}
}
