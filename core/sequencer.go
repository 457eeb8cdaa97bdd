package orchestration

import (
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
)

func (s *Session) onTurnReceived(turn debate.Turn) {
	if s.state.failed {
		return
	}
	if s.state.isRepeat(turn) {
		logger.Debug("dropping repeated turn", "session_id", s.info.SessionID, "speaker_id", turn.SpeakerID, "round", turn.Round)
		return
	}
	id := s.state.appendTurn(turn)
	logger.Debug("turn received", "session_id", s.info.SessionID, "turn", id.String(), "has_clip", turn.HasVoiceClip())

	s.publish()
	s.evaluate()
}

// evaluate reveals the next turn if every turn before it has been played.
// At most one turn is revealed per pass; revealing or playing a turn
// triggers the next pass.
func (s *Session) evaluate() {
	if s.closed || s.state.failed {
		return
	}

	for position, id := range s.state.ids {
		if s.state.played[id] || s.state.visible[id] {
			continue
		}
		if !s.state.allPlayedBefore(position) {
			return
		}
		s.reveal(id)
		return
	}
}

func (s *Session) reveal(id debate.TurnID) {
	turn, _ := s.state.turn(id)
	s.state.visible[id] = true
	s.emit(events.NewTurnRevealed(id, turn))

	if !turn.HasVoiceClip() {
		s.after(s.timing.SettleDelay, func() {
			s.markPlayed(id, events.PlayOutcomeSilent)
		})
	} else if err := s.play(id, turn); err != nil {
		// Unreachable while the gate reveals one turn at a time.
		logger.Error("failed to hand turn to playback", "session_id", s.info.SessionID, "turn", id.String(), "error", err)
		s.after(s.timing.FailureGrace, func() {
			s.markPlayed(id, events.PlayOutcomeFailed)
		})
	}
	s.emitProgress()
}

// markPlayed is the single path by which a turn enters the played set.
func (s *Session) markPlayed(id debate.TurnID, outcome events.PlayOutcome) {
	if s.state.played[id] {
		return
	}
	s.state.played[id] = true
	if s.state.isActive(id) {
		s.state.active = nil
	}
	logger.Debug("turn played", "session_id", s.info.SessionID, "turn", id.String(), "outcome", outcome)

	s.emit(events.NewTurnPlayed(id, outcome))
	s.emitProgress()

	s.checkCompletionAfterPlayed(id)
	s.evaluate()
}
