package orchestration

import (
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-debate/core/debate"
)

// sessionState is the canonical state of one session. Only reactor tasks
// read or write it.
type sessionState struct {
	turns []debate.Turn
	ids   []debate.TurnID
	index map[debate.TurnID]int

	played  map[debate.TurnID]bool
	visible map[debate.TurnID]bool
	// active is the turn whose clip is being acquired or played. Only the
	// playback coordinator sets and clears it.
	active *debate.TurnID

	serverComplete bool
	trulyComplete  bool
	failed         bool

	totalRounds   int
	expectedTurns int

	serverIDs map[string]bool
	// replaying is set on reconnect. Arrivals matching the received turns in
	// order from replayCursor are repeats until the first one that differs.
	replaying    bool
	replayCursor int
}

func newSessionState() sessionState {
	return sessionState{
		index:     map[debate.TurnID]int{},
		played:    map[debate.TurnID]bool{},
		visible:   map[debate.TurnID]bool{},
		serverIDs: map[string]bool{},
	}
}

// appendTurn assigns the turn its identity. The identity is never recomputed.
func (s *sessionState) appendTurn(turn debate.Turn) debate.TurnID {
	id := debate.NewTurnID(turn, len(s.turns))
	s.index[id] = len(s.turns)
	s.turns = append(s.turns, turn)
	s.ids = append(s.ids, id)
	if turn.ServerID != "" {
		s.serverIDs[turn.ServerID] = true
	}
	return id
}

// startReplay expects the stream to repeat the received turns from the first.
func (s *sessionState) startReplay() {
	s.replaying = len(s.turns) > 0
	s.replayCursor = 0
}

// isRepeat reports whether turn was already received, either by server id or
// as the next expected turn of a replay.
func (s *sessionState) isRepeat(turn debate.Turn) bool {
	if turn.ServerID != "" && s.serverIDs[turn.ServerID] {
		return true
	}
	if !s.replaying {
		return false
	}
	if s.replayCursor < len(s.turns) {
		expected := s.turns[s.replayCursor]
		if expected.SpeakerID == turn.SpeakerID && expected.Round == turn.Round {
			s.replayCursor++
			return true
		}
	}
	s.replaying = false
	return false
}

func (s *sessionState) turn(id debate.TurnID) (debate.Turn, bool) {
	i, ok := s.index[id]
	if !ok {
		return debate.Turn{}, false
	}
	return s.turns[i], true
}

func (s *sessionState) allPlayedBefore(position int) bool {
	for _, id := range s.ids[:position] {
		if !s.played[id] {
			return false
		}
	}
	return true
}

func (s *sessionState) allPlayed() bool {
	return s.allPlayedBefore(len(s.ids))
}

func (s *sessionState) isLast(id debate.TurnID) bool {
	return len(s.ids) > 0 && s.ids[len(s.ids)-1] == id
}

func (s *sessionState) isActive(id debate.TurnID) bool {
	return s.active != nil && *s.active == id
}

// TurnView is a turn together with its presentation state.
type TurnView struct {
	ID      debate.TurnID
	Turn    debate.Turn
	Visible bool
	Played  bool
	Playing bool
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	SessionID    string
	Turns        []TurnView
	State        CompletionState
	Progress     debate.RoundProgress
	AudioBlocked bool
}

// VisibleTurns returns the turns the viewer may show, in reveal order.
func (s Snapshot) VisibleTurns() []TurnView {
	visible := make([]TurnView, 0, len(s.Turns))
	for _, turn := range s.Turns {
		if turn.Visible {
			visible = append(visible, turn)
		}
	}
	return visible
}

func (s *sessionState) views() []TurnView {
	turns := make([]debate.Turn, len(s.turns))
	if err := copier.CopyWithOption(&turns, &s.turns, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to deep copy turns", "error", err)
		copy(turns, s.turns)
	}

	views := make([]TurnView, len(s.ids))
	for i, id := range s.ids {
		views[i] = TurnView{
			ID:      id,
			Turn:    turns[i],
			Visible: s.visible[id],
			Played:  s.played[id],
			Playing: s.isActive(id),
		}
	}
	return views
}
