package orchestration

import (
	"slices"

	"github.com/koscakluka/ema-debate/core/debate"
)

// projectRounds groups the visible turns by round. A round counts every known
// turn of that number towards its total, so it is complete only once all of
// them have been played.
func projectRounds(s *sessionState) debate.RoundProgress {
	progress := debate.RoundProgress{
		TotalRounds:   s.totalRounds,
		ExpectedTurns: s.expectedTurns,
	}

	byRound := map[int]*debate.RoundStatus{}
	for i, id := range s.ids {
		number := s.turns[i].Round
		status, ok := byRound[number]
		if !ok {
			status = &debate.RoundStatus{Number: number}
			byRound[number] = status
		}
		status.Total++
		if s.visible[id] {
			status.Visible++
		}
		if s.played[id] {
			status.Played++
		}
	}

	for _, status := range byRound {
		if status.Visible == 0 {
			continue
		}
		status.Complete = status.Played == status.Total
		progress.Rounds = append(progress.Rounds, *status)
	}
	slices.SortFunc(progress.Rounds, func(a, b debate.RoundStatus) int {
		return a.Number - b.Number
	})

	for _, status := range progress.Rounds {
		if !status.Complete {
			progress.Current = status.Number
			return progress
		}
	}
	if n := len(progress.Rounds); n > 0 {
		progress.Current = progress.Rounds[n-1].Number
	}
	return progress
}
