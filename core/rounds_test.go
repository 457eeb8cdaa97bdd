package orchestration

import (
	"testing"

	"github.com/koscakluka/ema-debate/core/debate"
)

func TestProjectRounds(t *testing.T) {
	state := newSessionState()
	state.totalRounds = 3

	ids := []debate.TurnID{
		state.appendTurn(silentTurn("alpha", 1)),
		state.appendTurn(silentTurn("beta", 1)),
		state.appendTurn(silentTurn("alpha", 2)),
		state.appendTurn(silentTurn("beta", 2)),
	}
	for _, id := range ids[:3] {
		state.visible[id] = true
	}
	for _, id := range ids[:3] {
		state.played[id] = true
	}

	progress := projectRounds(&state)
	if len(progress.Rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(progress.Rounds))
	}

	first, _ := progress.Round(1)
	if !first.Complete || first.Total != 2 || first.Played != 2 {
		t.Fatalf("expected round 1 complete with 2 of 2 played, got %+v", first)
	}
	second, _ := progress.Round(2)
	if second.Complete {
		t.Fatalf("expected round 2 incomplete while a turn is unplayed, got %+v", second)
	}
	if second.Total != 2 || second.Visible != 1 || second.Played != 1 {
		t.Fatalf("expected round 2 with 1 of 2 visible and played, got %+v", second)
	}
	if progress.Current != 2 {
		t.Fatalf("expected current round 2, got %d", progress.Current)
	}
	if progress.TotalRounds != 3 {
		t.Fatalf("expected 3 total rounds, got %d", progress.TotalRounds)
	}
}

func TestProjectRoundsCurrentRound(t *testing.T) {
	t.Run("no visible turns", func(t *testing.T) {
		state := newSessionState()
		state.appendTurn(silentTurn("alpha", 1))

		progress := projectRounds(&state)
		if progress.Current != 0 || len(progress.Rounds) != 0 {
			t.Fatalf("expected empty progress, got %+v", progress)
		}
	})

	t.Run("all complete", func(t *testing.T) {
		state := newSessionState()
		for _, turn := range []debate.Turn{silentTurn("alpha", 2), silentTurn("alpha", 1)} {
			id := state.appendTurn(turn)
			state.visible[id] = true
			state.played[id] = true
		}

		progress := projectRounds(&state)
		if progress.Current != 2 {
			t.Fatalf("expected highest round as current, got %d", progress.Current)
		}
		if progress.Rounds[0].Number != 1 || progress.Rounds[1].Number != 2 {
			t.Fatalf("expected rounds sorted by number, got %+v", progress.Rounds)
		}
	})

	t.Run("lowest incomplete wins", func(t *testing.T) {
		state := newSessionState()
		first := state.appendTurn(silentTurn("alpha", 1))
		second := state.appendTurn(silentTurn("alpha", 2))
		state.visible[first] = true
		state.visible[second] = true
		state.played[second] = true

		progress := projectRounds(&state)
		if progress.Current != 1 {
			t.Fatalf("expected current round 1, got %d", progress.Current)
		}
	})
}
