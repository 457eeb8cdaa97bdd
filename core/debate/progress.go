package debate

// RoundStatus is the progress of one round as seen by the viewer.
type RoundStatus struct {
	Number  int
	Total   int
	Visible int
	Played  int
	// Complete is true once every known turn of the round has been played.
	Complete bool
}

// RoundProgress is a read-only projection of the session's turn list.
type RoundProgress struct {
	// Current is the lowest round that is not complete, or the highest known
	// round when all are complete. Zero when no turn is visible yet.
	Current int
	Rounds  []RoundStatus

	// TotalRounds and ExpectedTurns are the server announced totals; zero
	// when unknown.
	TotalRounds   int
	ExpectedTurns int
}

// Round returns the status of round n.
func (p RoundProgress) Round(n int) (RoundStatus, bool) {
	for _, status := range p.Rounds {
		if status.Number == n {
			return status, true
		}
	}
	return RoundStatus{}, false
}

// Fraction returns completed rounds over the best known round total.
func (p RoundProgress) Fraction() float64 {
	total := p.TotalRounds
	if total < len(p.Rounds) {
		total = len(p.Rounds)
	}
	if total == 0 {
		return 0
	}

	complete := 0
	for _, status := range p.Rounds {
		if status.Complete {
			complete++
		}
	}
	return float64(complete) / float64(total)
}
