package events

import "github.com/koscakluka/ema-debate/core/debate"

const (
	// KindSessionFinished identifies the single completion notification.
	KindSessionFinished Kind = "session.finished"
	// KindResultsReady identifies a successful results fetch.
	KindResultsReady Kind = "session.results_ready"
	// KindResultsUnavailable identifies exhausted results fetch retries.
	KindResultsUnavailable Kind = "session.results_unavailable"
)

// SessionFinished fires once when every turn has been presented and the
// server signalled the end of the session.
type SessionFinished struct{ Base }

// NewSessionFinished creates a session finished event.
func NewSessionFinished() SessionFinished {
	return SessionFinished{Base: NewBase(KindSessionFinished)}
}

// ResultsReady carries the fetched results summary.
type ResultsReady struct {
	Base
	Results debate.Results
}

// NewResultsReady creates a results ready event.
func NewResultsReady(results debate.Results) ResultsReady {
	return ResultsReady{Base: NewBase(KindResultsReady), Results: results}
}

// ResultsUnavailable reports that results could not be fetched. It is not
// fatal, presented turns stay visible.
type ResultsUnavailable struct {
	Base
	Attempts int
	Err      error
}

// NewResultsUnavailable creates a results unavailable event.
func NewResultsUnavailable(attempts int, err error) ResultsUnavailable {
	return ResultsUnavailable{Base: NewBase(KindResultsUnavailable), Attempts: attempts, Err: err}
}
