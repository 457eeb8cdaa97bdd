package orchestration

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-debate/core/api"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
	"github.com/koscakluka/ema-debate/core/stream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CompletionState is the lifecycle of a session as seen by the completion
// detector.
type CompletionState int

const (
	StateRunning CompletionState = iota
	// StateServerComplete means the server ended the session but queued turns
	// are still being presented.
	StateServerComplete
	StateTrulyComplete
	StateTransportFailed
)

func (s CompletionState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateServerComplete:
		return "server_complete"
	case StateTrulyComplete:
		return "truly_complete"
	case StateTransportFailed:
		return "transport_failed"
	default:
		return fmt.Sprintf("CompletionState(%d)", int(s))
	}
}

func (s *sessionState) completionState() CompletionState {
	switch {
	case s.failed:
		return StateTransportFailed
	case s.trulyComplete:
		return StateTrulyComplete
	case s.serverComplete:
		return StateServerComplete
	default:
		return StateRunning
	}
}

// onServerComplete handles the explicit end of session. Presentation goes on;
// the fallback check is armed in case the immediate path misses the last turn.
func (s *Session) onServerComplete(event events.SessionCompleted) {
	if s.state.failed || s.state.serverComplete {
		return
	}
	s.state.serverComplete = true
	if event.TotalRounds > 0 {
		s.state.totalRounds = event.TotalRounds
	}
	logger.Info("server completed session",
		"session_id", s.info.SessionID,
		"turns", len(s.state.turns),
		"announced_turns", event.TotalTurns)

	s.checkCompletion()
	s.armFallbackCheck()
}

// checkCompletionAfterPlayed is the immediate path, run for every played turn.
func (s *Session) checkCompletionAfterPlayed(id debate.TurnID) {
	if !s.state.isLast(id) {
		return
	}
	s.checkCompletion()
}

func (s *Session) checkCompletion() {
	if !s.state.serverComplete || s.state.failed {
		return
	}
	if !s.state.allPlayed() {
		return
	}
	s.completeOnce.Do(s.complete)
}

// armFallbackCheck re-verifies completion periodically until the session is
// truly complete. It is independent of the immediate path.
func (s *Session) armFallbackCheck() {
	if s.timing.FallbackCheckDelay <= 0 {
		return
	}
	s.after(s.timing.FallbackCheckDelay, func() {
		if s.state.trulyComplete || s.state.failed {
			return
		}
		logger.Debug("running fallback completion check", "session_id", s.info.SessionID)
		s.checkCompletion()
		if !s.state.trulyComplete {
			s.armFallbackCheck()
		}
	})
}

func (s *Session) complete() {
	s.state.trulyComplete = true
	s.span.AddEvent("session truly complete", trace.WithAttributes(attribute.Int("turns", len(s.state.turns))))
	logger.Info("session truly complete", "session_id", s.info.SessionID, "turns", len(s.state.turns))

	s.emit(events.NewSessionFinished())
	s.publish()
	s.fetchResults(1, nil)
}

// fetchResults runs one attempt of the results protocol. Attempts are
// counted from 1; the delay before attempt n+1 is ResultBackoff doubled n-1
// times.
func (s *Session) fetchResults(attempt int, lastErr error) {
	if s.results == nil {
		s.resultsUnavailable(0, errors.New("no results fetcher configured"))
		return
	}
	if attempt > s.timing.ResultAttempts {
		s.resultsUnavailable(attempt-1, lastErr)
		return
	}

	ctx := s.ctx
	s.spawn(func() {
		ctx, span := tracer.Start(ctx, "fetch results")
		span.SetAttributes(attribute.Int("attempt", attempt))
		results, err := s.results.FetchResults(ctx, s.info.SessionID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "results fetch failed")
		}
		span.End()

		s.reactor.post(func() {
			if s.closed {
				return
			}
			if err == nil {
				s.resultsReady(results)
				return
			}
			if ctx.Err() != nil {
				return
			}

			msg := "result fetch failed"
			if errors.Is(err, api.ErrResultsNotReady) {
				msg = "results not ready yet"
			}
			logger.Warn(msg, "session_id", s.info.SessionID, "attempt", attempt, "error", err)
			if attempt >= s.timing.ResultAttempts {
				s.resultsUnavailable(attempt, err)
				return
			}
			s.after(s.timing.resultBackoff(attempt), func() {
				s.fetchResults(attempt+1, err)
			})
		})
	})
}

func (s *Session) resultsReady(results debate.Results) {
	s.mu.Lock()
	s.finalResults = &results
	s.mu.Unlock()

	s.emit(events.NewResultsReady(results))
	s.finish(nil)
}

func (s *Session) resultsUnavailable(attempts int, err error) {
	s.span.AddEvent("results unavailable")
	logger.Error("results unavailable", "session_id", s.info.SessionID, "attempts", attempts, "error", err)

	s.emit(events.NewResultsUnavailable(attempts, err))
	// Missing results degrade the summary only; the session itself succeeded.
	s.finish(nil)
}

// onTransportFailed is terminal while the session is still running. Once the
// server ended the session the stream is no longer needed and a late fault is
// only logged.
func (s *Session) onTransportFailed(event events.TransportFailed) {
	if s.state.serverComplete || s.state.failed {
		logger.Warn("ignoring transport failure after server completion",
			"session_id", s.info.SessionID, "error", event.Err)
		return
	}
	s.state.failed = true
	err := event.Err
	if err == nil {
		err = stream.ErrTransportFailed
	}

	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, "transport failed")
	logger.Error("session transport failed", "session_id", s.info.SessionID, "error", err)

	s.emit(event)
	s.finish(err)
}
