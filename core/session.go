package orchestration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-debate/core/audio"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrSessionClosed is reported by Err for sessions closed before they
// finished.
var ErrSessionClosed = errors.New("session closed")

// SessionInfo identifies a started session and the stream it is fed from.
type SessionInfo struct {
	SessionID     string
	StreamURL     string
	TotalRounds   int
	ExpectedTurns int
}

// Session presents one debate: it reveals turns in arrival order, plays
// their clips one at a time and decides when the debate is over.
//
// All state changes run as tasks on the session's reactor, so callbacks
// registered through SessionOptions are never called concurrently.
type Session struct {
	info  SessionInfo
	runID string

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	reactor      reactor
	clock        clock
	spawn        spawner
	timing       Timing
	player       audio.ClipPlayer
	results      ResultsFetcher
	audioBaseURL string
	emit         eventEmitter

	// Reactor owned.
	state        sessionState
	playback     playbackState
	timers       map[int]func() bool
	nextTimer    int
	completeOnce sync.Once
	closed       bool
	closeStream  func()
	stopHook     chan struct{}

	mu           sync.RWMutex
	snapshot     Snapshot
	finalResults *debate.Results
	err          error

	done chan struct{}
}

type sessionConfig struct {
	clock        clock
	spawn        spawner
	timing       Timing
	player       audio.ClipPlayer
	results      ResultsFetcher
	audioBaseURL string
}

func newSession(ctx context.Context, info SessionInfo, config sessionConfig, emit eventEmitter) *Session {
	if emit == nil {
		emit = noopEventEmitter
	}
	if config.clock == nil {
		config.clock = systemClock{}
	}
	if config.spawn == nil {
		config.spawn = goSpawner
	}

	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "debate session", trace.WithAttributes(
		attribute.String("session_id", info.SessionID),
		attribute.String("run_id", runID),
	))
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		info:         info,
		runID:        runID,
		ctx:          ctx,
		cancel:       cancel,
		span:         span,
		clock:        config.clock,
		spawn:        config.spawn,
		timing:       config.timing,
		player:       config.player,
		results:      config.results,
		audioBaseURL: config.audioBaseURL,
		emit:         emit,
		state:        newSessionState(),
		timers:       map[int]func() bool{},
		done:         make(chan struct{}),
	}
	s.state.totalRounds = info.TotalRounds
	s.state.expectedTurns = info.ExpectedTurns
	s.publish()
	return s
}

func (s *Session) ID() string { return s.info.SessionID }

// Handle feeds one stream event into the session. It is safe to call from
// any goroutine and never blocks on playback.
func (s *Session) Handle(event events.Event) {
	s.reactor.post(func() { s.handle(event) })
}

func (s *Session) handle(event events.Event) {
	if s.closed {
		return
	}
	if failed, ok := event.(events.TransportFailed); ok {
		s.onTransportFailed(failed)
		return
	}

	s.emit(event)
	switch typedEvent := event.(type) {
	case events.SessionStarted:
		if typedEvent.TotalRounds > 0 {
			s.state.totalRounds = typedEvent.TotalRounds
		}
		s.emitProgress()
	case events.TurnReceived:
		s.onTurnReceived(typedEvent.Turn)
	case events.StreamReconnected:
		logger.Info("event stream reconnected", "session_id", s.info.SessionID, "attempt", typedEvent.Attempt)
		s.state.startReplay()
	case events.RoundCompleted:
		logger.Debug("round completed", "session_id", s.info.SessionID, "round", typedEvent.Round, "next_round", typedEvent.NextRound)
	case events.SessionCompleted:
		s.onServerComplete(typedEvent)
		s.emitProgress()
	case events.StreamError:
		logger.Warn("stream reported error",
			"session_id", s.info.SessionID,
			"speaker_id", typedEvent.SpeakerID,
			"message", typedEvent.Message)
	}
}

// Close stops the session. Playback halts, the stream is closed and the
// server is asked to stop producing turns. Close does not wait; use Done.
func (s *Session) Close() {
	s.reactor.post(func() { s.finish(ErrSessionClosed) })
}

// Done is closed once the session is over: results were fetched or given up
// on, the transport failed, or the session was closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns nil for sessions that finished presenting, the transport error
// for failed sessions and ErrSessionClosed for sessions closed early.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Results returns the fetched summary, if any.
func (s *Session) Results() (debate.Results, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.finalResults == nil {
		return debate.Results{}, false
	}
	return *s.finalResults, true
}

// Snapshot returns a point-in-time copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Session) Progress() debate.RoundProgress {
	return s.Snapshot().Progress
}

func (s *Session) publish() {
	snapshot := Snapshot{
		SessionID:    s.info.SessionID,
		Turns:        s.state.views(),
		State:        s.state.completionState(),
		Progress:     projectRounds(&s.state),
		AudioBlocked: s.playback.audioBlocked,
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
}

func (s *Session) emitProgress() {
	s.publish()
	s.emit(events.NewProgressUpdated(s.Snapshot().Progress))
}

// after runs task on the reactor once d elapsed, unless the session is torn
// down first.
func (s *Session) after(d time.Duration, task func()) {
	if s.closed {
		return
	}
	if d <= 0 {
		s.reactor.post(func() {
			if !s.closed {
				task()
			}
		})
		return
	}

	id := s.nextTimer
	s.nextTimer++
	s.timers[id] = s.clock.AfterFunc(d, func() {
		s.reactor.post(func() {
			if _, ok := s.timers[id]; !ok {
				return
			}
			delete(s.timers, id)
			task()
		})
	})
}

func (s *Session) cancelTimers() {
	for id, stop := range s.timers {
		stop()
		delete(s.timers, id)
	}
}

// finish tears the session down: audio first, then the stream, whose
// connector sends the stop notification when the server has not finished.
func (s *Session) finish(err error) {
	if s.closed {
		return
	}
	s.closed = true

	s.stopPlayback()
	s.cancelTimers()
	if s.closeStream != nil {
		s.closeStream()
	}
	s.cancel()
	if s.stopHook != nil {
		close(s.stopHook)
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.publish()

	switch {
	case err == nil:
		s.span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrSessionClosed):
		s.span.AddEvent("session closed")
	default:
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()

	logger.Info("session finished", "session_id", s.info.SessionID, "run_id", s.runID, "state", s.state.completionState().String(), "error", err)
	close(s.done)
}
