package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-debate/core/api"
	"github.com/koscakluka/ema-debate/core/audio"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
	"github.com/koscakluka/ema-debate/core/stream"
)

type OrchestratorOption func(*Orchestrator)

// ResultsFetcher fetches the summary of a finished session.
type ResultsFetcher interface {
	FetchResults(ctx context.Context, sessionID string) (debate.Results, error)
}

// DebateServer is the server side of a session.
type DebateServer interface {
	ResultsFetcher
	StartSession(ctx context.Context, req api.StartRequest) (api.StartResponse, error)
	StopSession(ctx context.Context, sessionID string) error
}

func WithDebateServer(server DebateServer) OrchestratorOption {
	return func(o *Orchestrator) { o.server = server }
}

// WithClipPlayer sets the player used for voice clips. Without a player every
// clip fails and its turn is completed after the failure grace delay.
func WithClipPlayer(player audio.ClipPlayer) OrchestratorOption {
	return func(o *Orchestrator) { o.player = player }
}

// WithStreamTransport replaces the default server-sent events transport.
func WithStreamTransport(transport stream.Transport) OrchestratorOption {
	return func(o *Orchestrator) { o.transport = transport }
}

func WithStreamPolicy(policy stream.Policy) OrchestratorOption {
	return func(o *Orchestrator) { o.policy = policy }
}

func WithTiming(timing Timing) OrchestratorOption {
	return func(o *Orchestrator) { o.timing = timing }
}

// WithAudioBaseURL sets the base relative voice clip references are joined
// against.
func WithAudioBaseURL(baseURL string) OrchestratorOption {
	return func(o *Orchestrator) { o.audioBaseURL = baseURL }
}

func withClock(c clock) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = c }
}

func withSpawner(spawn spawner) OrchestratorOption {
	return func(o *Orchestrator) { o.spawn = spawn }
}

// Timing holds the pacing delays of a session. They smooth request bursts
// and reveal animations; correctness does not depend on them.
type Timing struct {
	// SettleDelay is waited between revealing a turn without a voice clip
	// and marking it played.
	SettleDelay time.Duration
	// LoadDelay is waited before a clip is acquired.
	LoadDelay time.Duration
	// StartDelay is waited between acquiring a clip and starting it.
	StartDelay time.Duration
	// FailureGrace is waited after a clip failed before its turn is marked
	// played anyway.
	FailureGrace time.Duration
	// PlaybackTimeout treats a clip that has not ended after this long as
	// failed. Zero disables it.
	PlaybackTimeout time.Duration

	// FallbackCheckDelay is the period of the completion check armed once
	// the server signalled the end of the session.
	FallbackCheckDelay time.Duration
	// ResultAttempts is the number of result fetches before giving up.
	ResultAttempts int
	// ResultBackoff is the delay before the second fetch. It doubles for
	// every further attempt.
	ResultBackoff time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		SettleDelay:        600 * time.Millisecond,
		LoadDelay:          250 * time.Millisecond,
		StartDelay:         150 * time.Millisecond,
		FailureGrace:       1500 * time.Millisecond,
		FallbackCheckDelay: 2 * time.Second,
		ResultAttempts:     3,
		ResultBackoff:      time.Second,
	}
}

// resultBackoff is the delay after the given failed attempt, counting from 1.
func (t Timing) resultBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return t.ResultBackoff << (attempt - 1)
}

type SessionOption func(*SessionOptions)

type SessionOptions struct {
	onEvent              func(events.Event)
	onTurnRevealed       func(id debate.TurnID, turn debate.Turn)
	onTurnPlayed         func(id debate.TurnID, outcome events.PlayOutcome)
	onAudioBlocked       func(err error)
	onProgress           func(progress debate.RoundProgress)
	onFinished           func()
	onResults            func(results debate.Results)
	onResultsUnavailable func(err error)
	onTransportFailed    func(err error)
}

// WithEventHandler registers a handler that receives every event the
// session produces or consumes, in order.
//
// Callbacks run on the session's task loop and must not block.
func WithEventHandler(handler func(events.Event)) SessionOption {
	return func(o *SessionOptions) {
		o.onEvent = handler
	}
}

func WithTurnRevealedCallback(callback func(id debate.TurnID, turn debate.Turn)) SessionOption {
	return func(o *SessionOptions) {
		o.onTurnRevealed = callback
	}
}

func WithTurnPlayedCallback(callback func(id debate.TurnID, outcome events.PlayOutcome)) SessionOption {
	return func(o *SessionOptions) {
		o.onTurnPlayed = callback
	}
}

// WithAudioBlockedCallback registers the "enable audio" advisory. It fires
// at most once per session, on the first clip that fails to play.
func WithAudioBlockedCallback(callback func(err error)) SessionOption {
	return func(o *SessionOptions) {
		o.onAudioBlocked = callback
	}
}

func WithProgressCallback(callback func(progress debate.RoundProgress)) SessionOption {
	return func(o *SessionOptions) {
		o.onProgress = callback
	}
}

// WithFinishedCallback registers the completion notification. It fires
// exactly once, when every turn has been presented after the server ended the
// session.
func WithFinishedCallback(callback func()) SessionOption {
	return func(o *SessionOptions) {
		o.onFinished = callback
	}
}

func WithResultsCallback(callback func(results debate.Results)) SessionOption {
	return func(o *SessionOptions) {
		o.onResults = callback
	}
}

func WithResultsUnavailableCallback(callback func(err error)) SessionOption {
	return func(o *SessionOptions) {
		o.onResultsUnavailable = callback
	}
}

func WithTransportFailedCallback(callback func(err error)) SessionOption {
	return func(o *SessionOptions) {
		o.onTransportFailed = callback
	}
}
