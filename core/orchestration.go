package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-debate/core/api"
	"github.com/koscakluka/ema-debate/core/audio"
	"github.com/koscakluka/ema-debate/core/internal/ctxhook"
	"github.com/koscakluka/ema-debate/core/stream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoDebateServer = errors.New("no debate server configured")

// Orchestrator starts debate sessions and wires each one to its event stream,
// the clip player and the results endpoint.
type Orchestrator struct {
	server       DebateServer
	player       audio.ClipPlayer
	transport    stream.Transport
	policy       stream.Policy
	timing       Timing
	audioBaseURL string

	clock clock
	spawn spawner
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		transport: stream.NewSSETransport(),
		policy:    stream.DefaultPolicy(),
		timing:    DefaultTiming(),
		clock:     systemClock{},
		spawn:     goSpawner,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartSession asks the server to start a debate and begins watching it.
//
// ctx bounds the whole session, not only the start request: cancelling it
// closes the session.
func (o *Orchestrator) StartSession(ctx context.Context, req api.StartRequest, opts ...SessionOption) (*Session, error) {
	if o.server == nil {
		return nil, ErrNoDebateServer
	}

	startCtx, span := tracer.Start(ctx, "start session", trace.WithAttributes(
		attribute.String("market_id", req.MarketID),
		attribute.Int("participants", len(req.ParticipantIDs)),
		attribute.Int("rounds", req.Rounds),
	))
	defer span.End()

	resp, err := o.server.StartSession(startCtx, req)
	if err != nil {
		err = fmt.Errorf("failed to start session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("session_id", resp.SessionID))

	return o.Watch(ctx, SessionInfo{
		SessionID:     resp.SessionID,
		StreamURL:     resp.StreamURL,
		TotalRounds:   resp.TotalRounds,
		ExpectedTurns: resp.ExpectedTurns,
	}, opts...), nil
}

// Watch presents an already started session.
func (o *Orchestrator) Watch(ctx context.Context, info SessionInfo, opts ...SessionOption) *Session {
	sessionOptions := SessionOptions{}
	for _, opt := range opts {
		opt(&sessionOptions)
	}

	config := sessionConfig{
		clock:        o.clock,
		spawn:        o.spawn,
		timing:       o.timing,
		player:       o.player,
		audioBaseURL: o.audioBaseURL,
	}
	if o.server != nil {
		config.results = o.server
	}
	session := newSession(ctx, info, config, newCallbackEventEmitter(sessionOptions))

	connectorOptions := []stream.ConnectorOption{
		stream.WithConsumer(session.Handle),
		stream.WithPolicy(o.policy),
	}
	if o.server != nil {
		server := o.server
		connectorOptions = append(connectorOptions, stream.WithStopper(func(ctx context.Context) error {
			return server.StopSession(ctx, info.SessionID)
		}))
	}
	connector := stream.NewConnector(o.transport, connectorOptions...)
	session.reactor.post(func() {
		session.closeStream = connector.Close
		session.stopHook = ctxhook.OnDone(ctx, session.Close)
	})

	go func() {
		if err := connector.Run(session.ctx, info.StreamURL); err != nil && !errors.Is(err, stream.ErrTransportFailed) {
			logger.Warn("event stream stopped", "session_id", info.SessionID, "error", err)
		}
	}()
	return session
}
