// Package stream owns the server-to-client event stream of one debate
// session: it dials a transport, classifies frames into typed events,
// applies the error-rate policy and tears the connection down.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/koscakluka/ema-debate/core/events"
	"github.com/koscakluka/ema-debate/core/internal/ctxhook"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrTransportFailed is reported when an error counter reaches its
	// threshold inside its window.
	ErrTransportFailed = errors.New("stream transport failed")
	// ErrConnectorUsed is returned when Run is called on a connector that
	// already ran or was closed.
	ErrConnectorUsed = errors.New("connector already used")
)

// Consumer receives classified events. It is called from the connector's
// read goroutine, one event at a time.
type Consumer func(events.Event)

// Stopper tells the originating server session to stop producing turns.
type Stopper func(ctx context.Context) error

// Policy configures the error-rate policy. Connection errors and application
// error frames are counted separately.
type Policy struct {
	ConnectionErrorWindow     time.Duration
	ConnectionErrorThreshold  int
	ApplicationErrorWindow    time.Duration
	ApplicationErrorThreshold int

	// ReconnectDelay is waited before redialing after a connection error
	// that stayed under the threshold.
	ReconnectDelay time.Duration
	// StopTimeout bounds the best-effort stop notification.
	StopTimeout time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ConnectionErrorWindow:     10 * time.Second,
		ConnectionErrorThreshold:  3,
		ApplicationErrorWindow:    10 * time.Second,
		ApplicationErrorThreshold: 5,
		ReconnectDelay:            time.Second,
		StopTimeout:               5 * time.Second,
	}
}

type ConnectorOption func(*Connector)

func WithConsumer(consumer Consumer) ConnectorOption {
	return func(c *Connector) { c.consumer = consumer }
}

func WithStopper(stopper Stopper) ConnectorOption {
	return func(c *Connector) { c.stopper = stopper }
}

func WithPolicy(policy Policy) ConnectorOption {
	return func(c *Connector) { c.policy = policy }
}

// WithClock replaces time.Now for the error windows.
func WithClock(now func() time.Time) ConnectorOption {
	return func(c *Connector) {
		if now != nil {
			c.now = now
		}
	}
}

// Connector owns one event stream connection for one session. It is single
// use: Run may be called once, Close any number of times.
type Connector struct {
	transport Transport
	consumer  Consumer
	stopper   Stopper
	policy    Policy
	now       func() time.Time

	mu         sync.Mutex
	state      State
	conn       Conn
	cancel     context.CancelFunc
	running    bool
	closed     bool
	completed  bool
	connErrors *ErrorWindow
	appErrors  *ErrorWindow

	teardownOnce sync.Once
	stopDone     chan struct{}
}

func NewConnector(transport Transport, opts ...ConnectorOption) *Connector {
	c := &Connector{
		transport: transport,
		policy:    DefaultPolicy(),
		now:       time.Now,
		stopDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.connErrors = NewErrorWindow(c.policy.ConnectionErrorWindow, c.policy.ConnectionErrorThreshold)
	c.appErrors = NewErrorWindow(c.policy.ApplicationErrorWindow, c.policy.ApplicationErrorThreshold)
	return c
}

// Run dials endpoint and dispatches events until the stream ends after the
// session completed, the connector is closed, ctx is cancelled or the error
// policy gives up. Only the last case returns an error, wrapping
// ErrTransportFailed, after a TransportFailed event was delivered.
func (c *Connector) Run(ctx context.Context, endpoint string) error {
	ctx, span := tracer.Start(ctx, "run event stream", trace.WithAttributes(attribute.String("stream.endpoint", endpoint)))
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.running || c.closed {
		c.mu.Unlock()
		return ErrConnectorUsed
	}
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()
	defer c.teardown()

	connections := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		c.setState(StateConnecting)
		conn, err := c.transport.Dial(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrStillConnecting) {
				logger.Debug("event stream still connecting", "error", err)
			} else if failure := c.countConnectionError(err); failure != nil {
				return c.fail(span, failure)
			}
			span.AddEvent("redial")
			if !c.wait(ctx) {
				return nil
			}
			continue
		}

		if !c.attach(conn) {
			_ = conn.Close()
			return nil
		}
		if connections > 0 {
			c.deliver(events.NewStreamReconnected(connections))
		}
		connections++
		err = c.consume(ctx, conn)
		c.detach(conn)

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrTransportFailed):
			return c.fail(span, err)
		case errors.Is(err, io.EOF) && c.isCompleted():
			logger.Debug("event stream ended after session completed")
			return nil
		}

		if failure := c.countConnectionError(err); failure != nil {
			return c.fail(span, failure)
		}
		span.AddEvent("reconnect")
		if !c.wait(ctx) {
			return nil
		}
	}
}

// Close tears the connection down and, unless the server already completed
// the session, sends the stop notification. Safe to call more than once.
func (c *Connector) Close() {
	c.teardown()
}

func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connector) consume(ctx context.Context, conn Conn) error {
	done := ctxhook.OnDone(ctx, func() { _ = conn.Close() })
	defer close(done)

	for {
		frame, err := conn.Next(ctx)
		if err != nil {
			return err
		}

		event, err := Classify(frame)
		if err != nil {
			logger.Debug("dropping event stream frame", "event", frame.Event, "error", err)
			continue
		}

		switch typedEvent := event.(type) {
		case events.SessionCompleted:
			c.markCompleted()
		case events.StreamError:
			c.deliver(event)
			if failure := c.countApplicationError(typedEvent); failure != nil {
				return failure
			}
			continue
		}

		c.deliver(event)
	}
}

func (c *Connector) deliver(event events.Event) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed || c.consumer == nil {
		return
	}
	c.consumer(event)
}

func (c *Connector) countConnectionError(err error) error {
	c.mu.Lock()
	now := c.now()
	tripped := c.connErrors.Record(now)
	count := c.connErrors.Count(now)
	c.mu.Unlock()

	if tripped {
		return fmt.Errorf("%w: %d connection errors within %s: %v",
			ErrTransportFailed, count, c.policy.ConnectionErrorWindow, err)
	}

	logger.Warn("event stream connection error",
		"error", err,
		"count", count,
		"threshold", c.policy.ConnectionErrorThreshold)
	return nil
}

func (c *Connector) countApplicationError(event events.StreamError) error {
	c.mu.Lock()
	now := c.now()
	tripped := c.appErrors.Record(now)
	count := c.appErrors.Count(now)
	c.mu.Unlock()

	if tripped {
		return fmt.Errorf("%w: %d application errors within %s: %s",
			ErrTransportFailed, count, c.policy.ApplicationErrorWindow, event.Message)
	}

	logger.Warn("event stream application error",
		"speaker", event.SpeakerID,
		"message", event.Message,
		"count", count,
		"threshold", c.policy.ApplicationErrorThreshold)
	return nil
}

func (c *Connector) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("event stream lost", "error", err)

	c.teardown()
	if c.consumer != nil {
		c.consumer(events.NewTransportFailed(err))
	}
	return err
}

func (c *Connector) teardown() {
	c.teardownOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.state = StateClosed
		conn := c.conn
		c.conn = nil
		cancel := c.cancel
		notify := !c.completed && c.stopper != nil
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if conn != nil {
			_ = conn.Close()
		}

		if !notify {
			close(c.stopDone)
			return
		}
		go c.notifyStop()
	})
}

// notifyStop is fire-and-forget: failures are logged, never retried.
func (c *Connector) notifyStop() {
	defer close(c.stopDone)

	timeout := c.policy.StopTimeout
	if timeout <= 0 {
		timeout = DefaultPolicy().StopTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.stopper(ctx); err != nil {
		logger.Debug("stop notification failed", "error", err)
	}
}

func (c *Connector) attach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	c.state = StateOpen
	return true
}

func (c *Connector) detach(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Connector) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.state = state
	}
}

func (c *Connector) markCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = true
}

func (c *Connector) isCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

func (c *Connector) wait(ctx context.Context) bool {
	if c.policy.ReconnectDelay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(c.policy.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
