// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer turns session events into metric updates. Register Handle as the
// session's event handler.
type Observer struct {
	now func() time.Time

	streamEvents     *prometheus.CounterVec
	turnsPlayed      *prometheus.CounterVec
	turnPresentation prometheus.Histogram
	audioBlocked     prometheus.Counter
	streamErrors     prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	resultsAttempts  prometheus.Histogram
	sessionsActive   prometheus.Gauge

	mu       sync.Mutex
	revealed map[debate.TurnID]time.Time
}

func NewObserver(registerer prometheus.Registerer) *Observer {
	factory := promauto.With(registerer)

	return &Observer{
		now: time.Now,

		streamEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_stream_events_total",
			Help: "Classified events received from the debate stream",
		}, []string{"kind"}),

		turnsPlayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_turns_played_total",
			Help: "Turns that finished presentation, by outcome",
		}, []string{"outcome"}),

		turnPresentation: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "debate_turn_presentation_seconds",
			Help:    "Time from revealing a turn to marking it played",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),

		audioBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "debate_audio_blocked_total",
			Help: "Sessions in which clip playback failed at least once",
		}),

		streamErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "debate_stream_errors_total",
			Help: "Application error events reported on the debate stream",
		}),

		sessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_sessions_finished_total",
			Help: "Sessions that reached a terminal state",
		}, []string{"result"}),

		resultsAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "debate_results_unavailable_attempts",
			Help:    "Result fetch attempts made before giving up",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		}),

		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "debate_sessions_active",
			Help: "Sessions currently being presented",
		}),

		revealed: map[debate.TurnID]time.Time{},
	}
}

// SessionStarted and SessionStopped bracket the lifetime of one session.
func (o *Observer) SessionStarted() {
	o.sessionsActive.Inc()
}

func (o *Observer) SessionStopped() {
	o.sessionsActive.Dec()

	o.mu.Lock()
	clear(o.revealed)
	o.mu.Unlock()
}

func (o *Observer) Handle(event events.Event) {
	if event.Kind().Namespace() == "stream" {
		o.streamEvents.WithLabelValues(string(event.Kind())).Inc()
	}

	switch typedEvent := event.(type) {
	case events.TurnRevealed:
		o.mu.Lock()
		o.revealed[typedEvent.ID] = o.now()
		o.mu.Unlock()

	case events.TurnPlayed:
		o.turnsPlayed.WithLabelValues(string(typedEvent.Outcome)).Inc()
		o.mu.Lock()
		revealedAt, ok := o.revealed[typedEvent.ID]
		delete(o.revealed, typedEvent.ID)
		o.mu.Unlock()
		if ok {
			o.turnPresentation.Observe(o.now().Sub(revealedAt).Seconds())
		}

	case events.AudioBlocked:
		o.audioBlocked.Inc()

	case events.StreamError:
		o.streamErrors.Inc()

	case events.ResultsReady:
		o.finish("results_ready")

	case events.ResultsUnavailable:
		o.resultsAttempts.Observe(float64(typedEvent.Attempts))
		o.finish("results_unavailable")

	case events.TransportFailed:
		o.finish("transport_failed")
	}
}

func (o *Observer) finish(result string) {
	o.sessionsFinished.WithLabelValues(result).Inc()
}
