package orchestration

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-debate/core/api"
	"github.com/koscakluka/ema-debate/core/audio"
	"github.com/koscakluka/ema-debate/core/debate"
	"github.com/koscakluka/ema-debate/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrPlaybackBusy    = errors.New("playback already active")
	ErrPlaybackTimeout = errors.New("clip did not finish in time")
	ErrNoClipPlayer    = errors.New("no clip player configured")
)

// playbackState belongs to the playback coordinator. The active slot itself
// lives in sessionState so the sequencer and snapshots can see it.
type playbackState struct {
	// generation is bumped whenever the current clip is abandoned; callbacks
	// carrying an older generation are ignored.
	generation   int
	clip         audio.Clip
	span         trace.Span
	audioBlocked bool
}

// play takes the active slot for id and starts the staged clip lifecycle.
// Every path out of the lifecycle ends in markPlayed or teardown, both of
// which clear the slot.
func (s *Session) play(id debate.TurnID, turn debate.Turn) error {
	if s.state.active != nil {
		return ErrPlaybackBusy
	}
	active := id
	s.state.active = &active
	s.playback.generation++
	generation := s.playback.generation

	_, span := tracer.Start(s.ctx, "play turn",
		trace.WithAttributes(
			attribute.String("turn", id.String()),
			attribute.String("speaker_id", turn.SpeakerID),
			attribute.Int("round", turn.Round),
		))
	s.playback.span = span

	url, err := api.Resolve(s.audioBaseURL, turn.VoiceClip)
	if err != nil {
		s.playbackFailed(generation, id, fmt.Errorf("resolve clip: %w", err))
		return nil
	}
	span.SetAttributes(attribute.String("clip_url", url))

	s.after(s.timing.LoadDelay, func() {
		s.loadClip(generation, id, url)
	})
	return nil
}

func (s *Session) isCurrentPlayback(generation int, id debate.TurnID) bool {
	return !s.closed && generation == s.playback.generation && s.state.isActive(id)
}

func (s *Session) loadClip(generation int, id debate.TurnID, url string) {
	if !s.isCurrentPlayback(generation, id) {
		return
	}
	if s.player == nil {
		s.playbackFailed(generation, id, ErrNoClipPlayer)
		return
	}

	ctx := s.ctx
	s.spawn(func() {
		clip, err := s.player.Load(ctx, url)
		s.reactor.post(func() {
			if !s.isCurrentPlayback(generation, id) {
				if clip != nil {
					clip.Stop()
				}
				return
			}
			if err != nil {
				s.playbackFailed(generation, id, fmt.Errorf("load clip: %w", err))
				return
			}

			s.playback.clip = clip
			s.after(s.timing.StartDelay, func() {
				s.startClip(generation, id, clip)
			})
		})
	})
}

func (s *Session) startClip(generation int, id debate.TurnID, clip audio.Clip) {
	if !s.isCurrentPlayback(generation, id) {
		return
	}

	onEnded := func() {
		s.reactor.post(func() { s.clipEnded(generation, id) })
	}
	onError := func(err error) {
		s.reactor.post(func() { s.playbackFailed(generation, id, err) })
	}
	if err := clip.Play(onEnded, onError); err != nil {
		s.playbackFailed(generation, id, err)
		return
	}

	s.emit(events.NewPlaybackStarted(id))
	s.publish()

	if s.timing.PlaybackTimeout > 0 {
		s.after(s.timing.PlaybackTimeout, func() {
			s.playbackFailed(generation, id, ErrPlaybackTimeout)
		})
	}
}

func (s *Session) clipEnded(generation int, id debate.TurnID) {
	if !s.isCurrentPlayback(generation, id) {
		return
	}
	s.releaseClip()
	s.endPlaybackSpan(nil)
	s.markPlayed(id, events.PlayOutcomeCompleted)
}

// playbackFailed abandons the clip and force completes the turn after the
// failure grace delay. The slot stays taken until then.
func (s *Session) playbackFailed(generation int, id debate.TurnID, err error) {
	if !s.isCurrentPlayback(generation, id) {
		return
	}
	s.playback.generation++
	s.releaseClip()
	s.endPlaybackSpan(err)

	logger.Warn("clip playback failed",
		"session_id", s.info.SessionID,
		"turn", id.String(),
		"autoplay_blocked", errors.Is(err, audio.ErrAutoplayBlocked),
		"error", err)

	if !s.playback.audioBlocked {
		s.playback.audioBlocked = true
		s.emit(events.NewAudioBlocked(id, err))
		s.publish()
	}

	s.after(s.timing.FailureGrace, func() {
		s.markPlayed(id, events.PlayOutcomeFailed)
	})
}

func (s *Session) releaseClip() {
	if s.playback.clip == nil {
		return
	}
	s.playback.clip.Stop()
	s.playback.clip = nil
}

func (s *Session) endPlaybackSpan(err error) {
	if s.playback.span == nil {
		return
	}
	if err != nil {
		s.playback.span.RecordError(err)
		s.playback.span.SetStatus(codes.Error, "playback failed")
	}
	s.playback.span.End()
	s.playback.span = nil
}

// stopPlayback halts any in-flight clip and frees the active slot.
func (s *Session) stopPlayback() {
	s.playback.generation++
	s.releaseClip()
	s.endPlaybackSpan(nil)
	s.state.active = nil
}
