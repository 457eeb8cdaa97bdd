// Package events defines the typed event contract of a debate session.
//
// Event kinds are grouped by namespace:
//
//   - stream.*
//   - presentation.*
//   - session.*
//
// stream events are produced by the stream connector from server frames and
// consumed by the session:
//
//   - SessionStarted (stream.session_started): server started generating.
//   - SpeakerThinking (stream.speaker_thinking): a speaker is composing a turn.
//   - TurnReceived (stream.turn_received): one complete turn, in network
//     arrival order.
//   - RoundCompleted (stream.round_completed): the server closed a round.
//   - SessionCompleted (stream.session_completed): explicit end-of-session
//     signal. Presentation continues until every turn is played.
//   - StreamError (stream.error): application error frame with a message.
//   - StreamReconnected (stream.reconnected): a new connection after a drop.
//   - TransportFailed (stream.transport_failed): the stream is lost for good.
//
// presentation events are produced by the session for the viewer:
//
//   - TurnRevealed (presentation.turn_revealed): a turn became visible.
//   - PlaybackStarted (presentation.playback_started): a voice clip started.
//   - TurnPlayed (presentation.turn_played): a turn finished presenting.
//   - AudioBlocked (presentation.audio_blocked): one-time advisory to enable
//     audio.
//   - ProgressUpdated (presentation.progress_updated): round progress changed.
//
// session events close the session:
//
//   - SessionFinished (session.finished): fires exactly once, parameterless.
//   - ResultsReady (session.results_ready): results summary fetched.
//   - ResultsUnavailable (session.results_unavailable): retries exhausted.
package events
