// Package debate holds the data model shared by the stream connector, the
// session orchestrator and the viewer: turns, their identities, round
// progress and the final results summary.
package debate

import (
	"fmt"
	"strings"
	"time"
)

// TurnType is the server-defined kind of a turn. The set is open; the
// constants below are the values the debate server is known to send.
type TurnType string

const (
	TurnInitial TurnType = "initial"
	TurnDebate  TurnType = "debate"
	TurnFinal   TurnType = "final"
)

// Predictions maps an outcome label to a probability in [0,100].
type Predictions map[string]float64

// Turn is one participant's contribution in one round.
//
// Text is complete on arrival, there is no incremental streaming. A turn
// without a VoiceClip is treated as instantly playable.
type Turn struct {
	SpeakerID   string
	SpeakerName string
	Round       int
	Type        TurnType
	Text        string
	Predictions Predictions

	// VoiceClip is an opaque, possibly relative reference to the voice-over.
	VoiceClip    string
	ClipDuration time.Duration

	// ServerID, Sequence and Timestamp are informational only and never take
	// part in identity.
	ServerID  string
	Sequence  int
	Timestamp time.Time
}

// HasVoiceClip reports whether the turn carries an audio reference.
func (t Turn) HasVoiceClip() bool {
	return strings.TrimSpace(t.VoiceClip) != ""
}

// DisplayName returns the speaker name, falling back to the speaker id.
func (t Turn) DisplayName() string {
	if t.SpeakerName != "" {
		return t.SpeakerName
	}
	return t.SpeakerID
}

// TurnID is the identity of a turn inside one session. ArrivalIndex is the
// zero-based position the turn was appended at; it is assigned once and never
// recomputed.
type TurnID struct {
	SpeakerID    string
	Round        int
	ArrivalIndex int
}

// NewTurnID builds the identity of turn appended at arrivalIndex.
func NewTurnID(turn Turn, arrivalIndex int) TurnID {
	return TurnID{SpeakerID: turn.SpeakerID, Round: turn.Round, ArrivalIndex: arrivalIndex}
}

func (id TurnID) String() string {
	return fmt.Sprintf("%s/r%d/#%d", id.SpeakerID, id.Round, id.ArrivalIndex)
}
