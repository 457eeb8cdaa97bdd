package debate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"
)

var (
	// ErrEmptyPayload is returned for frames without a usable body, such as
	// heartbeats.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrMalformedPayload is returned for frames that cannot be decoded into
	// their event type.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrResultsPending is returned for debate records that do not carry a
	// summary yet.
	ErrResultsPending = errors.New("results pending")
)

// StatusCompleted is the debate record status of a session that ran all of its
// rounds.
const StatusCompleted = "completed"

// WireStarted is the payload of the session started frame.
type WireStarted struct {
	DebateID    string `json:"debate_id" jsonschema_description:"Session identifier"`
	Status      string `json:"status,omitempty"`
	TotalRounds int    `json:"rounds,omitempty" jsonschema:"minimum=0"`
	Timestamp   string `json:"timestamp,omitempty" jsonschema:"format=date-time"`
}

// WireThinking is the payload announcing that a speaker is composing a turn.
type WireThinking struct {
	ModelID   string `json:"model_id" jsonschema:"required"`
	ModelName string `json:"model_name,omitempty"`
	Round     int    `json:"round" jsonschema:"minimum=1"`
	Timestamp string `json:"timestamp,omitempty" jsonschema:"format=date-time"`
}

// WireTurn is the payload of a turn frame.
type WireTurn struct {
	MessageID     string             `json:"message_id,omitempty"`
	Round         int                `json:"round" jsonschema:"required,minimum=1"`
	Sequence      int                `json:"sequence,omitempty"`
	ModelID       string             `json:"model_id" jsonschema:"required"`
	ModelName     string             `json:"model_name,omitempty"`
	MessageType   string             `json:"message_type,omitempty" jsonschema_description:"Open enumeration, e.g. initial, debate, final"`
	Text          string             `json:"text" jsonschema:"required"`
	Predictions   map[string]float64 `json:"predictions,omitempty" jsonschema_description:"Outcome label to probability in [0,100]"`
	AudioURL      *string            `json:"audio_url,omitempty" jsonschema_description:"Absolute or base-relative voice clip reference"`
	AudioDuration *float64           `json:"audio_duration,omitempty" jsonschema_description:"Clip length in seconds"`
	Timestamp     string             `json:"timestamp,omitempty" jsonschema:"format=date-time"`
}

// WireRoundComplete is the payload announcing the end of a round.
type WireRoundComplete struct {
	Round     int `json:"round,omitempty"`
	NextRound int `json:"next_round" jsonschema:"minimum=1"`
}

// WireSessionComplete is the payload of the explicit end-of-session frame.
type WireSessionComplete struct {
	DebateID      string `json:"debate_id,omitempty"`
	Status        string `json:"status,omitempty"`
	TotalRounds   int    `json:"total_rounds,omitempty" jsonschema:"minimum=0"`
	TotalMessages int    `json:"total_messages,omitempty" jsonschema:"minimum=0"`
	Timestamp     string `json:"timestamp,omitempty" jsonschema:"format=date-time"`
}

// WireError is the payload of an application level error frame.
type WireError struct {
	ModelID   string `json:"model_id,omitempty"`
	ModelName string `json:"model_name,omitempty"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp,omitempty" jsonschema:"format=date-time"`
}

// WireResults is the part of the debate record that carries the outcome of a
// finished session.
type WireResults struct {
	DebateID         string                         `json:"debate_id,omitempty"`
	Status           string                         `json:"status,omitempty" jsonschema_description:"initialized, in_progress, paused, completed or stopped"`
	FinalSummary     *WireSummary                   `json:"final_summary" jsonschema_description:"Null until the summary is generated"`
	FinalPredictions map[string]WireFinalPrediction `json:"final_predictions,omitempty" jsonschema_description:"Closing predictions keyed by model id"`
}

// Ready reports whether the record describes a completed session with a
// generated summary.
func (w WireResults) Ready() bool {
	return w.Status == StatusCompleted && w.FinalSummary != nil
}

// WireSummary is the generated narrative summary of a finished session.
type WireSummary struct {
	Overall         string             `json:"overall"`
	Agreements      []string           `json:"agreements,omitempty"`
	Disagreements   []WireDisagreement `json:"disagreements,omitempty"`
	Consensus       string             `json:"consensus,omitempty"`
	ModelRationales []WireRationale    `json:"model_rationales,omitempty"`
}

type WireDisagreement struct {
	Topic     string            `json:"topic"`
	Positions map[string]string `json:"positions,omitempty"`
}

type WireRationale struct {
	ModelID         string             `json:"model_id,omitempty"`
	Model           string             `json:"model,omitempty"`
	FinalPrediction map[string]float64 `json:"final_prediction,omitempty"`
	Rationale       string             `json:"rationale,omitempty"`
	KeyArguments    []string           `json:"key_arguments,omitempty"`
}

// WireFinalPrediction is one model's closing prediction. The server stores
// either a bare outcome to percentage map or an object wrapping it.
type WireFinalPrediction struct {
	ModelName   string             `json:"model_name,omitempty"`
	Predictions map[string]float64 `json:"predictions"`
	Change      string             `json:"change,omitempty"`
}

func (p *WireFinalPrediction) UnmarshalJSON(data []byte) error {
	var outcomes map[string]float64
	if err := json.Unmarshal(data, &outcomes); err == nil {
		*p = WireFinalPrediction{Predictions: outcomes}
		return nil
	}

	type wrapped WireFinalPrediction
	var decoded wrapped
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = WireFinalPrediction(decoded)
	return nil
}

// DecodeTurn decodes and validates a turn frame. Turns without a speaker,
// without text or with a round below one are malformed.
func DecodeTurn(data []byte) (Turn, error) {
	var wire WireTurn
	if err := decode(data, &wire); err != nil {
		return Turn{}, err
	}

	if strings.TrimSpace(wire.ModelID) == "" {
		return Turn{}, fmt.Errorf("%w: turn without speaker", ErrMalformedPayload)
	}
	if wire.Round < 1 {
		return Turn{}, fmt.Errorf("%w: turn round %d", ErrMalformedPayload, wire.Round)
	}
	if strings.TrimSpace(wire.Text) == "" {
		return Turn{}, fmt.Errorf("%w: turn without text", ErrMalformedPayload)
	}

	turn := Turn{
		SpeakerID:   wire.ModelID,
		SpeakerName: wire.ModelName,
		Round:       wire.Round,
		Type:        TurnType(wire.MessageType),
		Text:        wire.Text,
		Predictions: sanitizePredictions(wire.Predictions),
		ServerID:    wire.MessageID,
		Sequence:    wire.Sequence,
		Timestamp:   parseTimestamp(wire.Timestamp),
	}
	if wire.AudioURL != nil {
		turn.VoiceClip = strings.TrimSpace(*wire.AudioURL)
	}
	if wire.AudioDuration != nil && *wire.AudioDuration > 0 {
		turn.ClipDuration = time.Duration(*wire.AudioDuration * float64(time.Second))
	}

	return turn, nil
}

func DecodeStarted(data []byte) (WireStarted, error) {
	var wire WireStarted
	if err := decode(data, &wire); err != nil {
		return WireStarted{}, err
	}
	return wire, nil
}

func DecodeThinking(data []byte) (WireThinking, error) {
	var wire WireThinking
	if err := decode(data, &wire); err != nil {
		return WireThinking{}, err
	}
	if wire.ModelID == "" {
		return WireThinking{}, fmt.Errorf("%w: thinking without speaker", ErrMalformedPayload)
	}
	return wire, nil
}

func DecodeRoundComplete(data []byte) (WireRoundComplete, error) {
	var wire WireRoundComplete
	if err := decode(data, &wire); err != nil {
		return WireRoundComplete{}, err
	}
	if wire.NextRound == 0 && wire.Round > 0 {
		wire.NextRound = wire.Round + 1
	}
	if wire.NextRound < 1 {
		return WireRoundComplete{}, fmt.Errorf("%w: round complete without next round", ErrMalformedPayload)
	}
	return wire, nil
}

func DecodeSessionComplete(data []byte) (WireSessionComplete, error) {
	var wire WireSessionComplete
	if err := decode(data, &wire); err != nil {
		return WireSessionComplete{}, err
	}
	return wire, nil
}

// DecodeError decodes an application error frame. A frame without a message
// is reported as empty so it is dropped instead of counted.
func DecodeError(data []byte) (WireError, error) {
	var wire WireError
	if err := decode(data, &wire); err != nil {
		return WireError{}, err
	}
	if strings.TrimSpace(wire.Error) == "" {
		return WireError{}, ErrEmptyPayload
	}
	return wire, nil
}

// DecodeResults decodes a debate record. Records of sessions that are not
// completed, or whose summary is still null, wrap ErrResultsPending.
func DecodeResults(data []byte) (Results, error) {
	var wire WireResults
	if err := decode(data, &wire); err != nil {
		return Results{}, err
	}
	if !wire.Ready() {
		return Results{}, fmt.Errorf("%w: status %q", ErrResultsPending, wire.Status)
	}
	return wire.Results(), nil
}

// Results converts the wire record into the domain summary. Final predictions
// missing from the record are recovered from the per-model rationales.
func (w WireResults) Results() Results {
	var summary WireSummary
	if w.FinalSummary != nil {
		summary = *w.FinalSummary
	}

	results := Results{
		Overall:    summary.Overall,
		Consensus:  summary.Consensus,
		Agreements: append([]string(nil), summary.Agreements...),
	}

	for _, disagreement := range summary.Disagreements {
		results.Disagreements = append(results.Disagreements, Disagreement{
			Topic:     disagreement.Topic,
			Positions: disagreement.Positions,
		})
	}

	for _, rationale := range summary.ModelRationales {
		results.Rationales = append(results.Rationales, Rationale{
			SpeakerID:    rationale.ModelID,
			SpeakerName:  rationale.Model,
			Rationale:    rationale.Rationale,
			KeyArguments: append([]string(nil), rationale.KeyArguments...),
		})
	}

	for _, modelID := range slices.Sorted(maps.Keys(w.FinalPredictions)) {
		prediction := w.FinalPredictions[modelID]
		predictions := sanitizePredictions(prediction.Predictions)
		if len(predictions) == 0 {
			continue
		}
		results.FinalPredictions = append(results.FinalPredictions, FinalPrediction{
			SpeakerID:   modelID,
			SpeakerName: prediction.ModelName,
			Predictions: predictions,
			Change:      prediction.Change,
		})
	}
	if len(results.FinalPredictions) == 0 {
		for _, rationale := range summary.ModelRationales {
			if len(rationale.FinalPrediction) == 0 {
				continue
			}
			results.FinalPredictions = append(results.FinalPredictions, FinalPrediction{
				SpeakerID:   rationale.ModelID,
				SpeakerName: rationale.Model,
				Predictions: sanitizePredictions(rationale.FinalPrediction),
			})
		}
	}

	return results
}

func decode(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func sanitizePredictions(raw map[string]float64) Predictions {
	if len(raw) == 0 {
		return nil
	}

	predictions := make(Predictions, len(raw))
	for label, value := range raw {
		if label == "" || math.IsNaN(value) || value < 0 || value > 100 {
			continue
		}
		predictions[label] = value
	}
	if len(predictions) == 0 {
		return nil
	}
	return predictions
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	// The server emits naive UTC timestamps with a trailing Z and microseconds.
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999", strings.TrimSuffix(raw, "Z"), time.UTC); err == nil {
		return ts
	}
	return time.Time{}
}
