package api

import (
	"errors"
	"fmt"
)

var (
	// ErrResultsNotReady is returned by FetchResults while the server has
	// not finished persisting the session. Callers may retry.
	ErrResultsNotReady = errors.New("results not ready")
	// ErrInvalidRequest is returned for start requests that fail local
	// validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// StartRequest asks the server to start a debate on a market.
type StartRequest struct {
	MarketID       string   `json:"market_id"`
	ParticipantIDs []string `json:"model_ids"`
	Rounds         int      `json:"rounds"`
}

func (r StartRequest) validate() error {
	if r.MarketID == "" {
		return fmt.Errorf("%w: market id is required", ErrInvalidRequest)
	}
	if len(r.ParticipantIDs) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrInvalidRequest)
	}
	if r.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be at least 1, got %d", ErrInvalidRequest, r.Rounds)
	}
	return nil
}

// StartResponse identifies a started session and where its events stream.
type StartResponse struct {
	SessionID     string
	StreamURL     string
	Status        string
	TotalRounds   int
	ExpectedTurns int
	Market        Market
	Participants  []Participant
}

type Market struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Description string `json:"description,omitempty"`
}

type Participant struct {
	ID       string `json:"model_id"`
	Name     string `json:"model_name"`
	Provider string `json:"provider,omitempty"`
}

type startResponseBody struct {
	DebateID              string        `json:"debate_id"`
	Status                string        `json:"status"`
	StreamURL             string        `json:"stream_url"`
	Rounds                int           `json:"rounds"`
	TotalMessagesExpected int           `json:"total_messages_expected"`
	Market                Market        `json:"market"`
	Models                []Participant `json:"models"`
}

// Error is a non-2xx response from the debate server.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("debate server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("debate server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
