package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestStartSessionPostsRequestAndDerivesStreamURL(t *testing.T) {
	requests := make(chan StartRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/debate/start" {
			t.Errorf("expected POST /api/debate/start, got %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(requestIDHeader) == "" {
			t.Errorf("expected request id header")
		}
		var received StartRequest
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("expected JSON body, got %v", err)
		}
		requests <- received
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{
			"debate_id": "d-42",
			"status": "created",
			"rounds": 3,
			"total_messages_expected": 9,
			"market": {"id": "m1", "question": "Will it rain?"},
			"models": [{"model_id": "a", "model_name": "A"}]
		}`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	resp, err := client.StartSession(context.Background(), StartRequest{MarketID: "m1", ParticipantIDs: []string{"a", "b"}, Rounds: 3})
	if err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	received := <-requests
	if received.MarketID != "m1" || len(received.ParticipantIDs) != 2 || received.Rounds != 3 {
		t.Fatalf("expected request to be forwarded, got %+v", received)
	}
	if resp.SessionID != "d-42" {
		t.Fatalf("expected session d-42, got %q", resp.SessionID)
	}
	if expected := server.URL + "/api/debate/d-42/stream"; resp.StreamURL != expected {
		t.Fatalf("expected stream url %q, got %q", expected, resp.StreamURL)
	}
	if resp.TotalRounds != 3 || resp.ExpectedTurns != 9 {
		t.Fatalf("expected totals 3/9, got %d/%d", resp.TotalRounds, resp.ExpectedTurns)
	}
	if resp.Market.Question != "Will it rain?" || len(resp.Participants) != 1 {
		t.Fatalf("expected market and participants, got %+v", resp)
	}
}

func TestStartSessionResolvesRelativeStreamURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"debate_id": "d1", "stream_url": "/events/d1"}`)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	resp, err := client.StartSession(context.Background(), StartRequest{MarketID: "m1", ParticipantIDs: []string{"a"}, Rounds: 1})
	if err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if expected := server.URL + "/events/d1"; resp.StreamURL != expected {
		t.Fatalf("expected stream url %q, got %q", expected, resp.StreamURL)
	}
}

func TestStartSessionValidatesLocally(t *testing.T) {
	client, _ := NewClient("http://localhost:1")

	_, err := client.StartSession(context.Background(), StartRequest{MarketID: "m1", Rounds: 1})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestStartSessionSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"code": "invalid_request", "message": "Rounds must be between 1 and 5"}}`)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	_, err := client.StartSession(context.Background(), StartRequest{MarketID: "m1", ParticipantIDs: []string{"a"}, Rounds: 9})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected server error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "invalid_request" {
		t.Fatalf("expected 400 invalid_request, got %d %q", apiErr.StatusCode, apiErr.Code)
	}
}

func TestFetchResultsNotReady(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "unknown debate", status: http.StatusNotFound, body: `{"error": {"code": "debate_not_found", "message": "Debate d1 not found"}}`},
		{name: "still running", status: http.StatusOK, body: `{"debate_id": "d1", "status": "in_progress", "final_summary": null}`},
		{name: "summary not generated", status: http.StatusOK, body: `{"debate_id": "d1", "status": "completed", "final_summary": null, "final_predictions": null}`},
		{name: "empty record", status: http.StatusOK, body: `{}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			client, _ := NewClient(server.URL)
			_, err := client.FetchResults(context.Background(), "d1")
			if !errors.Is(err, ErrResultsNotReady) {
				t.Fatalf("expected results not ready, got %v", err)
			}
		})
	}
}

func TestFetchResultsReadsDebateRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/debate/d1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{
			"debate_id": "d1",
			"status": "completed",
			"market_question": "Will it rain?",
			"messages": [],
			"final_summary": {
				"overall": "Split decision",
				"agreements": ["Forecasts disagree"],
				"disagreements": [{"topic": "Models", "positions": {"GPT": "wet", "Claude": "dry"}}],
				"consensus": "",
				"model_rationales": [{"model": "GPT", "final_prediction": {"Yes": 60, "No": 40}, "rationale": "Radar", "key_arguments": ["front"]}]
			},
			"final_predictions": {
				"beta": {"Yes": 45, "No": 55},
				"alpha": {"Yes": 55, "No": 45}
			}
		}`)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	results, err := client.FetchResults(context.Background(), "d1")
	if err != nil {
		t.Fatalf("expected results, got %v", err)
	}
	if results.Overall != "Split decision" || results.HasConsensus() {
		t.Fatalf("expected overall without consensus, got %+v", results)
	}
	if len(results.Disagreements) != 1 || len(results.Rationales) != 1 {
		t.Fatalf("expected summary details to be kept, got %+v", results)
	}
	if len(results.FinalPredictions) != 2 {
		t.Fatalf("expected 2 final predictions, got %+v", results.FinalPredictions)
	}
	first := results.FinalPredictions[0]
	if first.SpeakerID != "alpha" || first.Predictions["Yes"] != 55 {
		t.Fatalf("expected alpha first with 55%% Yes, got %+v", first)
	}
}

func TestFetchResultsServerFailureIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	_, err := client.FetchResults(context.Background(), "d1")
	if err == nil || errors.Is(err, ErrResultsNotReady) {
		t.Fatalf("expected plain server error, got %v", err)
	}
}

func TestStopSessionAndFetchClip(t *testing.T) {
	stopped := atomic.Bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/debate/d1/stop":
			stopped.Store(r.Method == http.MethodPost)
		case "/api/audio/m1.mp3":
			w.Write([]byte("clip"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	if err := client.StopSession(context.Background(), "d1"); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if !stopped.Load() {
		t.Fatalf("expected stop request to reach the server")
	}

	data, err := client.FetchClip(context.Background(), "/api/audio/m1.mp3")
	if err != nil {
		t.Fatalf("expected clip, got %v", err)
	}
	if string(data) != "clip" {
		t.Fatalf("expected clip bytes, got %q", data)
	}
}

func TestStopSessionWithoutStopRoute(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client, _ := NewClient(server.URL)
	err := client.StopSession(context.Background(), "d1")

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 server error, got %v", err)
	}
	if errors.Is(err, ErrResultsNotReady) {
		t.Fatalf("expected stop failure to stay a plain server error, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		base     string
		ref      string
		expected string
		fails    bool
	}{
		{base: "http://host/base", ref: "/api/audio/x.mp3", expected: "http://host/api/audio/x.mp3"},
		{base: "http://host/base", ref: "audio/x.mp3", expected: "http://host/base/audio/x.mp3"},
		{base: "http://host/base/", ref: "https://cdn/x.mp3", expected: "https://cdn/x.mp3"},
		{base: "", ref: "https://cdn/x.mp3", expected: "https://cdn/x.mp3"},
		{base: "", ref: "x.mp3", fails: true},
		{base: "http://host", ref: "  ", fails: true},
	}

	for _, testCase := range testCases {
		got, err := Resolve(testCase.base, testCase.ref)
		if testCase.fails {
			if err == nil {
				t.Fatalf("expected %q against %q to fail, got %q", testCase.ref, testCase.base, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("expected %q to resolve, got %v", testCase.ref, err)
		}
		if got != testCase.expected {
			t.Fatalf("expected %q, got %q", testCase.expected, got)
		}
	}
}
