// Package api is the HTTP client for the debate server: starting and stopping
// sessions, fetching results and fetching voice clips.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-debate/core/debate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDHeader = "X-Request-ID"

	maxErrorBody = 64 << 10
	maxClipSize  = 32 << 20
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
	header  http.Header
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithHeader adds a header to every request, for example an authorization
// token.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.header.Add(key, value) }
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	client := &Client{
		baseURL: parsed,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		header:  http.Header{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// StartSession starts a debate. When the server does not return a stream
// endpoint, the conventional one for the session is used.
func (c *Client) StartSession(ctx context.Context, req StartRequest) (_ StartResponse, err error) {
	ctx, span := tracer.Start(ctx, "start session", trace.WithAttributes(
		attribute.String("debate.market_id", req.MarketID),
		attribute.Int("debate.rounds", req.Rounds),
		attribute.Int("debate.participants", len(req.ParticipantIDs)),
	))
	defer endSpan(span, &err)

	if err := req.validate(); err != nil {
		return StartResponse{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return StartResponse{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "api/debate/start", body)
	if err != nil {
		return StartResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return StartResponse{}, readError(resp)
	}

	var decoded startResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return StartResponse{}, fmt.Errorf("error decoding start response: %w", err)
	}
	if decoded.DebateID == "" {
		return StartResponse{}, errors.New("start response without session id")
	}

	streamURL := decoded.StreamURL
	if streamURL == "" {
		streamURL = c.StreamURL(decoded.DebateID)
	} else if streamURL, err = c.Resolve(streamURL); err != nil {
		return StartResponse{}, err
	}

	span.SetAttributes(attribute.String("debate.session_id", decoded.DebateID))
	return StartResponse{
		SessionID:     decoded.DebateID,
		StreamURL:     streamURL,
		Status:        decoded.Status,
		TotalRounds:   decoded.Rounds,
		ExpectedTurns: decoded.TotalMessagesExpected,
		Market:        decoded.Market,
		Participants:  decoded.Models,
	}, nil
}

// StopSession asks the server to stop producing turns for a session.
func (c *Client) StopSession(ctx context.Context, sessionID string) (err error) {
	ctx, span := tracer.Start(ctx, "stop session", trace.WithAttributes(attribute.String("debate.session_id", sessionID)))
	defer endSpan(span, &err)

	resp, err := c.do(ctx, http.MethodPost, "api/debate/"+url.PathEscape(sessionID)+"/stop", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readError(resp)
	}
	return nil
}

// FetchResults reads the debate record of a session and returns its summary.
// It returns an error wrapping ErrResultsNotReady while the session is not
// completed or its summary has not been generated.
func (c *Client) FetchResults(ctx context.Context, sessionID string) (_ debate.Results, err error) {
	ctx, span := tracer.Start(ctx, "fetch results", trace.WithAttributes(attribute.String("debate.session_id", sessionID)))
	defer endSpan(span, &err)

	resp, err := c.do(ctx, http.MethodGet, "api/debate/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return debate.Results{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return debate.Results{}, fmt.Errorf("%w: %w", ErrResultsNotReady, readError(resp))
	default:
		return debate.Results{}, readError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return debate.Results{}, fmt.Errorf("error reading debate record: %w", err)
	}

	results, err := debate.DecodeResults(body)
	switch {
	case errors.Is(err, debate.ErrEmptyPayload):
		return debate.Results{}, fmt.Errorf("%w: empty debate record", ErrResultsNotReady)
	case errors.Is(err, debate.ErrResultsPending):
		return debate.Results{}, fmt.Errorf("%w: %w", ErrResultsNotReady, err)
	case err != nil:
		return debate.Results{}, err
	}
	return results, nil
}

// FetchClip downloads a voice clip. ref may be absolute or relative to the
// client's base url.
func (c *Client) FetchClip(ctx context.Context, ref string) (_ []byte, err error) {
	ctx, span := tracer.Start(ctx, "fetch clip")
	defer endSpan(span, &err)

	address, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("clip.url", address))

	resp, err := c.do(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading clip: %w", err)
	}
	if len(data) > maxClipSize {
		return nil, fmt.Errorf("clip larger than %d bytes", maxClipSize)
	}
	return data, nil
}

// Resolve joins a relative reference against the client's base url.
func (c *Client) Resolve(ref string) (string, error) {
	return Resolve(c.baseURL.String(), ref)
}

// StreamURL is the conventional event stream endpoint of a session.
func (c *Client) StreamURL(sessionID string) string {
	return c.baseURL.JoinPath("api", "debate", sessionID, "stream").String()
}

// Resolve joins ref against base. Absolute references are returned as is.
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty reference")
	}

	parsedRef, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	if parsedRef.IsAbs() {
		return parsedRef.String(), nil
	}

	if base == "" {
		return "", fmt.Errorf("relative reference %q without base url", ref)
	}
	parsedBase, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return parsedBase.ResolveReference(parsedRef).String(), nil
}

func (c *Client) do(ctx context.Context, method, ref string, body []byte) (*http.Response, error) {
	address, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, address, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}

	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	logger.Debug("debate server request",
		"method", method,
		"url", address,
		"status", resp.StatusCode,
		"request_id", requestID)
	return resp, nil
}

func readError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode, Message: resp.Status}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	} else if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
