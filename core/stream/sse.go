package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	eventPrefix = "event:"
	dataPrefix  = "data:"
	idPrefix    = "id:"

	maxFrameSize = 1 << 20
)

// SSETransport reads server-sent events over HTTP.
type SSETransport struct {
	client *http.Client
	header http.Header
}

type SSEOption func(*SSETransport)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) SSEOption {
	return func(t *SSETransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithHeader adds a header to every stream request.
func WithHeader(key, value string) SSEOption {
	return func(t *SSETransport) { t.header.Add(key, value) }
}

func NewSSETransport(opts ...SSEOption) *SSETransport {
	transport := &SSETransport{
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "sse " + r.URL.Path
			}),
		)},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(transport)
	}
	return transport
}

func (t *SSETransport) Dial(ctx context.Context, endpoint string) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	for key, values := range t.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrStillConnecting, resp.Status)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &sseConn{body: resp.Body, scanner: scanner}, nil
}

type sseConn struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Next reads lines until a blank line dispatches a frame with data. Comment
// lines, such as keepalives, and data-less blocks are skipped.
func (c *sseConn) Next(_ context.Context) (Frame, error) {
	var (
		frame Frame
		data  []string
	)

	for c.scanner.Scan() {
		line := strings.TrimSuffix(c.scanner.Text(), "\r")

		switch {
		case line == "":
			if len(data) == 0 {
				frame = Frame{}
				continue
			}
			frame.Data = []byte(strings.Join(data, "\n"))
			if frame.Event == "" {
				frame.Event = "message"
			}
			return frame, nil

		case strings.HasPrefix(line, ":"):
			continue

		case strings.HasPrefix(line, eventPrefix):
			frame.Event = fieldValue(line, eventPrefix)

		case strings.HasPrefix(line, dataPrefix):
			data = append(data, fieldValue(line, dataPrefix))

		case strings.HasPrefix(line, idPrefix):
			frame.ID = fieldValue(line, idPrefix)
		}
	}

	if err := c.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("error reading event stream: %w", err)
	}
	return Frame{}, io.EOF
}

func (c *sseConn) Close() error {
	return c.body.Close()
}

func fieldValue(line, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, prefix), " ")
}
