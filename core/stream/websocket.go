package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport reads events from a websocket where every text message
// is an envelope {"event": "...", "data": {...}}.
type WebSocketTransport struct {
	dialer *websocket.Dialer
	header http.Header
}

func NewWebSocketTransport(header http.Header) *WebSocketTransport {
	if header == nil {
		header = http.Header{}
	}
	return &WebSocketTransport{dialer: websocket.DefaultDialer, header: header}
}

func (t *WebSocketTransport) Dial(ctx context.Context, endpoint string) (Conn, error) {
	wsURL, err := toWebSocketURL(endpoint)
	if err != nil {
		return nil, err
	}

	conn, resp, err := t.dialer.DialContext(ctx, wsURL, t.header)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return nil, fmt.Errorf("%w: %s", ErrStillConnecting, resp.Status)
			}
		}
		return nil, fmt.Errorf("failed to open socket connection: %w", err)
	}

	return &webSocketConn{ws: conn}, nil
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	ID    string          `json:"id,omitempty"`
}

type webSocketConn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
}

func (c *webSocketConn) Next(_ context.Context) (Frame, error) {
	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return Frame{}, io.EOF
			}
			return Frame{}, fmt.Errorf("websocket read error: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var parsed envelope
		if err := json.Unmarshal(msg, &parsed); err != nil {
			// Dropped by Classify as an unknown event.
			return Frame{Data: msg}, nil
		}
		return Frame{Event: parsed.Event, Data: parsed.Data, ID: parsed.ID}, nil
	}
}

func (c *webSocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func toWebSocketURL(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid stream endpoint %q: %w", endpoint, err)
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported stream endpoint scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}
