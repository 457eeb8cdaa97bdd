package cmd

import (
	"log/slog"
	"net/http"

	"github.com/koscakluka/ema-debate/core/api"
	"github.com/koscakluka/ema-debate/core/audio"
	"github.com/koscakluka/ema-debate/core/audio/miniaudio"
	"github.com/koscakluka/ema-debate/core/audio/portaudio"
	"github.com/koscakluka/ema-debate/core/stream"
	"github.com/koscakluka/ema-debate/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newAPIClient(cfg config.Config) (*api.Client, error) {
	return api.NewClient(cfg.API.BaseURL, api.WithHTTPClient(&http.Client{
		Timeout:   cfg.API.RequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
}

// newClipPlayer opens the configured audio backend. When the device cannot be
// opened playback falls back to the silent player so turns keep their pacing.
func newClipPlayer(cfg config.Config, fetcher audio.Fetcher, logger *slog.Logger) (audio.ClipPlayer, func()) {
	switch cfg.Playback.Player {
	case "miniaudio":
		player, err := miniaudio.NewPlayer(fetcher)
		if err == nil {
			return player, player.Close
		}
		logger.Warn("miniaudio unavailable, falling back to silent playback", "error", err)
	case "portaudio":
		player, err := portaudio.NewPlayer(fetcher, cfg.Playback.BufferSize)
		if err == nil {
			return player, player.Close
		}
		logger.Warn("portaudio unavailable, falling back to silent playback", "error", err)
	case "none":
		return nil, func() {}
	}
	return audio.NewSilentPlayer(fetcher), func() {}
}

func newTransport(cfg config.Config) stream.Transport {
	if cfg.API.Transport == "websocket" {
		return stream.NewWebSocketTransport(nil)
	}
	return stream.NewSSETransport()
}
