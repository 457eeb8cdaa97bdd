// Package config loads debatecast settings from defaults, an optional config
// file and DEBATE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	orchestration "github.com/koscakluka/ema-debate/core"
	"github.com/koscakluka/ema-debate/core/stream"
	"github.com/spf13/viper"
)

const EnvPrefix = "DEBATE"

type Config struct {
	API struct {
		BaseURL        string
		AudioBaseURL   string
		Transport      string
		RequestTimeout time.Duration
	}
	Playback struct {
		Player             string
		BufferSize         int
		SettleDelay        time.Duration
		LoadDelay          time.Duration
		StartDelay         time.Duration
		FailureGrace       time.Duration
		Timeout            time.Duration
		FallbackCheckDelay time.Duration
	}
	Results struct {
		Attempts int
		Backoff  time.Duration
	}
	Stream struct {
		ConnectionErrorWindow     time.Duration
		ConnectionErrorThreshold  int
		ApplicationErrorWindow    time.Duration
		ApplicationErrorThreshold int
		ReconnectDelay            time.Duration
	}
	Log struct {
		Level string
		File  string
	}
	Metrics struct {
		Addr string
	}
}

// SetDefaults registers every key with its default so environment variables
// and config files can override any of them.
func SetDefaults(v *viper.Viper) {
	timing := orchestration.DefaultTiming()
	policy := stream.DefaultPolicy()

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.audio_base_url", "")
	v.SetDefault("api.transport", "sse")
	v.SetDefault("api.request_timeout", 30*time.Second)

	v.SetDefault("playback.player", "miniaudio")
	v.SetDefault("playback.buffer_size", 1024)
	v.SetDefault("playback.settle_delay", timing.SettleDelay)
	v.SetDefault("playback.load_delay", timing.LoadDelay)
	v.SetDefault("playback.start_delay", timing.StartDelay)
	v.SetDefault("playback.failure_grace", timing.FailureGrace)
	v.SetDefault("playback.timeout", timing.PlaybackTimeout)
	v.SetDefault("playback.fallback_check_delay", timing.FallbackCheckDelay)

	v.SetDefault("results.attempts", timing.ResultAttempts)
	v.SetDefault("results.backoff", timing.ResultBackoff)

	v.SetDefault("stream.connection_error_window", policy.ConnectionErrorWindow)
	v.SetDefault("stream.connection_error_threshold", policy.ConnectionErrorThreshold)
	v.SetDefault("stream.application_error_window", policy.ApplicationErrorWindow)
	v.SetDefault("stream.application_error_threshold", policy.ApplicationErrorThreshold)
	v.SetDefault("stream.reconnect_delay", policy.ReconnectDelay)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
}

// BindEnv maps nested keys to DEBATE_* variables, e.g. DEBATE_API_URL for
// api.base_url and DEBATE_PLAYBACK_SETTLE_DELAY for playback.settle_delay.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("api.base_url", "DEBATE_API_URL")
	_ = v.BindEnv("api.audio_base_url", "DEBATE_AUDIO_BASE_URL")
	_ = v.BindEnv("log.level", "DEBATE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("metrics.addr", "DEBATE_METRICS_ADDR")
}

func Load(v *viper.Viper) (Config, error) {
	var c Config
	c.API.BaseURL = strings.TrimRight(v.GetString("api.base_url"), "/")
	c.API.AudioBaseURL = v.GetString("api.audio_base_url")
	if c.API.AudioBaseURL == "" {
		c.API.AudioBaseURL = c.API.BaseURL
	}
	c.API.Transport = strings.ToLower(v.GetString("api.transport"))
	c.API.RequestTimeout = v.GetDuration("api.request_timeout")

	c.Playback.Player = strings.ToLower(v.GetString("playback.player"))
	c.Playback.BufferSize = v.GetInt("playback.buffer_size")
	c.Playback.SettleDelay = v.GetDuration("playback.settle_delay")
	c.Playback.LoadDelay = v.GetDuration("playback.load_delay")
	c.Playback.StartDelay = v.GetDuration("playback.start_delay")
	c.Playback.FailureGrace = v.GetDuration("playback.failure_grace")
	c.Playback.Timeout = v.GetDuration("playback.timeout")
	c.Playback.FallbackCheckDelay = v.GetDuration("playback.fallback_check_delay")

	c.Results.Attempts = v.GetInt("results.attempts")
	c.Results.Backoff = v.GetDuration("results.backoff")

	c.Stream.ConnectionErrorWindow = v.GetDuration("stream.connection_error_window")
	c.Stream.ConnectionErrorThreshold = v.GetInt("stream.connection_error_threshold")
	c.Stream.ApplicationErrorWindow = v.GetDuration("stream.application_error_window")
	c.Stream.ApplicationErrorThreshold = v.GetInt("stream.application_error_threshold")
	c.Stream.ReconnectDelay = v.GetDuration("stream.reconnect_delay")

	c.Log.Level = v.GetString("log.level")
	c.Log.File = v.GetString("log.file")
	c.Metrics.Addr = v.GetString("metrics.addr")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.API.Transport {
	case "sse", "websocket":
	default:
		return fmt.Errorf("unknown transport %q, expected sse or websocket", c.API.Transport)
	}
	switch c.Playback.Player {
	case "miniaudio", "portaudio", "silent", "none":
	default:
		return fmt.Errorf("unknown player %q, expected miniaudio, portaudio, silent or none", c.Playback.Player)
	}
	if c.Results.Attempts < 1 {
		return fmt.Errorf("results.attempts must be at least 1, got %d", c.Results.Attempts)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func (c Config) Timing() orchestration.Timing {
	return orchestration.Timing{
		SettleDelay:        c.Playback.SettleDelay,
		LoadDelay:          c.Playback.LoadDelay,
		StartDelay:         c.Playback.StartDelay,
		FailureGrace:       c.Playback.FailureGrace,
		PlaybackTimeout:    c.Playback.Timeout,
		FallbackCheckDelay: c.Playback.FallbackCheckDelay,
		ResultAttempts:     c.Results.Attempts,
		ResultBackoff:      c.Results.Backoff,
	}
}

func (c Config) StreamPolicy() stream.Policy {
	policy := stream.DefaultPolicy()
	policy.ConnectionErrorWindow = c.Stream.ConnectionErrorWindow
	policy.ConnectionErrorThreshold = c.Stream.ConnectionErrorThreshold
	policy.ApplicationErrorWindow = c.Stream.ApplicationErrorWindow
	policy.ApplicationErrorThreshold = c.Stream.ApplicationErrorThreshold
	policy.ReconnectDelay = c.Stream.ReconnectDelay
	return policy
}

func (c Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return level, nil
}
