package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrAutoplayBlocked is returned by Clip.Play when the host refuses to start
// audio output, for example when no output device can be opened.
var ErrAutoplayBlocked = errors.New("audio playback blocked")

// ClipPlayer acquires playable voice clips.
type ClipPlayer interface {
	Load(ctx context.Context, url string) (Clip, error)
}

// Clip is one loaded voice clip.
//
// Play starts playback and returns immediately. Exactly one of onEnded or
// onError is called later, from any goroutine, unless Stop was called first.
// Stop halts playback, rewinds and detaches both callbacks. Stop is safe to
// call more than once.
type Clip interface {
	Play(onEnded func(), onError func(error)) error
	Stop()
}

// Fetcher downloads clip bytes.
type Fetcher interface {
	FetchClip(ctx context.Context, url string) ([]byte, error)
}

// LoadPCM downloads and decodes a clip.
func LoadPCM(ctx context.Context, fetcher Fetcher, url string) (PCM, error) {
	ctx, span := tracer.Start(ctx, "load clip")
	defer span.End()
	span.SetAttributes(attribute.String("clip.url", url))

	data, err := fetcher.FetchClip(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return PCM{}, fmt.Errorf("failed to fetch clip: %w", err)
	}

	pcm, err := Decode(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return PCM{}, err
	}

	span.SetAttributes(
		attribute.Int("clip.sample_rate", pcm.Info.SampleRate),
		attribute.Int("clip.channels", pcm.Info.Channels),
		attribute.Int64("clip.duration_ms", pcm.Duration().Milliseconds()),
	)
	return pcm, nil
}

// Completion delivers at most one of the clip callbacks. Detach drops
// whatever has not been delivered yet.
type Completion struct {
	mu      sync.Mutex
	onEnded func()
	onError func(error)
	done    bool
}

func NewCompletion(onEnded func(), onError func(error)) *Completion {
	return &Completion{onEnded: onEnded, onError: onError}
}

func (c *Completion) End() {
	if callback := c.take(); callback != nil && callback.onEnded != nil {
		callback.onEnded()
	}
}

func (c *Completion) Fail(err error) {
	if callback := c.take(); callback != nil && callback.onError != nil {
		callback.onError(err)
	}
}

func (c *Completion) Detach() {
	_ = c.take()
}

type callbacks struct {
	onEnded func()
	onError func(error)
}

func (c *Completion) take() *callbacks {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return nil
	}
	c.done = true
	taken := &callbacks{onEnded: c.onEnded, onError: c.onError}
	c.onEnded, c.onError = nil, nil
	return taken
}

// Cursor hands a PCM buffer out in device sized chunks.
type Cursor struct {
	mu      sync.Mutex
	pcm     PCM
	pos     int
	silence byte
}

func NewCursor(pcm PCM) *Cursor {
	return &Cursor{pcm: pcm, silence: pcm.Info.SilenceValue()}
}

// Fill copies the next chunk into out, pads the rest with silence and
// reports whether the buffer is drained.
func (c *Cursor) Fill(out []byte) (drained bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := copy(out, c.pcm.Data[c.pos:])
	c.pos += n
	for i := n; i < len(out); i++ {
		out[i] = c.silence
	}
	return c.pos >= len(c.pcm.Data)
}

func (c *Cursor) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = 0
}

func (c *Cursor) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}
