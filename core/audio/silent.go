package audio

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SilentPlayer plays clips without an output device. A clip still downloads
// and decodes, then ends after its decoded duration.
type SilentPlayer struct {
	fetcher Fetcher
}

func NewSilentPlayer(fetcher Fetcher) *SilentPlayer {
	return &SilentPlayer{fetcher: fetcher}
}

func (p *SilentPlayer) Load(ctx context.Context, url string) (Clip, error) {
	pcm, err := LoadPCM(ctx, p.fetcher, url)
	if err != nil {
		return nil, err
	}

	logger.Debug("loaded silent clip", "url", url, "duration", pcm.Duration())
	return &silentClip{duration: pcm.Duration()}, nil
}

type silentClip struct {
	duration time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	completion *Completion
}

func (c *silentClip) Play(onEnded func(), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		return errors.New("clip already playing")
	}

	c.completion = NewCompletion(onEnded, onError)
	c.timer = time.AfterFunc(c.duration, c.completion.End)
	return nil
}

func (c *silentClip) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.completion.Detach()
	c.completion = nil
}
