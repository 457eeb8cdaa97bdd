package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-debate/core/audio"
)

// Player plays voice clips through PortAudio's default output stream.
type Player struct {
	fetcher    audio.Fetcher
	bufferSize int
}

func NewPlayer(fetcher audio.Fetcher, bufferSize int) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	return &Player{fetcher: fetcher, bufferSize: bufferSize}, nil
}

func (p *Player) Load(ctx context.Context, url string) (audio.Clip, error) {
	pcm, err := audio.LoadPCM(ctx, p.fetcher, url)
	if err != nil {
		return nil, err
	}

	return &clip{
		info:       pcm.Info,
		cursor:     audio.NewCursor(pcm),
		bufferSize: p.bufferSize,
	}, nil
}

func (p *Player) Close() {
	if err := portaudio.Terminate(); err != nil {
		logger.Debug("failed to terminate PortAudio", "error", err)
	}
}

type clip struct {
	info       audio.EncodingInfo
	cursor     *audio.Cursor
	bufferSize int

	mu         sync.Mutex
	completion *audio.Completion
	stop       chan struct{}
	done       chan struct{}
}

func (c *clip) Play(onEnded func(), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return errors.New("clip already playing")
	}

	out := make([]int16, c.bufferSize*c.info.Channels)
	stream, err := portaudio.OpenDefaultStream(0, c.info.Channels, float64(c.info.SampleRate), c.bufferSize, out)
	if err != nil {
		return fmt.Errorf("%w: failed to open PortAudio stream: %v", audio.ErrAutoplayBlocked, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: failed to start PortAudio stream: %v", audio.ErrAutoplayBlocked, err)
	}

	c.completion = audio.NewCompletion(onEnded, onError)
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func(completion *audio.Completion, stop, done chan struct{}) {
		ended, err := c.pump(stream, out, stop)
		close(done)

		switch {
		case err != nil:
			completion.Fail(err)
		case ended:
			completion.End()
		}
	}(c.completion, c.stop, c.done)
	return nil
}

// pump owns the stream until the clip drains, fails or is stopped. The
// outcome is reported after the stream is released.
func (c *clip) pump(stream *portaudio.Stream, out []int16, stop chan struct{}) (ended bool, err error) {
	defer func() {
		_ = stream.Stop()
		_ = stream.Close()
	}()

	buffer := make([]byte, len(out)*2)
	for {
		select {
		case <-stop:
			return false, nil
		default:
		}

		drained := c.cursor.Fill(buffer)
		if err := binary.Read(bytes.NewReader(buffer), binary.LittleEndian, out); err != nil {
			return false, err
		}
		if err := stream.Write(); err != nil {
			return false, fmt.Errorf("failed to write to PortAudio stream: %w", err)
		}
		if drained {
			return true, nil
		}
	}
}

func (c *clip) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.completion.Detach()
	c.completion = nil
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	c.cursor.Rewind()
}
