package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-debate/core/audio"
)

type clip struct {
	audioContext *malgo.AllocatedContext
	info         audio.EncodingInfo
	cursor       *audio.Cursor

	mu         sync.Mutex
	device     *malgo.Device
	completion *audio.Completion
}

func (c *clip) Play(onEnded func(), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return errors.New("clip already playing")
	}

	format := malgo.FormatS16
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(c.info.SampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(c.info.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = config.SampleRate / 10 // ~100ms of audio
	config.Periods = 4

	completion := audio.NewCompletion(onEnded, onError)
	var drained sync.Once

	device, err := malgo.InitDevice(
		c.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: func(pOutput, _ []byte, _ uint32) {
			if c.cursor.Fill(pOutput) {
				// The device cannot be released from its own callback.
				drained.Do(func() { go c.finish(completion) })
			}
		}},
	)
	if err != nil {
		return fmt.Errorf("%w: failed to open playback device: %v", audio.ErrAutoplayBlocked, err)
	}

	c.device = device
	c.completion = completion
	if err := device.Start(); err != nil {
		c.release()
		return fmt.Errorf("%w: failed to start playback device: %v", audio.ErrAutoplayBlocked, err)
	}

	return nil
}

func (c *clip) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.release()
	c.cursor.Rewind()
}

func (c *clip) finish(completion *audio.Completion) {
	c.mu.Lock()
	if c.completion != completion {
		// Stopped before the end was reported.
		c.mu.Unlock()
		return
	}
	c.completion = nil
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.mu.Unlock()

	completion.End()
}

func (c *clip) release() {
	c.completion.Detach()
	c.completion = nil

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
}
