package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-debate/core/audio"
)

// Player plays voice clips on the default output device through miniaudio.
type Player struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	fetcher      audio.Fetcher
}

func NewPlayer(fetcher audio.Fetcher) (*Player, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("malgo InitContext failed: %w", err)
	}

	return &Player{audioContext: audioCtx, fetcher: fetcher}, nil
}

// Load downloads and decodes a clip. The output device is only opened when
// the clip starts playing.
func (p *Player) Load(ctx context.Context, url string) (audio.Clip, error) {
	pcm, err := audio.LoadPCM(ctx, p.fetcher, url)
	if err != nil {
		return nil, err
	}

	return &clip{
		audioContext: p.audioContext,
		info:         pcm.Info,
		cursor:       audio.NewCursor(pcm),
	}, nil
}

func (p *Player) Close() {
	_ = p.audioContext.Uninit()
	p.audioContext.Free()
}
