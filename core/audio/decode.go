package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

var ErrUnsupportedFormat = errors.New("unsupported clip format")

// PCM is a decoded clip ready to be written to an output device.
type PCM struct {
	Info EncodingInfo
	Data []byte
}

func (p PCM) Duration() time.Duration {
	return p.Info.Duration(len(p.Data))
}

// Decode sniffs the container and decodes a clip to interleaved PCM. MP3
// and 16-bit PCM WAV are supported.
func Decode(data []byte) (pcm PCM, err error) {
	switch {
	case isWAV(data):
		pcm, err = decodeWAV(data)
	case isMP3(data):
		pcm, err = decodeMP3(data)
	default:
		return PCM{}, ErrUnsupportedFormat
	}
	if err == nil && pcm.Info.IsZero() {
		return PCM{}, fmt.Errorf("%w: missing sample rate or channel count", ErrUnsupportedFormat)
	}
	return pcm, err
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeMP3(data []byte) (PCM, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return PCM{}, fmt.Errorf("failed to decode mp3: %w", err)
	}

	// go-mp3 always produces 16-bit little endian stereo.
	return PCM{
		Info: EncodingInfo{SampleRate: decoder.SampleRate(), Channels: 2, Format: EncodingLinear16},
		Data: pcm,
	}, nil
}

type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

const wavFormatPCM = 1

func decodeWAV(data []byte) (PCM, error) {
	var (
		format    *wavFormat
		remaining = data[12:]
	)

	for len(remaining) >= 8 {
		id := string(remaining[0:4])
		size := int(binary.LittleEndian.Uint32(remaining[4:8]))
		body := remaining[8:]
		if size > len(body) {
			// Streamed WAV files may carry a placeholder size on the data chunk.
			size = len(body)
		}

		switch id {
		case "fmt ":
			format = &wavFormat{}
			if err := binary.Read(bytes.NewReader(body[:size]), binary.LittleEndian, format); err != nil {
				return PCM{}, fmt.Errorf("%w: invalid fmt chunk: %v", ErrUnsupportedFormat, err)
			}
		case "data":
			if format == nil {
				return PCM{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedFormat)
			}
			if format.AudioFormat != wavFormatPCM || format.BitsPerSample != 16 {
				return PCM{}, fmt.Errorf("%w: wav format %d with %d bits per sample",
					ErrUnsupportedFormat, format.AudioFormat, format.BitsPerSample)
			}
			info := EncodingInfo{SampleRate: int(format.SampleRate), Channels: int(format.Channels), Format: EncodingLinear16}
			pcm := body[:size]
			if frameSize := info.BytesPerFrame(); frameSize > 0 {
				pcm = pcm[:len(pcm)-len(pcm)%frameSize]
			}
			return PCM{Info: info, Data: append([]byte(nil), pcm...)}, nil
		}

		// Chunks are word aligned.
		next := size + size%2
		if next > len(body) {
			break
		}
		remaining = body[next:]
	}

	return PCM{}, fmt.Errorf("%w: wav without data chunk", ErrUnsupportedFormat)
}
