package audio

import "time"

type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Channels == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

// BytesPerFrame is the size of one sample across all channels, or zero for
// unknown formats.
func (e EncodingInfo) BytesPerFrame() int {
	size := e.Format.ByteSize()
	if size <= 0 || e.Channels <= 0 {
		return 0
	}
	return size * e.Channels
}

// Duration is the playback length of n bytes in this encoding.
func (e EncodingInfo) Duration(n int) time.Duration {
	frameSize := e.BytesPerFrame()
	if frameSize == 0 || e.SampleRate <= 0 {
		return 0
	}
	frames := n / frameSize
	return time.Duration(frames) * time.Second / time.Duration(e.SampleRate)
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
