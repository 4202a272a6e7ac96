package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultSampleRate is the rate every decoder resamples to.
const DefaultSampleRate = 22050

// ErrDecode is returned when the input is not valid or readable audio.
var ErrDecode = errors.New("decode error")

// errUnsupportedWAV marks RIFF input the in-process decoder cannot handle.
var errUnsupportedWAV = errors.New("unsupported wav encoding")

// Signal is a decoded mono waveform. It is not modified after decoding.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples.
func (s *Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the playback length of the signal.
func (s *Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// Decoder turns an encoded audio stream into a mono Signal.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*Signal, error)
}

// NewDecoder builds the decoder selected by kind: "auto", "ffmpeg" or "wav".
func NewDecoder(kind, ffmpegPath string, sampleRate int, maxSeconds float64) (Decoder, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	ff := NewFFmpegDecoder(ffmpegPath, sampleRate, maxSeconds)
	wav := NewWAVDecoder(sampleRate, maxSeconds)
	switch kind {
	case "", "auto":
		return &AutoDecoder{wav: wav, ffmpeg: ff}, nil
	case "ffmpeg":
		return ff, nil
	case "wav":
		return wav, nil
	default:
		return nil, fmt.Errorf("unknown audio decoder %q", kind)
	}
}

// AutoDecoder decodes RIFF/WAVE input in-process and hands everything else to ffmpeg.
type AutoDecoder struct {
	wav    Decoder
	ffmpeg Decoder
}

// Decode implements Decoder.
func (d *AutoDecoder) Decode(ctx context.Context, r io.Reader) (*Signal, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	if IsWAV(data) {
		sig, err := d.wav.Decode(ctx, bytes.NewReader(data))
		if err == nil || !errors.Is(err, errUnsupportedWAV) {
			return sig, err
		}
		// float or compressed WAV payloads
	}
	return d.ffmpeg.Decode(ctx, bytes.NewReader(data))
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func truncate(samples []float64, sampleRate int, maxSeconds float64) []float64 {
	if maxSeconds <= 0 {
		return samples
	}
	limit := int(maxSeconds * float64(sampleRate))
	if limit > 0 && len(samples) > limit {
		return samples[:limit]
	}
	return samples
}
