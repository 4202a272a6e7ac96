package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// WAVDecoder decodes integer PCM WAV files without external processes.
type WAVDecoder struct {
	sampleRate int
	maxSeconds float64
}

// NewWAVDecoder creates a WAVDecoder that resamples to sampleRate.
func NewWAVDecoder(sampleRate int, maxSeconds float64) *WAVDecoder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &WAVDecoder{sampleRate: sampleRate, maxSeconds: maxSeconds}
}

// Decode implements Decoder.
func (d *WAVDecoder) Decode(ctx context.Context, r io.Reader) (*Signal, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read input: %v", ErrDecode, err)
		}
		rs = bytes.NewReader(data)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrDecode)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: %w (format tag %d)", ErrDecode, errUnsupportedWAV, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: read pcm: %v", ErrDecode, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: wav file has no samples", ErrDecode)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %w (bit depth %d)", ErrDecode, errUnsupportedWAV, bitDepth)
	}

	samples := downmix(buf.Data, channels, bitDepth)
	srcRate := buf.Format.SampleRate
	if srcRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrDecode, srcRate)
	}

	if srcRate != d.sampleRate {
		samples, err = resample(samples, srcRate, d.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	samples = truncate(samples, d.sampleRate, d.maxSeconds)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no audio samples decoded", ErrDecode)
	}
	return &Signal{Samples: samples, SampleRate: d.sampleRate}, nil
}

// downmix averages interleaved integer samples into normalised mono floats.
func downmix(data []int, channels, bitDepth int) []float64 {
	frames := len(data) / channels
	out := make([]float64, frames)

	// 8-bit WAV is unsigned
	offset := 0.0
	scale := float64(int64(1) << (bitDepth - 1))
	if bitDepth == 8 {
		offset = 128
		scale = 128
	}

	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(data[i*channels+c]) - offset) / scale
		}
		out[i] = sum / float64(channels)
	}
	return out
}

func resample(samples []float64, from, to int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	out, err := rs.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	return out, nil
}
