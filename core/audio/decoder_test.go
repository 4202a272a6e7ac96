package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os/exec"
	"strings"
	"testing"
	"time"

	"GenreFM/internal/testsupport"
)

func TestWAVDecoderMono(t *testing.T) {
	raw := testsupport.WAV(t, testsupport.Sine(440, 1, 22050, 0.5), 22050)

	sig, err := NewWAVDecoder(22050, 0).Decode(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.SampleRate != 22050 {
		t.Fatalf("unexpected sample rate %d", sig.SampleRate)
	}
	if sig.Len() != 22050 {
		t.Fatalf("expected 22050 samples, got %d", sig.Len())
	}
	if d := sig.Duration(); d != time.Second {
		t.Fatalf("expected 1s, got %v", d)
	}
	peak := 0.0
	for _, s := range sig.Samples {
		peak = math.Max(peak, math.Abs(s))
	}
	if math.Abs(peak-0.5) > 0.01 {
		t.Fatalf("expected peak ~0.5, got %f", peak)
	}
}

func TestWAVDecoderDownmixesStereo(t *testing.T) {
	left := testsupport.Sine(440, 0.5, 22050, 0.8)
	right := make([]float64, len(left))
	raw := testsupport.WAVChannels(t, [][]float64{left, right}, 22050)

	sig, err := NewWAVDecoder(22050, 0).Decode(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := 0; i < 200; i++ {
		if math.Abs(sig.Samples[i]-left[i]/2) > 1e-3 {
			t.Fatalf("sample %d: got %f want %f", i, sig.Samples[i], left[i]/2)
		}
	}
}

func TestWAVDecoderTruncates(t *testing.T) {
	raw := testsupport.WAV(t, testsupport.Sine(220, 2, 22050, 0.5), 22050)
	sig, err := NewWAVDecoder(22050, 0.5).Decode(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.Len() != 11025 {
		t.Fatalf("expected 11025 samples after cap, got %d", sig.Len())
	}
}

func TestWAVDecoderRejectsGarbage(t *testing.T) {
	_, err := NewWAVDecoder(22050, 0).Decode(context.Background(), strings.NewReader("definitely not audio"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestIsWAV(t *testing.T) {
	raw := testsupport.WAV(t, testsupport.Sine(440, 0.01, 22050, 0.5), 22050)
	if !IsWAV(raw) {
		t.Fatal("expected generated fixture to sniff as wav")
	}
	if IsWAV([]byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00")) {
		t.Fatal("mp3 header sniffed as wav")
	}
	if IsWAV(nil) {
		t.Fatal("nil sniffed as wav")
	}
}

type stubDecoder struct {
	calls int
	sig   *Signal
	err   error
}

func (s *stubDecoder) Decode(ctx context.Context, r io.Reader) (*Signal, error) {
	s.calls++
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return s.sig, s.err
}

func TestAutoDecoderRouting(t *testing.T) {
	wavRaw := testsupport.WAV(t, testsupport.Sine(440, 0.1, 22050, 0.5), 22050)

	tests := []struct {
		name       string
		input      []byte
		wavErr     error
		wantWAV    int
		wantFFmpeg int
		wantErr    error
	}{
		{name: "wav goes in-process", input: wavRaw, wantWAV: 1},
		{name: "other formats go to ffmpeg", input: []byte("OggS........"), wantFFmpeg: 1},
		{name: "unsupported wav falls back", input: wavRaw, wavErr: errUnsupportedWAV, wantWAV: 1, wantFFmpeg: 1},
		{name: "broken wav does not fall back", input: wavRaw, wavErr: ErrDecode, wantWAV: 1, wantErr: ErrDecode},
		{name: "empty input", input: nil, wantErr: ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &stubDecoder{sig: &Signal{SampleRate: 22050}, err: tt.wavErr}
			f := &stubDecoder{sig: &Signal{SampleRate: 22050}}
			d := &AutoDecoder{wav: w, ffmpeg: f}

			_, err := d.Decode(context.Background(), bytes.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.calls != tt.wantWAV || f.calls != tt.wantFFmpeg {
				t.Fatalf("calls wav=%d ffmpeg=%d, want %d/%d", w.calls, f.calls, tt.wantWAV, tt.wantFFmpeg)
			}
		})
	}
}

func TestNewDecoderKinds(t *testing.T) {
	for _, kind := range []string{"", "auto", "ffmpeg", "wav"} {
		if _, err := NewDecoder(kind, "ffmpeg", 22050, 0); err != nil {
			t.Fatalf("kind %q: %v", kind, err)
		}
	}
	if _, err := NewDecoder("sox", "ffmpeg", 22050, 0); err == nil {
		t.Fatal("expected error for unknown decoder")
	}
}

func TestParseFloat32LE(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xbf} // 1.0, -0.5
	got, err := parseFloat32LE(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[0] != 1.0 || got[1] != -0.5 {
		t.Fatalf("unexpected samples %v", got)
	}
	if _, err := parseFloat32LE([]byte{1, 2}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for short input, got %v", err)
	}
}

func TestParseProbe(t *testing.T) {
	raw := []byte(`{"streams":[{"codec_name":"mp3","sample_rate":"44100","channels":2}],"format":{"duration":"215.3","format_name":"mp3"}}`)
	info, err := parseProbe(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.Codec != "mp3" || info.SampleRate != 44100 || info.Channels != 2 || info.Duration != 215.3 {
		t.Fatalf("unexpected probe info %+v", info)
	}
	if _, err := parseProbe([]byte(`{"streams":[]}`)); err == nil {
		t.Fatal("expected error without audio streams")
	}
}

func TestFFmpegDecoderRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	raw := testsupport.WAV(t, testsupport.Sine(440, 1, 44100, 0.5), 44100)

	sig, err := NewFFmpegDecoder("ffmpeg", 22050, 0).Decode(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.SampleRate != 22050 {
		t.Fatalf("unexpected rate %d", sig.SampleRate)
	}
	if math.Abs(float64(sig.Len())-22050) > 100 {
		t.Fatalf("expected ~22050 samples, got %d", sig.Len())
	}
}

func TestFFmpegDecoderRejectsGarbage(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	_, err := NewFFmpegDecoder("ffmpeg", 22050, 0).Decode(context.Background(), strings.NewReader("not audio at all"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
