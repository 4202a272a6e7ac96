// Package testsupport generates audio fixtures for tests.
package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sine returns seconds of a sine wave at freq Hz.
func Sine(freq, seconds float64, sampleRate int, amplitude float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// ClickTrack returns short decaying 1 kHz bursts spaced at the given tempo.
func ClickTrack(bpm, seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	period := 60.0 / bpm * float64(sampleRate)
	clickLen := sampleRate / 100 // 10 ms
	for beat := 0.0; ; beat++ {
		start := int(math.Round(beat * period))
		if start >= n {
			break
		}
		for i := 0; i < clickLen && start+i < n; i++ {
			env := math.Exp(-float64(i) / float64(clickLen) * 5)
			out[start+i] = 0.9 * env * math.Sin(2*math.Pi*1000*float64(i)/float64(sampleRate))
		}
	}
	return out
}

// Silence returns seconds of zero samples.
func Silence(seconds float64, sampleRate int) []float64 {
	return make([]float64, int(seconds*float64(sampleRate)))
}

// WAV encodes mono samples as 16-bit PCM and returns the file bytes.
func WAV(t testing.TB, samples []float64, sampleRate int) []byte {
	t.Helper()
	return WAVChannels(t, [][]float64{samples}, sampleRate)
}

// WAVChannels encodes one slice per channel, interleaved, as 16-bit PCM.
func WAVChannels(t testing.TB, channels [][]float64, sampleRate int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}

	numChans := len(channels)
	frames := len(channels[0])
	data := make([]int, frames*numChans)
	for i := 0; i < frames; i++ {
		for c := 0; c < numChans; c++ {
			v := channels[c][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			data[i*numChans+c] = int(math.Round(v * 32767))
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, numChans, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChans, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return raw
}
