package features

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"GenreFM/core/audio"
	"GenreFM/internal/testsupport"
)

const testRate = audio.DefaultSampleRate

func extract(t *testing.T, samples []float64) *Analysis {
	t.Helper()
	a, err := NewExtractor(Config{}).Extract(context.Background(), &audio.Signal{Samples: samples, SampleRate: testRate})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return a
}

func TestExtractSineProducesFiniteVector(t *testing.T) {
	a := extract(t, testsupport.Sine(440, 5, testRate, 0.5))
	values := a.Vector.Values()
	if len(values) != NumFields {
		t.Fatalf("expected %d values, got %d", NumFields, len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s is not finite: %v", FieldNames[i], v)
		}
	}

	vec := a.Vector
	if math.Abs(vec.SpectralCentroid-440) > 30 {
		t.Errorf("centroid %f, want ~440", vec.SpectralCentroid)
	}
	if want := 2 * 440.0 / testRate; math.Abs(vec.ZeroCrossingRate-want) > 0.005 {
		t.Errorf("zero crossing rate %f, want ~%f", vec.ZeroCrossingRate, want)
	}
	if want := 0.5 / math.Sqrt2; math.Abs(vec.RMS-want) > 0.02 {
		t.Errorf("rms %f, want ~%f", vec.RMS, want)
	}
	if vec.Pitch <= 0 {
		t.Errorf("expected positive mean pitch, got %f", vec.Pitch)
	}
	if vec.Chroma <= 0 || vec.Chroma > 1 {
		t.Errorf("chroma %f outside (0, 1]", vec.Chroma)
	}
	if vec.SpectralFlatness <= 0 || vec.SpectralFlatness > 1 {
		t.Errorf("flatness %f outside (0, 1]", vec.SpectralFlatness)
	}
	if a.Frames != 1+5*testRate/512 {
		t.Errorf("unexpected frame count %d", a.Frames)
	}
}

func TestExtractClickTrackTempo(t *testing.T) {
	a := extract(t, testsupport.ClickTrack(120, 10, testRate))
	if math.Abs(a.Vector.Tempo-120) > 8 {
		t.Fatalf("tempo %f, want 120 +/- 8", a.Vector.Tempo)
	}
	// the beat tracker shares the envelope and estimator, so key duplicates tempo
	if a.Vector.Key != a.Vector.Tempo {
		t.Fatalf("key %f should duplicate tempo %f", a.Vector.Key, a.Vector.Tempo)
	}
	if len(a.Beats) < 8 {
		t.Fatalf("expected beats across 10s of clicks, got %d", len(a.Beats))
	}
	if len(a.BeatTimes) != len(a.Beats) {
		t.Fatalf("beat times %d != beats %d", len(a.BeatTimes), len(a.Beats))
	}
}

func TestExtractSilenceIsDeterministic(t *testing.T) {
	silence := testsupport.Silence(3, testRate)
	first := extract(t, silence)
	second := extract(t, silence)

	if !reflect.DeepEqual(first.Vector, second.Vector) {
		t.Fatalf("silence vectors differ:\n%+v\n%+v", first.Vector, second.Vector)
	}
	if err := first.Vector.Validate(); err != nil {
		t.Fatalf("silence vector invalid: %v", err)
	}
	if first.Vector.Tempo != 0 || first.Vector.Key != 0 {
		t.Errorf("expected zero tempo for silence, got %f/%f", first.Vector.Tempo, first.Vector.Key)
	}
	if first.Vector.RMS != 0 || first.Vector.Chroma != 0 || first.Vector.Pitch != 0 {
		t.Errorf("expected zero energy features, got %+v", first.Vector)
	}
	if len(first.Beats) != 0 {
		t.Errorf("expected no beats, got %v", first.Beats)
	}
}

func TestExtractRejectsEmptySignal(t *testing.T) {
	ex := NewExtractor(Config{})
	cases := []*audio.Signal{
		nil,
		{SampleRate: testRate},
		{Samples: []float64{0.1, 0.2}, SampleRate: 0},
	}
	for _, sig := range cases {
		if _, err := ex.Extract(context.Background(), sig); !errors.Is(err, ErrExtraction) {
			t.Errorf("signal %+v: expected ErrExtraction, got %v", sig, err)
		}
	}
}

func TestExtractHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sig := &audio.Signal{Samples: testsupport.Sine(440, 1, testRate, 0.5), SampleRate: testRate}
	if _, err := NewExtractor(Config{}).Extract(ctx, sig); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewExtractorFillsDefaults(t *testing.T) {
	got := NewExtractor(Config{Hop: 256}).Config()
	want := DefaultConfig()
	want.Hop = 256
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("config %+v, want %+v", got, want)
	}
}
