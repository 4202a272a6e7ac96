package features

import (
	"context"
	"fmt"
	"time"

	"GenreFM/core/audio"
)

// Config holds the analysis parameters. The defaults are the ones the shipped
// models were trained with; changing them requires retraining.
type Config struct {
	NFFT        int
	Hop         int
	NMels       int
	NMFCC       int
	NChroma     int
	RollPercent float64
	Tempo       TempoConfig
}

// DefaultConfig returns the training-time analysis parameters.
func DefaultConfig() Config {
	return Config{
		NFFT:        2048,
		Hop:         512,
		NMels:       128,
		NMFCC:       20,
		NChroma:     12,
		RollPercent: 0.85,
		Tempo:       DefaultTempoConfig(),
	}
}

// Analysis is the extractor output: the vector plus beat diagnostics.
type Analysis struct {
	Vector    FeatureVector
	Beats     []int
	BeatTimes []float64
	Frames    int
	Elapsed   time.Duration
}

// Extractor computes FeatureVectors. It holds no per-signal state and is safe
// for concurrent use.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an extractor, filling zero fields from DefaultConfig.
func NewExtractor(cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.NFFT <= 0 {
		cfg.NFFT = def.NFFT
	}
	if cfg.Hop <= 0 {
		cfg.Hop = def.Hop
	}
	if cfg.NMels <= 0 {
		cfg.NMels = def.NMels
	}
	if cfg.NMFCC <= 0 {
		cfg.NMFCC = def.NMFCC
	}
	if cfg.NChroma <= 0 {
		cfg.NChroma = def.NChroma
	}
	if cfg.RollPercent <= 0 || cfg.RollPercent > 1 {
		cfg.RollPercent = def.RollPercent
	}
	if cfg.Tempo == (TempoConfig{}) {
		cfg.Tempo = def.Tempo
	}
	return &Extractor{cfg: cfg}
}

// Config returns the effective analysis parameters.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Schema describes the vectors this extractor produces.
func (e *Extractor) Schema() Schema {
	return DefaultSchema()
}

// Extract computes the feature vector of sig. Cancellation is checked between
// analysis stages.
func (e *Extractor) Extract(ctx context.Context, sig *audio.Signal) (*Analysis, error) {
	if sig == nil || sig.Len() == 0 {
		return nil, fmt.Errorf("%w: empty signal", ErrExtraction)
	}
	if sig.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrExtraction, sig.SampleRate)
	}
	start := time.Now()
	cfg := e.cfg
	sr := sig.SampleRate
	y := sig.Samples

	spec := stft(y, cfg.NFFT, cfg.Hop)
	mag := magnitude(spec)
	power := square(mag)
	freqs := fftFrequencies(sr, cfg.NFFT)

	melBank := melFilterBank(sr, cfg.NFFT, cfg.NMels, 0, 0)
	melDB := powerToDB(melSpectrogram(power, melBank), 1.0, powerFloor, 80)

	var vec FeatureVector

	env := onsetStrength(melDB, cfg.NFFT, cfg.Hop)
	vec.Tempo = estimateTempo(env, sr, cfg.Hop, cfg.Tempo)
	beats := trackBeats(env, sr, cfg.Hop, cfg.Tempo)
	vec.Key = beats.Tempo
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec.ZeroCrossingRate = zeroCrossingRate(y, cfg.NFFT, cfg.Hop)
	vec.SpectralCentroid = spectralCentroid(mag, freqs)
	vec.SpectralRolloff = spectralRolloff(mag, freqs, cfg.RollPercent)
	vec.SpectralFlatness = spectralFlatness(power)
	vec.RMS = rmsEnergy(y, cfg.NFFT, cfg.Hop)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec.HarmonicMean = harmonicMean(spec, mag, cfg.NFFT, cfg.Hop, len(y))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pitch, peaks := pitchTrack(mag, sr, cfg.NFFT)
	vec.Pitch = pitch
	tuning := estimateTuning(peaks, cfg.NChroma)
	vec.Chroma = chromaMean(power, chromaFilterBank(sr, cfg.NFFT, cfg.NChroma, tuning))
	vec.MFCC = mfccMean(melDB, cfg.NMFCC)

	if err := vec.Validate(); err != nil {
		return nil, err
	}
	return &Analysis{
		Vector:    vec,
		Beats:     beats.Beats,
		BeatTimes: BeatTimes(beats.Beats, sr, cfg.Hop),
		Frames:    len(spec),
		Elapsed:   time.Since(start),
	}, nil
}
