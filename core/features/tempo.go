package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// TempoConfig controls global tempo estimation.
type TempoConfig struct {
	StartBPM float64 // centre of the log-normal tempo prior
	StdBPM   float64 // prior width in octaves
	MaxBPM   float64
	ACSize   float64 // autocorrelation window in seconds
}

// DefaultTempoConfig matches the settings the shipped models were trained with.
func DefaultTempoConfig() TempoConfig {
	return TempoConfig{StartBPM: 120, StdBPM: 1.0, MaxBPM: 320, ACSize: 8.0}
}

// estimateTempo picks the autocorrelation lag of the onset envelope that best
// balances periodicity against the tempo prior, and returns it in BPM.
// An envelope with no onset energy yields 0.
func estimateTempo(env []float64, sampleRate, hop int, cfg TempoConfig) float64 {
	if len(env) < 3 || floats.Sum(env) <= 0 {
		return 0
	}
	fps := float64(sampleRate) / float64(hop)

	maxLag := int(math.Round(cfg.ACSize * fps))
	if maxLag > len(env) {
		maxLag = len(env)
	}
	ac := autocorrelate(env, maxLag)
	if ac[0] <= 0 {
		return 0
	}
	floats.Scale(1/ac[0], ac)

	// The true period rarely falls on an integer lag, so score each lag by the
	// autocorrelation mass of its immediate neighbourhood.
	bestLag, bestScore := 0, math.Inf(-1)
	for lag := 1; lag < maxLag; lag++ {
		bpm := 60 * fps / float64(lag)
		if bpm > cfg.MaxBPM {
			continue
		}
		mass := neighbourhood(ac, lag)
		score := math.Log1p(1e6*mass) + logPrior(bpm, cfg)
		if score > bestScore {
			bestLag, bestScore = lag, score
		}
	}
	if bestLag == 0 {
		return 0
	}
	return 60 * fps / refineLag(ac, bestLag)
}

func logPrior(bpm float64, cfg TempoConfig) float64 {
	z := (math.Log2(bpm) - math.Log2(cfg.StartBPM)) / cfg.StdBPM
	return -0.5 * z * z
}

func autocorrelate(x []float64, maxLag int) []float64 {
	ac := make([]float64, maxLag)
	for lag := 0; lag < maxLag; lag++ {
		ac[lag] = floats.Dot(x[:len(x)-lag], x[lag:])
	}
	return ac
}

func neighbourhood(ac []float64, lag int) float64 {
	sum := ac[lag]
	if lag-1 >= 1 {
		sum += ac[lag-1]
	}
	if lag+1 < len(ac) {
		sum += ac[lag+1]
	}
	return sum
}

// refineLag returns the autocorrelation-weighted centre of lag and its
// neighbours, which recovers fractional periods.
func refineLag(ac []float64, lag int) float64 {
	num, den := 0.0, 0.0
	for l := lag - 1; l <= lag+1; l++ {
		if l < 1 || l >= len(ac) || ac[l] <= 0 {
			continue
		}
		num += float64(l) * ac[l]
		den += ac[l]
	}
	if den == 0 {
		return float64(lag)
	}
	return num / den
}
