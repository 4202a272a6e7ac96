package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Slaney-style mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp        = 200.0 / 3
	melMinLogHz   = 1000.0
	melMinLogMel  = melMinLogHz / melFSp
	melLogStepDen = 27.0
)

var melLogStep = math.Log(6.4) / melLogStepDen

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// melFilter is one triangular filter stored over its non-zero bin range.
type melFilter struct {
	lo      int
	weights []float64
}

// melFilterBank builds nMels area-normalised triangular filters over nfft/2+1 bins.
func melFilterBank(sampleRate, nfft, nMels int, fmin, fmax float64) []melFilter {
	if fmax <= 0 {
		fmax = float64(sampleRate) / 2
	}
	freqs := fftFrequencies(sampleRate, nfft)

	minMel := hzToMel(fmin)
	maxMel := hzToMel(fmax)
	melPoints := make([]float64, nMels+2)
	floats.Span(melPoints, minMel, maxMel)
	hzPoints := make([]float64, len(melPoints))
	for i, m := range melPoints {
		hzPoints[i] = melToHz(m)
	}

	bank := make([]melFilter, nMels)
	for m := 0; m < nMels; m++ {
		left, center, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		enorm := 2.0 / (right - left)

		lo, hi := -1, -1
		full := make([]float64, len(freqs))
		for k, f := range freqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Max(0, math.Min(lower, upper)) * enorm
			if w > 0 {
				if lo < 0 {
					lo = k
				}
				hi = k
				full[k] = w
			}
		}
		if lo < 0 {
			bank[m] = melFilter{}
			continue
		}
		bank[m] = melFilter{lo: lo, weights: full[lo : hi+1]}
	}
	return bank
}

// applyMel projects one power spectrum frame onto the filter bank.
func applyMel(bank []melFilter, power []float64, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(bank))
	}
	for m, f := range bank {
		dst[m] = floats.Dot(f.weights, power[f.lo:f.lo+len(f.weights)])
	}
	return dst
}

// melSpectrogram maps a [frame][bin] power spectrogram to [frame][mel].
func melSpectrogram(power [][]float64, bank []melFilter) [][]float64 {
	out := make([][]float64, len(power))
	for t, row := range power {
		out[t] = applyMel(bank, row, nil)
	}
	return out
}

// powerToDB converts power to decibels relative to ref, flooring at amin and
// clipping everything more than topDB below the global peak.
func powerToDB(spec [][]float64, ref, amin, topDB float64) [][]float64 {
	refDB := 10 * math.Log10(math.Max(amin, ref))
	peak := math.Inf(-1)
	out := make([][]float64, len(spec))
	for t, row := range spec {
		db := make([]float64, len(row))
		for i, v := range row {
			db[i] = 10*math.Log10(math.Max(amin, v)) - refDB
			if db[i] > peak {
				peak = db[i]
			}
		}
		out[t] = db
	}
	if topDB > 0 {
		floor := peak - topDB
		for _, row := range out {
			for i := range row {
				if row[i] < floor {
					row[i] = floor
				}
			}
		}
	}
	return out
}
