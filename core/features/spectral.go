package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	powerFloor   = 1e-10
	zeroCrossTol = 1e-10
)

// zeroCrossingRate is the mean fraction of sign changes per frame.
// Samples within zeroCrossTol of zero count as positive.
func zeroCrossingRate(y []float64, frameLength, hop int) float64 {
	frames := frameSignal(edgePad(y, frameLength), frameLength, hop)
	if len(frames) == 0 {
		return 0
	}
	positive := func(v float64) bool { return v >= 0 || math.Abs(v) <= zeroCrossTol }

	rates := make([]float64, len(frames))
	for t, frame := range frames {
		crossings := 0
		for i := 1; i < len(frame); i++ {
			if positive(frame[i]) != positive(frame[i-1]) {
				crossings++
			}
		}
		rates[t] = float64(crossings) / float64(frameLength)
	}
	return stat.Mean(rates, nil)
}

// rmsEnergy is the mean per-frame root-mean-square of the zero-padded signal.
func rmsEnergy(y []float64, frameLength, hop int) float64 {
	frames := frameSignal(centerPad(y, frameLength), frameLength, hop)
	if len(frames) == 0 {
		return 0
	}
	values := make([]float64, len(frames))
	for t, frame := range frames {
		values[t] = math.Sqrt(floats.Dot(frame, frame) / float64(frameLength))
	}
	return stat.Mean(values, nil)
}

// spectralCentroid is the mean magnitude-weighted frequency. Silent frames are 0.
func spectralCentroid(mag [][]float64, freqs []float64) float64 {
	if len(mag) == 0 {
		return 0
	}
	values := make([]float64, len(mag))
	for t, frame := range mag {
		total := floats.Sum(frame)
		if total <= powerFloor {
			continue
		}
		values[t] = floats.Dot(frame, freqs) / total
	}
	return stat.Mean(values, nil)
}

// spectralRolloff is the mean frequency below which rollPercent of each frame's
// magnitude lies.
func spectralRolloff(mag [][]float64, freqs []float64, rollPercent float64) float64 {
	if len(mag) == 0 {
		return 0
	}
	values := make([]float64, len(mag))
	for t, frame := range mag {
		threshold := rollPercent * floats.Sum(frame)
		cum := 0.0
		for k, v := range frame {
			cum += v
			if cum >= threshold {
				values[t] = freqs[k]
				break
			}
		}
	}
	return stat.Mean(values, nil)
}

// spectralFlatness is the mean ratio of geometric to arithmetic mean power.
// Silent frames are perfectly flat at the power floor.
func spectralFlatness(power [][]float64) float64 {
	if len(power) == 0 {
		return 0
	}
	values := make([]float64, len(power))
	for t, frame := range power {
		logSum, sum := 0.0, 0.0
		for _, v := range frame {
			v = math.Max(v, powerFloor)
			logSum += math.Log(v)
			sum += v
		}
		n := float64(len(frame))
		values[t] = math.Exp(logSum/n) / (sum / n)
	}
	return stat.Mean(values, nil)
}
