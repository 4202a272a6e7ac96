package features

import "gonum.org/v1/gonum/stat"

// onsetStrength computes a spectral-flux onset envelope from a dB mel
// spectrogram: the mean over bands of the positive first difference, shifted
// so that envelope frame t lines up with spectrogram frame t.
func onsetStrength(melDB [][]float64, nfft, hop int) []float64 {
	frames := len(melDB)
	env := make([]float64, frames)
	if frames < 2 {
		return env
	}

	const lag = 1
	offset := lag + nfft/(2*hop)
	diff := make([]float64, len(melDB[0]))
	for t := lag; t < frames; t++ {
		cur, prev := melDB[t], melDB[t-lag]
		for m := range cur {
			d := cur[m] - prev[m]
			if d < 0 {
				d = 0
			}
			diff[m] = d
		}
		dst := t - lag + offset
		if dst < frames {
			env[dst] = stat.Mean(diff, nil)
		}
	}
	return env
}
