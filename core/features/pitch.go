package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	pitchFMin      = 150.0
	pitchFMax      = 4000.0
	pitchThreshold = 0.1
)

// pitchPeak is one interpolated spectral peak.
type pitchPeak struct {
	freq float64
	mag  float64
}

// pitchTrack finds spectral peaks between pitchFMin and pitchFMax that exceed
// pitchThreshold of the frame maximum, refines each by parabolic interpolation
// and returns the mean of the full [bin][frame] pitch matrix together with the
// peaks themselves. Cells without a peak count as zero.
func pitchTrack(mag [][]float64, sampleRate, nfft int) (float64, []pitchPeak) {
	if len(mag) == 0 {
		return 0, nil
	}
	bins := len(mag[0])
	freqs := fftFrequencies(sampleRate, nfft)
	binHz := float64(sampleRate) / float64(nfft)

	var (
		sum   float64
		peaks []pitchPeak
	)
	gated := make([]float64, bins)
	for _, frame := range mag {
		ref := pitchThreshold * floats.Max(frame)
		for k, v := range frame {
			if v > ref {
				gated[k] = v
			} else {
				gated[k] = 0
			}
		}
		for k := 1; k < bins-1; k++ {
			if freqs[k] < pitchFMin || freqs[k] >= pitchFMax {
				continue
			}
			if !(gated[k] > gated[k-1] && gated[k] >= gated[k+1]) {
				continue
			}
			avg := 0.5 * (frame[k+1] - frame[k-1])
			curv := 2*frame[k] - frame[k+1] - frame[k-1]
			shift := 0.0
			if math.Abs(curv) > 1e-30 {
				shift = avg / curv
			}
			freq := (float64(k) + shift) * binHz
			sum += freq
			peaks = append(peaks, pitchPeak{freq: freq, mag: frame[k] + 0.5*avg*shift})
		}
	}
	return sum / float64(bins*len(mag)), peaks
}
