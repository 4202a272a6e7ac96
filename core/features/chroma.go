package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	chromaCenterOctave = 5.0
	chromaOctaveWidth  = 2.0
)

// hzToOctaves converts Hz to fractional octaves above C0, shifted by tuning
// (in fractions of a semitone).
func hzToOctaves(hz, tuning float64, binsPerOctave int) float64 {
	a440 := 440.0 * math.Pow(2, tuning/float64(binsPerOctave))
	return math.Log2(hz / (a440 / 16))
}

// chromaFilterBank builds [nChroma][nfft/2+1] Gaussian pitch-class weights,
// L2-normalised per bin, shaded around octave 5 and rotated to start at C.
func chromaFilterBank(sampleRate, nfft, nChroma int, tuning float64) [][]float64 {
	bins := nfft/2 + 1

	// frqbins[0] stands in for DC, 1.5 octaves below bin 1
	frqbins := make([]float64, nfft)
	for k := 1; k < nfft; k++ {
		f := float64(k) * float64(sampleRate) / float64(nfft)
		frqbins[k] = float64(nChroma) * hzToOctaves(f, tuning, nChroma)
	}
	frqbins[0] = frqbins[1] - 1.5*float64(nChroma)

	widths := make([]float64, nfft)
	for k := 0; k < nfft-1; k++ {
		widths[k] = math.Max(frqbins[k+1]-frqbins[k], 1.0)
	}
	widths[nfft-1] = 1

	half := math.Round(float64(nChroma) / 2)
	wts := make([][]float64, nChroma)
	for c := range wts {
		wts[c] = make([]float64, nfft)
	}
	for k := 0; k < nfft; k++ {
		for c := 0; c < nChroma; c++ {
			d := frqbins[k] - float64(c)
			d = math.Mod(d+half+10*float64(nChroma), float64(nChroma))
			if d < 0 {
				d += float64(nChroma)
			}
			d -= half
			x := 2 * d / widths[k]
			wts[c][k] = math.Exp(-0.5 * x * x)
		}
	}

	column := make([]float64, nChroma)
	for k := 0; k < nfft; k++ {
		for c := 0; c < nChroma; c++ {
			column[c] = wts[c][k]
		}
		if norm := floats.Norm(column, 2); norm > 0 {
			for c := 0; c < nChroma; c++ {
				wts[c][k] /= norm
			}
		}
		z := (frqbins[k]/float64(nChroma) - chromaCenterOctave) / chromaOctaveWidth
		shade := math.Exp(-0.5 * z * z)
		for c := 0; c < nChroma; c++ {
			wts[c][k] *= shade
		}
	}

	// rotate so that row 0 is C rather than A
	shift := 3 * (nChroma / 12)
	out := make([][]float64, nChroma)
	for c := 0; c < nChroma; c++ {
		src := (c + shift) % nChroma
		out[c] = wts[src][:bins]
	}
	return out
}

// chromaMean projects the power spectrogram onto pitch classes, max-normalises
// each frame and averages every cell.
func chromaMean(power [][]float64, bank [][]float64) float64 {
	if len(power) == 0 {
		return 0
	}
	nChroma := len(bank)
	cells := make([]float64, 0, len(power)*nChroma)
	frame := make([]float64, nChroma)
	for _, row := range power {
		for c, w := range bank {
			frame[c] = floats.Dot(w, row)
		}
		if peak := floats.Max(frame); peak > 1e-30 {
			floats.Scale(1/peak, frame)
		}
		cells = append(cells, frame...)
	}
	return stat.Mean(cells, nil)
}

// estimateTuning returns the dominant deviation, in fractions of a bin, of the
// detected pitches from equal temperament. Only peaks at or above the median
// magnitude vote.
func estimateTuning(peaks []pitchPeak, binsPerOctave int) float64 {
	if len(peaks) == 0 {
		return 0
	}
	mags := make([]float64, len(peaks))
	for i, p := range peaks {
		mags[i] = p.mag
	}
	sort.Float64s(mags)
	threshold := stat.Quantile(0.5, stat.Empirical, mags, nil)

	const resolution = 0.01
	nBins := int(math.Ceil(1 / resolution))
	counts := make([]int, nBins)
	voted := false
	for _, p := range peaks {
		if p.mag < threshold || p.freq <= 0 {
			continue
		}
		residual := math.Mod(float64(binsPerOctave)*hzToOctaves(p.freq, 0, binsPerOctave), 1.0)
		if residual >= 0.5 {
			residual -= 1.0
		}
		idx := int(math.Floor((residual + 0.5) / resolution))
		if idx >= nBins {
			idx = nBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
		voted = true
	}
	if !voted {
		return 0
	}
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return -0.5 + float64(best)*resolution
}
