package features

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

const hpssKernel = 31

// harmonicMean separates the harmonic part of the signal by median-filter
// HPSS with a Wiener-style soft mask, resynthesises it and returns its mean.
func harmonicMean(spec [][]complex128, mag [][]float64, nfft, hop, length int) float64 {
	frames := len(mag)
	if frames == 0 || length == 0 {
		return 0
	}
	bins := len(mag[0])

	// harmonic: median across time for each bin
	harm := make([][]float64, frames)
	for t := range harm {
		harm[t] = make([]float64, bins)
	}
	series := make([]float64, frames)
	filtered := make([]float64, frames)
	w := newMedianWindow(hpssKernel)
	for k := 0; k < bins; k++ {
		for t := 0; t < frames; t++ {
			series[t] = mag[t][k]
		}
		w.filter(series, filtered)
		for t := 0; t < frames; t++ {
			harm[t][k] = filtered[t]
		}
	}

	// percussive: median across frequency for each frame
	perc := make([]float64, bins)
	masked := make([][]complex128, frames)
	for t := 0; t < frames; t++ {
		w.filter(mag[t], perc)
		row := make([]complex128, bins)
		for k := 0; k < bins; k++ {
			h2 := harm[t][k] * harm[t][k]
			p2 := perc[k] * perc[k]
			if h2+p2 <= 1e-30 {
				continue
			}
			row[k] = spec[t][k] * complex(h2/(h2+p2), 0)
		}
		masked[t] = row
	}

	y := istft(masked, nfft, hop, length)
	return stat.Mean(y, nil)
}

// medianWindow is a sliding median filter with reflected edges.
type medianWindow struct {
	size   int
	sorted []float64
}

func newMedianWindow(size int) *medianWindow {
	if size%2 == 0 {
		size++
	}
	return &medianWindow{size: size, sorted: make([]float64, 0, size)}
}

// reflectIndex maps an out-of-range index back into [0, n) by half-sample symmetry.
func reflectIndex(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

func (w *medianWindow) filter(src, dst []float64) {
	n := len(src)
	if n == 0 {
		return
	}
	half := w.size / 2
	w.sorted = w.sorted[:0]
	for j := -half; j <= half; j++ {
		w.insert(src[reflectIndex(j, n)])
	}
	for i := 0; i < n; i++ {
		dst[i] = w.sorted[half]
		if i == n-1 {
			break
		}
		w.remove(src[reflectIndex(i-half, n)])
		w.insert(src[reflectIndex(i+half+1, n)])
	}
}

func (w *medianWindow) insert(v float64) {
	idx := sort.SearchFloat64s(w.sorted, v)
	w.sorted = append(w.sorted, 0)
	copy(w.sorted[idx+1:], w.sorted[idx:])
	w.sorted[idx] = v
}

func (w *medianWindow) remove(v float64) {
	idx := sort.SearchFloat64s(w.sorted, v)
	if idx >= len(w.sorted) {
		idx = len(w.sorted) - 1
	}
	copy(w.sorted[idx:], w.sorted[idx+1:])
	w.sorted = w.sorted[:len(w.sorted)-1]
}
