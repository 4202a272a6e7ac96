package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// dctBasis holds the first n rows of an orthonormal DCT-II of size m.
// gonum's fourier.DCT is type I, so the basis is built directly.
type dctBasis [][]float64

func newDCTBasis(n, m int) dctBasis {
	basis := make(dctBasis, n)
	for k := range basis {
		scale := math.Sqrt(2 / float64(m))
		if k == 0 {
			scale = math.Sqrt(1 / float64(m))
		}
		row := make([]float64, m)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(m)))
		}
		basis[k] = row
	}
	return basis
}

// mfccMean applies the DCT to every frame of a dB mel spectrogram and averages
// all coefficients.
func mfccMean(melDB [][]float64, nMFCC int) float64 {
	if len(melDB) == 0 {
		return 0
	}
	basis := newDCTBasis(nMFCC, len(melDB[0]))
	coeffs := make([]float64, 0, len(melDB)*nMFCC)
	for _, frame := range melDB {
		for _, row := range basis {
			coeffs = append(coeffs, floats.Dot(row, frame))
		}
	}
	return stat.Mean(coeffs, nil)
}
