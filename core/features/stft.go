package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hannWindow returns a periodic Hann window, the usual choice for STFT analysis.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// centerPad zero-pads y by n/2 on both sides so frame t is centred on sample t*hop.
func centerPad(y []float64, n int) []float64 {
	pad := n / 2
	out := make([]float64, len(y)+2*pad)
	copy(out[pad:], y)
	return out
}

// edgePad pads y by n/2 on both sides repeating the edge samples.
func edgePad(y []float64, n int) []float64 {
	pad := n / 2
	out := make([]float64, len(y)+2*pad)
	copy(out[pad:], y)
	if len(y) == 0 {
		return out
	}
	for i := 0; i < pad; i++ {
		out[i] = y[0]
		out[len(out)-1-i] = y[len(y)-1]
	}
	return out
}

func numFrames(paddedLen, frameLength, hop int) int {
	if paddedLen < frameLength {
		return 0
	}
	return 1 + (paddedLen-frameLength)/hop
}

// stft returns the centred short-time Fourier transform as [frame][bin],
// with nfft/2+1 bins per frame.
func stft(y []float64, nfft, hop int) [][]complex128 {
	padded := centerPad(y, nfft)
	frames := numFrames(len(padded), nfft, hop)
	window := hannWindow(nfft)
	fft := fourier.NewFFT(nfft)

	buf := make([]float64, nfft)
	out := make([][]complex128, frames)
	for t := 0; t < frames; t++ {
		start := t * hop
		for i := 0; i < nfft; i++ {
			buf[i] = padded[start+i] * window[i]
		}
		out[t] = fft.Coefficients(nil, buf)
	}
	return out
}

// istft inverts stft by windowed overlap-add and trims the result to length samples.
func istft(frames [][]complex128, nfft, hop, length int) []float64 {
	if len(frames) == 0 {
		return make([]float64, length)
	}
	window := hannWindow(nfft)
	fft := fourier.NewFFT(nfft)

	total := nfft + hop*(len(frames)-1)
	y := make([]float64, total)
	norm := make([]float64, total)
	buf := make([]float64, nfft)
	scale := 1 / float64(nfft) // gonum's inverse is unnormalised

	for t, coeff := range frames {
		seq := fft.Sequence(buf, coeff)
		start := t * hop
		for i := 0; i < nfft; i++ {
			y[start+i] += seq[i] * scale * window[i]
			norm[start+i] += window[i] * window[i]
		}
	}
	for i := range y {
		if norm[i] > 1e-8 {
			y[i] /= norm[i]
		}
	}

	out := make([]float64, length)
	offset := nfft / 2
	for i := range out {
		if offset+i < len(y) {
			out[i] = y[offset+i]
		}
	}
	return out
}

func magnitude(frames [][]complex128) [][]float64 {
	out := make([][]float64, len(frames))
	for t, row := range frames {
		mag := make([]float64, len(row))
		for k, c := range row {
			mag[k] = cmplx.Abs(c)
		}
		out[t] = mag
	}
	return out
}

func square(spec [][]float64) [][]float64 {
	out := make([][]float64, len(spec))
	for t, row := range spec {
		p := make([]float64, len(row))
		for k, v := range row {
			p[k] = v * v
		}
		out[t] = p
	}
	return out
}

// fftFrequencies returns the centre frequency of each of the nfft/2+1 bins.
func fftFrequencies(sampleRate, nfft int) []float64 {
	bins := nfft/2 + 1
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}
	return freqs
}

// frameSignal slices padded into frameLength windows every hop samples.
// The returned frames alias padded.
func frameSignal(padded []float64, frameLength, hop int) [][]float64 {
	frames := numFrames(len(padded), frameLength, hop)
	out := make([][]float64, frames)
	for t := 0; t < frames; t++ {
		out[t] = padded[t*hop : t*hop+frameLength]
	}
	return out
}
