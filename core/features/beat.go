package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BeatResult is the output of the dynamic-programming beat tracker.
type BeatResult struct {
	Tempo float64 // BPM the tracker was driven with
	Beats []int   // onset envelope frame indices
}

const beatTightness = 100.0

// trackBeats runs Ellis-style dynamic-programming beat tracking over an onset
// envelope. The tempo is estimated from the same envelope first.
func trackBeats(env []float64, sampleRate, hop int, cfg TempoConfig) BeatResult {
	tempo := estimateTempo(env, sampleRate, hop, cfg)
	if tempo <= 0 {
		return BeatResult{}
	}

	fps := float64(sampleRate) / float64(hop)
	period := int(math.Round(60 * fps / tempo))
	if period < 1 {
		period = 1
	}

	local := localScore(env, period)
	backlink, cumscore := beatDP(local, period)

	tail := lastBeat(cumscore)
	if tail < 0 {
		return BeatResult{Tempo: tempo}
	}

	beats := []int{tail}
	for backlink[beats[len(beats)-1]] >= 0 {
		beats = append(beats, backlink[beats[len(beats)-1]])
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}

	return BeatResult{Tempo: tempo, Beats: trimBeats(local, beats)}
}

// localScore normalises the envelope and smooths it with a Gaussian matched to period.
func localScore(env []float64, period int) []float64 {
	norm := make([]float64, len(env))
	copy(norm, env)
	if sd := stat.StdDev(env, nil); sd > 0 {
		floats.Scale(1/sd, norm)
	}

	kernel := make([]float64, 2*period+1)
	for i := range kernel {
		x := float64(i-period) * 32 / float64(period)
		kernel[i] = math.Exp(-0.5 * x * x)
	}
	return convolveSame(norm, kernel)
}

// beatDP accumulates the best score ending on a beat at every frame, with a
// log-squared penalty on deviations from the expected period.
func beatDP(local []float64, period int) ([]int, []float64) {
	n := len(local)
	backlink := make([]int, n)
	cumscore := make([]float64, n)

	lo := -2 * period
	hi := -int(math.Round(float64(period) / 2))
	offsets := make([]int, 0, hi-lo+1)
	weights := make([]float64, 0, hi-lo+1)
	for off := lo; off <= hi; off++ {
		offsets = append(offsets, off)
		l := math.Log(float64(-off) / float64(period))
		weights = append(weights, -beatTightness*l*l)
	}

	threshold := 0.01 * floats.Max(local)
	firstBeat := true
	for i, score := range local {
		bestIdx, best := -1, math.Inf(-1)
		for j, off := range offsets {
			candidate := weights[j]
			if prev := i + off; prev >= 0 {
				candidate += cumscore[prev]
			}
			if candidate > best {
				bestIdx, best = j, candidate
			}
		}
		cumscore[i] = score + best

		if firstBeat && score < threshold {
			backlink[i] = -1
			continue
		}
		prev := i + offsets[bestIdx]
		if prev < 0 {
			prev = -1
		}
		backlink[i] = prev
		firstBeat = false
	}
	return backlink, cumscore
}

// lastBeat returns the final local maximum of cumscore that beats half the median peak.
func lastBeat(cumscore []float64) int {
	var peaks []int
	for i := range cumscore {
		if isLocalMax(cumscore, i) {
			peaks = append(peaks, i)
		}
	}
	if len(peaks) == 0 {
		return -1
	}
	values := make([]float64, len(peaks))
	for i, p := range peaks {
		values[i] = cumscore[p]
	}
	sort.Float64s(values)
	median := stat.Quantile(0.5, stat.Empirical, values, nil)

	for i := len(peaks) - 1; i >= 0; i-- {
		if cumscore[peaks[i]] >= 0.5*median {
			return peaks[i]
		}
	}
	return peaks[len(peaks)-1]
}

func isLocalMax(x []float64, i int) bool {
	left := i == 0 || x[i] > x[i-1]
	right := i == len(x)-1 || x[i] >= x[i+1]
	return left && right
}

// trimBeats drops weak leading and trailing beats.
func trimBeats(local []float64, beats []int) []int {
	if len(beats) == 0 {
		return beats
	}
	scores := make([]float64, len(beats))
	for i, b := range beats {
		scores[i] = local[b]
	}
	smooth := convolveSame(scores, []float64{0, 0.5, 1, 0.5, 0})
	threshold := 0.5 * math.Sqrt(floats.Dot(smooth, smooth)/float64(len(smooth)))

	start, end := 0, len(beats)
	for start < end && local[beats[start]] <= threshold {
		start++
	}
	for end > start && local[beats[end-1]] <= threshold {
		end--
	}
	return beats[start:end]
}

// convolveSame returns the centred part of the full convolution, len(x) long.
func convolveSame(x, kernel []float64) []float64 {
	out := make([]float64, len(x))
	half := len(kernel) / 2
	for i := range out {
		sum := 0.0
		for k, w := range kernel {
			j := i + half - k
			if j >= 0 && j < len(x) {
				sum += x[j] * w
			}
		}
		out[i] = sum
	}
	return out
}

// BeatTimes converts beat frames to seconds.
func BeatTimes(beats []int, sampleRate, hop int) []float64 {
	out := make([]float64, len(beats))
	for i, b := range beats {
		out[i] = float64(b*hop) / float64(sampleRate)
	}
	return out
}
