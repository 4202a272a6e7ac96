package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"GenreFM/core/features"
)

// LogisticSpec is a multinomial linear model over standardised features.
type LogisticSpec struct {
	Mean      []float64   `json:"mean" yaml:"mean" msgpack:"mean"`
	Scale     []float64   `json:"scale" yaml:"scale" msgpack:"scale"`
	Coef      [][]float64 `json:"coef" yaml:"coef" msgpack:"coef"`
	Intercept []float64   `json:"intercept" yaml:"intercept" msgpack:"intercept"`
}

func (l *LogisticSpec) validate(numClasses int) error {
	n := features.NumFields
	if len(l.Mean) != n || len(l.Scale) != n {
		return fmt.Errorf("%w: standardisation needs %d means and scales", ErrSchema, n)
	}
	for i, s := range l.Scale {
		if s == 0 || math.IsNaN(s) {
			return fmt.Errorf("%w: scale %d is %v", ErrSchema, i, s)
		}
	}
	if len(l.Coef) != numClasses || len(l.Intercept) != numClasses {
		return fmt.Errorf("%w: expected %d coefficient rows and intercepts", ErrSchema, numClasses)
	}
	for i, row := range l.Coef {
		if len(row) != n {
			return fmt.Errorf("%w: coefficient row %d has %d weights, expected %d", ErrSchema, i, len(row), n)
		}
	}
	return nil
}

type logistic struct {
	spec *LogisticSpec
}

func newLogistic(spec *LogisticSpec) *logistic {
	return &logistic{spec: spec}
}

// Predict returns the argmax of the softmax; scores are the probabilities.
func (l *logistic) Predict(x []float64) (int, []float64, error) {
	s := l.spec
	if len(x) != len(s.Mean) {
		return 0, nil, fmt.Errorf("%w: expected %d features, got %d", ErrPrediction, len(s.Mean), len(x))
	}
	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = (v - s.Mean[i]) / s.Scale[i]
	}

	logits := make([]float64, len(s.Coef))
	for c, row := range s.Coef {
		logits[c] = floats.Dot(row, z) + s.Intercept[c]
	}
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, nil, fmt.Errorf("%w: non-finite logits", ErrPrediction)
		}
	}

	probs := make([]float64, len(logits))
	floats.AddConst(-floats.Max(logits), probs)
	floats.Add(probs, logits)
	for i := range probs {
		probs[i] = math.Exp(probs[i])
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return floats.MaxIdx(logits), probs, nil
}
