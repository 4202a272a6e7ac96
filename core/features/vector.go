package features

import (
	"errors"
	"fmt"
	"math"
)

// SchemaVersion tags the field layout below. Model artifacts carry the same tag.
const SchemaVersion = "genre-features/v1"

// NumFields is the length of every FeatureVector.
const NumFields = 11

// FieldNames is the positional order the classifier was trained on.
var FieldNames = [NumFields]string{
	"tempo",
	"key",
	"zero_crossing_rate",
	"spectral_centroid",
	"spectral_rolloff",
	"spectral_flatness",
	"rms",
	"harmonic_to_noise",
	"chroma_stft",
	"mfcc",
	"pitches",
}

// ErrExtraction is returned when a feature cannot be computed.
var ErrExtraction = errors.New("extraction error")

// FeatureVector is the fixed 11-field summary of one signal.
type FeatureVector struct {
	Tempo            float64 `json:"tempo"`
	Key              float64 `json:"key"` // beat tracker tempo
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`
	SpectralCentroid float64 `json:"spectral_centroid"`
	SpectralRolloff  float64 `json:"spectral_rolloff"`
	SpectralFlatness float64 `json:"spectral_flatness"`
	RMS              float64 `json:"rms"`
	HarmonicMean     float64 `json:"harmonic_to_noise"`
	Chroma           float64 `json:"chroma_stft"`
	MFCC             float64 `json:"mfcc"`
	Pitch            float64 `json:"pitches"`
}

// Values returns the fields in FieldNames order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.Tempo,
		v.Key,
		v.ZeroCrossingRate,
		v.SpectralCentroid,
		v.SpectralRolloff,
		v.SpectralFlatness,
		v.RMS,
		v.HarmonicMean,
		v.Chroma,
		v.MFCC,
		v.Pitch,
	}
}

// Named returns the fields keyed by schema name.
func (v FeatureVector) Named() map[string]float64 {
	values := v.Values()
	out := make(map[string]float64, NumFields)
	for i, name := range FieldNames {
		out[name] = values[i]
	}
	return out
}

// FromValues is the inverse of Values.
func FromValues(values []float64) (FeatureVector, error) {
	if len(values) != NumFields {
		return FeatureVector{}, fmt.Errorf("expected %d feature values, got %d", NumFields, len(values))
	}
	return FeatureVector{
		Tempo:            values[0],
		Key:              values[1],
		ZeroCrossingRate: values[2],
		SpectralCentroid: values[3],
		SpectralRolloff:  values[4],
		SpectralFlatness: values[5],
		RMS:              values[6],
		HarmonicMean:     values[7],
		Chroma:           values[8],
		MFCC:             values[9],
		Pitch:            values[10],
	}, nil
}

// Validate fails when any field is NaN or infinite.
func (v FeatureVector) Validate() error {
	for i, x := range v.Values() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s is not finite (%v)", ErrExtraction, FieldNames[i], x)
		}
	}
	return nil
}

// Schema names the positional layout of a feature vector.
type Schema struct {
	Version string   `json:"version" yaml:"version" msgpack:"version"`
	Fields  []string `json:"fields" yaml:"fields" msgpack:"fields"`
}

// DefaultSchema describes the vectors produced by Extractor.
func DefaultSchema() Schema {
	fields := make([]string, NumFields)
	copy(fields, FieldNames[:])
	return Schema{Version: SchemaVersion, Fields: fields}
}

// Compatible reports the first difference between s and other, or nil.
func (s Schema) Compatible(other Schema) error {
	if s.Version != other.Version {
		return fmt.Errorf("schema version %q does not match %q", other.Version, s.Version)
	}
	if len(s.Fields) != len(other.Fields) {
		return fmt.Errorf("schema has %d fields, expected %d", len(other.Fields), len(s.Fields))
	}
	for i := range s.Fields {
		if s.Fields[i] != other.Fields[i] {
			return fmt.Errorf("schema field %d is %q, expected %q", i, other.Fields[i], s.Fields[i])
		}
	}
	return nil
}
