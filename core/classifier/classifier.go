// Package classifier applies a pre-trained genre model to feature vectors.
package classifier

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"GenreFM/core/features"
)

// Model is a loaded inference model. Implementations are immutable and safe
// for concurrent use. Predict returns the winning class position and a score
// per class position.
type Model interface {
	Predict(x []float64) (int, []float64, error)
}

// Prediction is the outcome of one classification.
type Prediction struct {
	Index  int                `json:"index"`
	Label  string             `json:"label"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Info describes a loaded artifact.
type Info struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Kind    string          `json:"kind"`
	Trained string          `json:"trained,omitempty"`
	Schema  features.Schema `json:"schema"`
	Classes []Genre         `json:"classes"`
}

// Classifier pairs a model with its class list. It is read-only after New.
type Classifier struct {
	info    Info
	classes []int
	model   Model
}

// New validates a and builds its model.
func New(a *Artifact) (*Classifier, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	info := Info{
		Name:    a.Name,
		Version: a.Version,
		Kind:    a.Kind,
		Trained: a.Trained,
		Schema:  a.Schema,
	}
	for _, c := range a.Classes {
		label, _ := Label(c)
		info.Classes = append(info.Classes, Genre{Index: c, Label: label})
	}
	return &Classifier{
		info:    info,
		classes: append([]int(nil), a.Classes...),
		model:   a.model(),
	}, nil
}

// NewWithModel wraps an arbitrary model. classes maps class positions to
// genre indices.
func NewWithModel(info Info, classes []int, m Model) *Classifier {
	return &Classifier{info: info, classes: classes, model: m}
}

// LoadBytes decodes and validates an artifact.
func LoadBytes(data []byte, format Format) (*Classifier, error) {
	a, err := DecodeArtifact(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return New(a)
}

// Load reads an artifact file; the format follows the extension.
func Load(path string) (*Classifier, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	return LoadBytes(data, format)
}

// Info returns the artifact metadata.
func (c *Classifier) Info() Info {
	return c.info
}

// Version identifies the loaded model, for cache keys and history.
func (c *Classifier) Version() string {
	return c.info.Name + "@" + c.info.Version
}

// Classify runs one inference and maps the result to a genre label.
func (c *Classifier) Classify(vec features.FeatureVector) (Prediction, error) {
	pos, scores, err := c.model.Predict(vec.Values())
	if err != nil {
		if errors.Is(err, ErrPrediction) {
			return Prediction{}, err
		}
		return Prediction{}, fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	if pos < 0 || pos >= len(c.classes) {
		return Prediction{}, fmt.Errorf("%w: model returned class position %d of %d", ErrLookup, pos, len(c.classes))
	}
	index := c.classes[pos]
	label, err := Label(index)
	if err != nil {
		return Prediction{}, err
	}

	p := Prediction{Index: index, Label: label}
	if len(scores) == len(c.classes) {
		p.Scores = make(map[string]float64, len(scores))
		for i, s := range scores {
			if l, err := Label(c.classes[i]); err == nil {
				p.Scores[l] = s
			}
		}
	}
	return p, nil
}

// Loader loads a classifier at most once per process and hands out the same
// read-only instance afterwards.
type Loader struct {
	once sync.Once
	load func() (*Classifier, error)
	c    *Classifier
	err  error
}

// NewLoader wraps a load function.
func NewLoader(load func() (*Classifier, error)) *Loader {
	return &Loader{load: load}
}

// FileLoader loads the artifact at path.
func FileLoader(path string) *Loader {
	return NewLoader(func() (*Classifier, error) { return Load(path) })
}

// Get runs the load function on first use and returns its result thereafter.
func (l *Loader) Get() (*Classifier, error) {
	l.once.Do(func() {
		l.c, l.err = l.load()
	})
	return l.c, l.err
}
