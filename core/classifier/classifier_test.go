package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"GenreFM/core/features"
)

func loadTestArtifact(t *testing.T) *Artifact {
	t.Helper()
	data, err := os.ReadFile("testdata/forest.yaml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	a, err := DecodeArtifact(data, FormatYAML)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return a
}

func TestClassifyForest(t *testing.T) {
	c, err := Load("testdata/forest.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		name string
		vec  features.FeatureVector
		want string
	}{
		{"slow and dark", features.FeatureVector{Tempo: 80, SpectralCentroid: 500, RMS: 0.5}, "Classical"},
		{"fast bright quiet", features.FeatureVector{Tempo: 150, SpectralCentroid: 3000, RMS: 0.05}, "Rock"},
		{"three way tie", features.FeatureVector{Tempo: 150, SpectralCentroid: 500, RMS: 0.05}, "Dance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.Classify(tt.vec)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if p.Label != tt.want {
				t.Fatalf("got %q (%d), want %q", p.Label, p.Index, tt.want)
			}
			if len(p.Scores) != 3 {
				t.Fatalf("expected a score per class, got %v", p.Scores)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c, err := Load("testdata/forest.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	vec := features.FeatureVector{Tempo: 121.3, Key: 121.3, SpectralCentroid: 1800, RMS: 0.2}
	first, err := c.Classify(vec)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for i := 0; i < 50; i++ {
		p, err := c.Classify(vec)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if p.Index != first.Index {
			t.Fatalf("run %d returned %d, first run %d", i, p.Index, first.Index)
		}
	}
}

func TestArtifactCodecs(t *testing.T) {
	a := loadTestArtifact(t)
	vec := features.FeatureVector{Tempo: 80, SpectralCentroid: 500, RMS: 0.5}

	for _, format := range []Format{FormatYAML, FormatJSON, FormatMsgpack} {
		data, err := EncodeArtifact(a, format)
		if err != nil {
			t.Fatalf("%s encode: %v", format, err)
		}
		c, err := LoadBytes(data, format)
		if err != nil {
			t.Fatalf("%s load: %v", format, err)
		}
		p, err := c.Classify(vec)
		if err != nil {
			t.Fatalf("%s classify: %v", format, err)
		}
		if p.Label != "Classical" {
			t.Fatalf("%s: got %q", format, p.Label)
		}
		if c.Version() != "test-forest@0.1.0" {
			t.Fatalf("%s: version %q", format, c.Version())
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"m.yaml": FormatYAML, "m.YML": FormatYAML, "m.json": FormatJSON, "m.msgpack": FormatMsgpack,
	} {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("%s: got %q, %v", path, got, err)
		}
	}
	if _, err := FormatFromPath("model.pkl"); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestValidateRejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"schema version", func(a *Artifact) { a.Schema.Version = "genre-features/v0" }},
		{"field order", func(a *Artifact) {
			a.Schema.Fields[2], a.Schema.Fields[3] = a.Schema.Fields[3], a.Schema.Fields[2]
		}},
		{"unknown class", func(a *Artifact) { a.Classes = []int{0, 1, 7} }},
		{"unsorted classes", func(a *Artifact) { a.Classes = []int{1, 0, 2} }},
		{"no classes", func(a *Artifact) { a.Classes = nil }},
		{"unknown kind", func(a *Artifact) { a.Kind = "svm" }},
		{"missing body", func(a *Artifact) { a.Forest = nil }},
		{"leaf out of range", func(a *Artifact) { a.Forest.Trees[0].Nodes[1].Class = 3 }},
		{"child points back", func(a *Artifact) { a.Forest.Trees[0].Nodes[0].Right = 0 }},
		{"feature out of range", func(a *Artifact) { a.Forest.Trees[0].Nodes[0].Feature = features.NumFields }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := loadTestArtifact(t)
			tt.mutate(a)
			if _, err := New(a); !errors.Is(err, ErrSchema) {
				t.Fatalf("expected ErrSchema, got %v", err)
			}
		})
	}
}

func TestLoadBytesGarbage(t *testing.T) {
	if _, err := LoadBytes([]byte("{not json"), FormatJSON); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func logisticArtifact() *Artifact {
	n := features.NumFields
	spec := &LogisticSpec{
		Mean:      make([]float64, n),
		Scale:     make([]float64, n),
		Coef:      make([][]float64, 3),
		Intercept: []float64{0, 0, 0},
	}
	for i := range spec.Scale {
		spec.Scale[i] = 1
	}
	for c := range spec.Coef {
		spec.Coef[c] = make([]float64, n)
	}
	spec.Mean[0] = 120
	spec.Scale[0] = 20
	spec.Coef[0][0] = 2  // fast → Dance
	spec.Coef[1][0] = -2 // slow → Classical
	return &Artifact{
		Name:     "test-logistic",
		Version:  "1",
		Kind:     KindLogistic,
		Schema:   features.DefaultSchema(),
		Classes:  []int{0, 1, 2},
		Logistic: spec,
	}
}

func TestClassifyLogistic(t *testing.T) {
	c, err := New(logisticArtifact())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	fast, err := c.Classify(features.FeatureVector{Tempo: 170})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if fast.Label != "Dance" {
		t.Fatalf("fast tempo classified as %q", fast.Label)
	}
	sum := 0.0
	for _, s := range fast.Scores {
		sum += s
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("probabilities sum to %f", sum)
	}

	slow, err := c.Classify(features.FeatureVector{Tempo: 60})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if slow.Label != "Classical" {
		t.Fatalf("slow tempo classified as %q", slow.Label)
	}
}

func TestLogisticValidation(t *testing.T) {
	a := logisticArtifact()
	a.Logistic.Scale[4] = 0
	if _, err := New(a); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema for zero scale, got %v", err)
	}

	a = logisticArtifact()
	a.Logistic.Coef = a.Logistic.Coef[:2]
	if _, err := New(a); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema for missing class row, got %v", err)
	}
}

type stubModel struct {
	pos int
	err error
}

func (m stubModel) Predict([]float64) (int, []float64, error) {
	return m.pos, nil, m.err
}

func TestClassifyErrors(t *testing.T) {
	failing := NewWithModel(Info{Name: "stub"}, []int{0, 1, 2}, stubModel{err: ErrPrediction})
	if _, err := failing.Classify(features.FeatureVector{}); !errors.Is(err, ErrPrediction) {
		t.Fatalf("expected ErrPrediction, got %v", err)
	}

	cause := errors.New("matrix shape mismatch")
	plain := NewWithModel(Info{Name: "stub"}, []int{0, 1, 2}, stubModel{err: cause})
	_, err := plain.Classify(features.FeatureVector{})
	if !errors.Is(err, ErrPrediction) || !errors.Is(err, cause) {
		t.Fatalf("expected model error wrapped in ErrPrediction, got %v", err)
	}

	outOfRange := NewWithModel(Info{Name: "stub"}, []int{0, 1, 2}, stubModel{pos: 5})
	if _, err := outOfRange.Classify(features.FeatureVector{}); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup, got %v", err)
	}

	unmapped := NewWithModel(Info{Name: "stub"}, []int{9}, stubModel{pos: 0})
	if _, err := unmapped.Classify(features.FeatureVector{}); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup, got %v", err)
	}
}

func TestGenreMapCoversShippedModel(t *testing.T) {
	path := filepath.Join("..", "..", "data", "models", "genre_forest.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read shipped model: %v", err)
	}
	a, err := DecodeArtifact(data, FormatYAML)
	if err != nil {
		t.Fatalf("decode shipped model: %v", err)
	}
	if _, err := New(a); err != nil {
		t.Fatalf("shipped model invalid: %v", err)
	}
	for ti, tree := range a.Forest.Trees {
		for ni, n := range tree.Nodes {
			if !n.leaf() {
				continue
			}
			if _, err := Label(a.Classes[n.Class]); err != nil {
				t.Errorf("tree %d leaf %d: %v", ti, ni, err)
			}
		}
	}
}

func TestGenres(t *testing.T) {
	want := []string{"Dance", "Classical", "Rock"}
	got := Labels()
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("label %d is %q, want %q", i, got[i], want[i])
		}
	}
	if _, err := Label(3); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup, got %v", err)
	}
}

func TestLoaderLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	l := NewLoader(func() (*Classifier, error) {
		calls.Add(1)
		return Load("testdata/forest.yaml")
	})
	first, err := l.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for i := 0; i < 10; i++ {
		c, err := l.Get()
		if err != nil || c != first {
			t.Fatalf("get %d returned a different handle", i)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("load ran %d times", calls.Load())
	}
}

func TestLoaderRemembersFailure(t *testing.T) {
	l := FileLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := l.Get(); err == nil {
		t.Fatal("expected error")
	}
	if _, err := l.Get(); err == nil {
		t.Fatal("expected the same error on second get")
	}
}
