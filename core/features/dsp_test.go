package features

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestMelScale(t *testing.T) {
	if got := hzToMel(1000); math.Abs(got-15) > 1e-9 {
		t.Fatalf("hzToMel(1000) = %f, want 15", got)
	}
	for _, hz := range []float64{60, 440, 1000, 4000, 11025} {
		if back := melToHz(hzToMel(hz)); math.Abs(back-hz) > 1e-6 {
			t.Errorf("mel round trip of %f gave %f", hz, back)
		}
	}
}

func TestMelFilterBankCoversSpectrum(t *testing.T) {
	bank := melFilterBank(testRate, 2048, 128, 0, 0)
	if len(bank) != 128 {
		t.Fatalf("expected 128 filters, got %d", len(bank))
	}
	for m, f := range bank {
		if len(f.weights) == 0 {
			t.Fatalf("filter %d is empty", m)
		}
		if f.lo+len(f.weights) > 1025 {
			t.Fatalf("filter %d overruns the spectrum", m)
		}
	}
}

func TestPowerToDBClipsToTopDB(t *testing.T) {
	db := powerToDB([][]float64{{1, 1e-3, 0}}, 1, 1e-10, 80)
	want := []float64{0, -30, -80}
	for i := range want {
		if math.Abs(db[0][i]-want[i]) > 1e-9 {
			t.Fatalf("db[%d] = %f, want %f", i, db[0][i], want[i])
		}
	}
}

func TestMedianWindowReflectsEdges(t *testing.T) {
	w := newMedianWindow(3)
	dst := make([]float64, 3)
	w.filter([]float64{5, 1, 3}, dst)
	want := []float64{5, 3, 3}
	if !floats.Equal(dst, want) {
		t.Fatalf("got %v, want %v", dst, want)
	}

	w = newMedianWindow(5)
	src := []float64{1, 9, 2, 8, 3, 7, 4}
	dst = make([]float64, len(src))
	w.filter(src, dst)
	want = []float64{2, 2, 3, 7, 4, 4, 4}
	if !floats.Equal(dst, want) {
		t.Fatalf("got %v, want %v", dst, want)
	}
}

func TestDCTBasisIsOrthonormal(t *testing.T) {
	basis := newDCTBasis(8, 8)
	for i := range basis {
		for j := range basis {
			got := floats.Dot(basis[i], basis[j])
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("<row%d,row%d> = %f, want %f", i, j, got, want)
			}
		}
	}
}

func TestISTFTInvertsSTFT(t *testing.T) {
	y := make([]float64, 4096)
	for i := range y {
		y[i] = math.Sin(2*math.Pi*220*float64(i)/testRate) + 0.25*math.Cos(2*math.Pi*1300*float64(i)/testRate)
	}
	back := istft(stft(y, 2048, 512), 2048, 512, len(y))
	for i := range y {
		if math.Abs(back[i]-y[i]) > 1e-6 {
			t.Fatalf("sample %d: got %f want %f", i, back[i], y[i])
		}
	}
}

func TestChromaFilterBankPlacesA(t *testing.T) {
	bank := chromaFilterBank(testRate, 2048, 12, 0)
	k := int(math.Round(440 * 2048 / float64(testRate)))
	best := 0
	for c := range bank {
		if bank[c][k] > bank[best][k] {
			best = c
		}
	}
	if best != 9 {
		t.Fatalf("440 Hz mapped to pitch class %d, want 9 (A)", best)
	}
}

func TestEstimateTuning(t *testing.T) {
	if got := estimateTuning(nil, 12); got != 0 {
		t.Fatalf("no peaks: got %f", got)
	}
	sharp := 440 * math.Pow(2, 0.2/12)
	peaks := []pitchPeak{{freq: sharp, mag: 1}, {freq: sharp * 2, mag: 1}, {freq: 300, mag: 0.01}}
	if got := estimateTuning(peaks, 12); math.Abs(got-0.2) > 0.011 {
		t.Fatalf("tuning %f, want ~0.2", got)
	}
}

func TestEstimateTempoWithoutOnsets(t *testing.T) {
	if got := estimateTempo(make([]float64, 500), testRate, 512, DefaultTempoConfig()); got != 0 {
		t.Fatalf("expected 0 BPM, got %f", got)
	}
}

func TestEstimateTempoImpulseTrain(t *testing.T) {
	// 100 BPM at 22050/512 frames per second is a period of ~25.84 frames.
	fps := float64(testRate) / 512
	period := 60 * fps / 100
	env := make([]float64, 1000)
	for b := 0.0; ; b++ {
		i := int(math.Round(b * period))
		if i >= len(env) {
			break
		}
		env[i] = 1
	}
	if got := estimateTempo(env, testRate, 512, DefaultTempoConfig()); math.Abs(got-100) > 5 {
		t.Fatalf("tempo %f, want ~100", got)
	}
}

func TestVectorValidateRejectsNonFinite(t *testing.T) {
	vec := FeatureVector{Tempo: 120}
	if err := vec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vec.MFCC = math.NaN()
	if err := vec.Validate(); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestFromValuesMatchesFieldOrder(t *testing.T) {
	values := make([]float64, NumFields)
	for i := range values {
		values[i] = float64(i + 1)
	}
	vec, err := FromValues(values)
	if err != nil {
		t.Fatalf("from values: %v", err)
	}
	named := vec.Named()
	for i, name := range FieldNames {
		if named[name] != values[i] {
			t.Errorf("%s = %f, want %f", name, named[name], values[i])
		}
	}
	if _, err := FromValues(values[:3]); err == nil {
		t.Fatal("expected error for short vector")
	}
}

func TestSchemaCompatible(t *testing.T) {
	base := DefaultSchema()
	if err := base.Compatible(DefaultSchema()); err != nil {
		t.Fatalf("identical schema: %v", err)
	}

	other := DefaultSchema()
	other.Version = "genre-features/v0"
	if err := base.Compatible(other); err == nil {
		t.Error("expected version mismatch")
	}

	other = DefaultSchema()
	other.Fields[0], other.Fields[1] = other.Fields[1], other.Fields[0]
	if err := base.Compatible(other); err == nil {
		t.Error("expected field order mismatch")
	}

	other = DefaultSchema()
	other.Fields = other.Fields[:10]
	if err := base.Compatible(other); err == nil {
		t.Error("expected field count mismatch")
	}
}
