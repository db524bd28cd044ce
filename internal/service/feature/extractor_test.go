package feature

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func sine(seconds float64, freq float64, rate int) []float64 {
	n := int(float64(rate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.6 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func noise(seconds float64, rate int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	n := int(float64(rate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func TestExtract_ShapeFixedRegardlessOfInput(t *testing.T) {
	e := New(Config{})

	tests := []struct {
		name    string
		seconds float64
		rate    int
	}{
		{"short clip 22050", 0.5, 22050},
		{"exact clip 22050", 3.0, 22050},
		{"long clip 22050", 5.0, 22050},
		{"opus rate", 1.0, 48000},
		{"low rate", 2.0, 8000},
		{"empty input", 0, 22050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pcm []float64
			if tt.seconds > 0 {
				pcm = sine(tt.seconds, 440, tt.rate)
			}
			tensor, err := e.Extract(pcm, tt.rate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := tensor.Shape(); got != [3]int{64, 129, 1} {
				t.Errorf("expected shape (64, 129, 1), got %v", got)
			}
			if len(tensor.Data) != 64*129 {
				t.Errorf("expected %d values, got %d", 64*129, len(tensor.Data))
			}
			for i, v := range tensor.Data {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("non-finite value %f at index %d", v, i)
				}
			}
		})
	}
}

func TestExtract_Normalization(t *testing.T) {
	e := New(Config{})

	tensor, err := e.Extract(noise(3.0, 22050, 42), 22050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sum float64
	for _, v := range tensor.Data {
		sum += v
	}
	mean := sum / float64(len(tensor.Data))

	var ss float64
	for _, v := range tensor.Data {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(tensor.Data)))

	// The z-score runs over the full matrix before the frame axis is trimmed
	// to 129, so the final tensor is near- but not exactly normalized.
	if math.Abs(mean) > 0.1 {
		t.Errorf("expected mean near 0, got %f", mean)
	}
	if math.Abs(std-1) > 0.1 {
		t.Errorf("expected std near 1, got %f", std)
	}
}

func TestExtract_SilentInput(t *testing.T) {
	e := New(Config{})

	tensor, err := e.Extract(make([]float64, 22050), 22050)
	if err != nil {
		t.Fatalf("silent input must not fail, got %v", err)
	}
	if got := tensor.Shape(); got != [3]int{64, 129, 1} {
		t.Errorf("expected fixed shape on silence, got %v", got)
	}
	// Constant log-mel matrix: the epsilon guard turns every value into 0.
	for i, v := range tensor.Data {
		if v != 0 {
			t.Fatalf("expected all-zero tensor for silence, got %f at index %d", v, i)
		}
	}
}

func TestExtract_TruncationUsesOnlyFirstThreeSeconds(t *testing.T) {
	e := New(Config{})

	long := sine(5.0, 523.25, 22050)
	prefix := long[:int(3.0*22050)]

	fromLong, err := e.Extract(long, 22050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromPrefix, err := e.Extract(prefix, 22050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(fromLong.Data, fromPrefix.Data) {
		t.Error("tensor from 5s clip must equal tensor from its first 3s")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := New(Config{})
	pcm := sine(1.5, 330, 22050)

	a, err := e.Extract(pcm, 22050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.Extract(pcm, 22050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a.Data, b.Data) {
		t.Error("extraction must be deterministic across calls")
	}
}

func TestExtract_InvalidRate(t *testing.T) {
	e := New(Config{})

	if _, err := e.Extract(sine(1, 440, 22050), 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := e.Extract(sine(1, 440, 22050), -1); err == nil {
		t.Error("expected error for negative sample rate")
	}

	var extErr *ExtractionError
	_, err := e.Extract(nil, 0)
	if err == nil {
		t.Fatal("expected extraction error")
	}
	if !errors.As(err, &extErr) {
		t.Errorf("expected *ExtractionError, got %T", err)
	}
}

func TestExtract_NonFiniteInput(t *testing.T) {
	e := New(Config{})

	pcm := sine(1, 440, 22050)
	pcm[100] = math.NaN()

	if _, err := e.Extract(pcm, 22050); err == nil {
		t.Error("expected error for NaN sample")
	}
}

func TestTensor_At(t *testing.T) {
	e := New(Config{})
	tensor, err := e.Extract(sine(1, 440, 22050), 22050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tensor.At(5, 7); got != tensor.Data[5*129+7] {
		t.Errorf("At(5,7) = %f, want %f", got, tensor.Data[5*129+7])
	}
}
