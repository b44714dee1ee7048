package vectormath

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		u, v []float32
		want float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero left", []float32{0, 0}, []float32{1, 2}, 0},
		{"zero right", []float32{3, 4}, []float32{0, 0}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.u, tt.v)
			if err != nil {
				t.Fatalf("CosineSimilarity() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_Symmetry(t *testing.T) {
	u := []float32{0.3, -0.7, 1.2, 0.05}
	v := []float32{0.9, 0.1, -0.4, 2.2}

	uv, err := CosineSimilarity(u, v)
	if err != nil {
		t.Fatalf("CosineSimilarity(u, v) error = %v", err)
	}
	vu, err := CosineSimilarity(v, u)
	if err != nil {
		t.Fatalf("CosineSimilarity(v, u) error = %v", err)
	}
	if uv != vu {
		t.Errorf("similarity not symmetric: %v vs %v", uv, vu)
	}

	self, err := CosineSimilarity(u, u)
	if err != nil {
		t.Fatalf("CosineSimilarity(u, u) error = %v", err)
	}
	if math.Abs(self-1) > 1e-9 {
		t.Errorf("CosineSimilarity(u, u) = %v, want 1", self)
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2})
	if err == nil {
		t.Fatal("expected error for unequal lengths, got nil")
	}

	var dimErr *ErrDimensionMismatch
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected *ErrDimensionMismatch, got %T", err)
	}
	if dimErr.LenU != 3 || dimErr.LenV != 2 {
		t.Errorf("ErrDimensionMismatch lengths = (%d, %d), want (3, 2)", dimErr.LenU, dimErr.LenV)
	}
}

func TestFuseScores(t *testing.T) {
	tests := []struct {
		name   string
		scores []WeightedScore
		want   float64
	}{
		{"single score", []WeightedScore{{0.8, 1.0}}, 0.8},
		{"equal weights", []WeightedScore{{0.8, 0.5}, {0.4, 0.5}}, 0.6},
		{"empty", nil, 0},
		{"zero weight", []WeightedScore{{0.9, 0}}, 0},
		{"renormalized single modality", []WeightedScore{{0.7, 0.5}}, 0.7},
		{"uneven weights", []WeightedScore{{1.0, 0.75}, {0.0, 0.25}}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FuseScores(tt.scores)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FuseScores() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormatVector(t *testing.T) {
	vec := []float32{0.125, -1.5, 3}

	s := FormatVector(vec)
	if s != "[0.125,-1.5,3]" {
		t.Errorf("FormatVector() = %q", s)
	}

	parsed, err := ParseVector(s)
	if err != nil {
		t.Fatalf("ParseVector() error = %v", err)
	}
	if len(parsed) != len(vec) {
		t.Fatalf("ParseVector() len = %d, want %d", len(parsed), len(vec))
	}
	for i := range vec {
		if parsed[i] != vec[i] {
			t.Errorf("ParseVector()[%d] = %v, want %v", i, parsed[i], vec[i])
		}
	}
}

func TestParseVector_Invalid(t *testing.T) {
	if _, err := ParseVector("[1,abc,3]"); err == nil {
		t.Error("expected error for non-numeric element")
	}

	got, err := ParseVector("[]")
	if err != nil {
		t.Fatalf("ParseVector(\"[]\") error = %v", err)
	}
	if got != nil {
		t.Errorf("ParseVector(\"[]\") = %v, want nil", got)
	}
}
