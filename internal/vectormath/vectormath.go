// Package vectormath provides the similarity and score-fusion primitives used
// by hybrid search. The ranked query normally computes cosine distance inside
// Postgres via the pgvector <=> operator; these functions exist for score
// post-processing and for client-side ranking when no vector-capable store is
// available.
package vectormath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrDimensionMismatch is returned when two vectors of unequal length are
// compared. With honest embedders this cannot happen, but it is checked
// rather than assumed.
type ErrDimensionMismatch struct {
	LenU, LenV int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d vs %d", e.LenU, e.LenV)
}

// CosineSimilarity computes dot(u,v) / (|u|*|v|). Range is [-1, 1] for
// arbitrary vectors. When either vector has zero norm the result is 0: no
// signal, not an error.
func CosineSimilarity(u, v []float32) (float64, error) {
	if len(u) != len(v) {
		return 0, &ErrDimensionMismatch{LenU: len(u), LenV: len(v)}
	}

	var dot, normU, normV float64
	for i := range u {
		dot += float64(u[i]) * float64(v[i])
		normU += float64(u[i]) * float64(u[i])
		normV += float64(v[i]) * float64(v[i])
	}

	denom := math.Sqrt(normU) * math.Sqrt(normV)
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}

// WeightedScore pairs a similarity value with its fusion weight.
type WeightedScore struct {
	Value  float64
	Weight float64
}

// FuseScores combines per-modality similarities into one ranking score by
// weighted average. An absent modality contributes no weight rather than a
// zero value, so a single-modality match is not penalized for the signal it
// never had. Zero total weight yields 0.
func FuseScores(scores []WeightedScore) float64 {
	var totalWeight, weightedSum float64
	for _, s := range scores {
		totalWeight += s.Weight
		weightedSum += s.Value * s.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// ParseVector decodes the pgvector text format "[0.1,0.2,...]".
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector element %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// FormatVector encodes a vector in the pgvector text format.
func FormatVector(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
