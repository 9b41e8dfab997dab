// Package vector provides similarity and distance helpers over embedding and feature vectors.
package vector

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Float64s widens x for the gonum routines.
func Float64s(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return floats.Dot(Float64s(a), Float64s(b))
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	return floats.Norm(Float64s(x), 2)
}

// Cosine returns the cosine similarity of a and b. Mismatched lengths or a
// zero-norm operand yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return cosine(Float64s(a), Float64s(b), -1, -1)
}

// cosine takes precomputed norms when they are non-negative.
func cosine(a, b []float64, na, nb float64) float64 {
	if na < 0 {
		na = floats.Norm(a, 2)
	}
	if nb < 0 {
		nb = floats.Norm(b, 2)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// SimilarityMatrix returns the symmetric pairwise cosine matrix with 1 on the diagonal.
func SimilarityMatrix(vectors [][]float32) [][]float64 {
	n := len(vectors)
	wide := make([][]float64, n)
	norms := make([]float64, n)
	for i, v := range vectors {
		wide[i] = Float64s(v)
		norms[i] = floats.Norm(wide[i], 2)
	}
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var s float64
			if len(wide[i]) == len(wide[j]) && len(wide[i]) > 0 {
				s = cosine(wide[i], wide[j], norms[i], norms[j])
			}
			m[i][j] = s
			m[j][i] = s
		}
	}
	return m
}

// UpperTriangle returns the off-diagonal pairs (i < j) of a square matrix.
func UpperTriangle(m [][]float64) []float64 {
	n := len(m)
	if n < 2 {
		return nil
	}
	out := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, m[i][j])
		}
	}
	return out
}

// MeanOffDiagonal returns the mean of the off-diagonal entries of a symmetric
// matrix, or 0 with fewer than two rows.
func MeanOffDiagonal(m [][]float64) float64 {
	pairs := UpperTriangle(m)
	if len(pairs) == 0 {
		return 0
	}
	return floats.Sum(pairs) / float64(len(pairs))
}

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between closest ranks, the numpy default. values is not
// modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Euclidean returns the Euclidean distance between a and b over their common prefix.
func Euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return floats.Distance(a[:n], b[:n], 2)
}
