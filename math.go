package ksp

import (
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// unit returns the unit vector of a given vector, or the zero vector if the
// input is too small to normalize.
func unit(a []float64) (b []float64) {
	n := norm(a)
	if floats.EqualWithinAbs(n, 0, 1e-20) {
		return []float64{0, 0, 0}
	}
	b = make([]float64, len(a))
	for i, val := range a {
		b[i] = val / n
	}
	return
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if floats.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// dot performs the inner product via mat64/BLAS.
func dot(a, b []float64) float64 {
	return mat64.Dot(mat64.NewVector(len(a), a), mat64.NewVector(len(b), b))
}

// cross performs the cross product.
func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]}
}

// vAdd returns a+b.
func vAdd(a, b []float64) []float64 {
	return []float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// vSub returns a-b.
func vSub(a, b []float64) []float64 {
	return []float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// vScale returns k*a.
func vScale(k float64, a []float64) []float64 {
	return []float64{k * a[0], k * a[1], k * a[2]}
}

// reject computes the vector rejection of u from v. v must be non-zero.
func reject(u, v []float64) []float64 {
	k := dot(u, v) / dot(v, v)
	return vSub(u, vScale(k, v))
}

// directedAngle returns the angle between u and v, measured as a positive
// angle around up.
func directedAngle(u, v, up []float64) float64 {
	cosθ := dot(u, v) / (norm(u) * norm(v))
	// |cosθ| may overshoot 1 by an ulp or two, and math.Acos returns NaN there.
	if cosθ > 1 {
		cosθ = 1
	} else if cosθ < -1 {
		cosθ = -1
	}
	θ := math.Acos(cosθ)
	if dot(cross(u, v), up) >= 0 {
		return θ
	}
	return 2*math.Pi - θ
}
