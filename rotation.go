package ksp

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// R1 rotation about the 1st axis.
func R1(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m *mat64.Dense, v []float64) (o []float64) {
	vVec := mat64.NewVector(len(v), v)
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return []float64{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}

// MTxV33 multiplies the transpose of a matrix with a vector, i.e. applies the
// inverse of an orthonormal rotation.
func MTxV33(m *mat64.Dense, v []float64) (o []float64) {
	var mt mat64.Dense
	mt.Clone(m.T())
	return MxV33(&mt, v)
}

// Mx33 multiplies two 3x3 matrices.
func Mx33(a, b *mat64.Dense) *mat64.Dense {
	var out mat64.Dense
	out.Mul(a, b)
	return &out
}

// identity33 returns the 3x3 identity.
func identity33() *mat64.Dense {
	return mat64.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// rotationFromElements returns the active rotation taking the perifocal frame
// (periapsis along +x, angular momentum along +z) into the parent frame, for
// inclination i, longitude of ascending node Ω, and argument of periapsis ω
// (all radians). This is R3(-Ω)·R1(-i)·R3(-ω) in terms of the frame-rotation
// matrices above.
func rotationFromElements(i, Ω, ω float64) *mat64.Dense {
	return Mx33(Mx33(R3(-Ω), R1(-i)), R3(-ω))
}

// rotationFromColumns builds the rotation whose columns are the images of the
// canonical axes.
func rotationFromColumns(x, y, z []float64) *mat64.Dense {
	return mat64.NewDense(3, 3, []float64{
		x[0], y[0], z[0],
		x[1], y[1], z[1],
		x[2], y[2], z[2]})
}

// alwaysFindRotation returns a rotation sending the z- and x-axes to point
// along newZ and newX. Orthogonality of the inputs is not checked; newX is
// re-orthogonalized against newZ. If either input is shorter than tolerance,
// a semi-canonical substitute is chosen:
//   - small newZ: the most-z-like direction perpendicular to newX, or y if
//     newX itself points along z;
//   - small newX: the most-x-like direction perpendicular to newZ, or -y if
//     newZ points along x;
//   - both small: the identity.
//
// This is what keeps radial orbits (no angular momentum) and circular orbits
// (no eccentricity vector) representable without a special case upstream.
func alwaysFindRotation(newZ, newX []float64, tolerance float64) *mat64.Dense {
	zOK := norm(newZ) >= tolerance
	xOK := norm(newX) >= tolerance

	switch {
	case zOK && xOK:
		// fallthrough to the general construction below
	case !zOK && xOK:
		best := reject([]float64{0, 0, 1}, newX)
		if norm(best) < tolerance {
			best = []float64{0, 1, 0}
		}
		newZ = best
	case zOK && !xOK:
		best := reject([]float64{1, 0, 0}, newZ)
		if norm(best) < tolerance {
			best = []float64{0, -1, 0}
		}
		newX = best
	default:
		return identity33()
	}

	zHat := unit(newZ)
	xHat := unit(reject(newX, zHat))
	yHat := cross(zHat, xHat)
	return rotationFromColumns(xHat, yHat, zHat)
}
