package ksp

import (
	"math"
	"testing"
)

// activeZRotation builds a transform whose child frame is rotated by θ about
// z, origin at translation, moving and spinning as given (parent coords).
func activeZRotation(θ float64, translation, velocity, angular []float64) FrameTransform {
	return FrameTransform{
		T:   translation,
		Rot: R3(-θ),
		V:   velocity,
		Ω:   angular,
	}
}

func TestFramePointTransform(t *testing.T) {
	// Child frame rotated 90° about z, origin 3 units below the parent's.
	xfm := activeZRotation(math.Pi/2,
		[]float64{0, 0, -3}, []float64{0, 0, 0}, []float64{0, 0, 0})

	// Child → parent: the child's x-axis is the parent's y-axis.
	vectorsClose(t, []float64{0, 1, 0}, xfm.ToParentVector([]float64{1, 0, 0}), 1e-14, "vector to parent")

	// Parent → child via the inverse.
	inv := xfm.Inverse()
	vectorsClose(t, []float64{2, -1, 6}, inv.ToParentPoint([]float64{1, 2, 3}), 1e-14, "point to child")
	vectorsClose(t, []float64{2, -1, 3}, inv.ToParentVector([]float64{1, 2, 3}), 1e-14, "vector to child")
}

func TestFrameVelocityTransform(t *testing.T) {
	sqrt2 := math.Sqrt2

	// Child frame rotated 45° about z and spinning about the parent's
	// (1,1,0) axis, which is the child's x-axis.
	xfm := activeZRotation(math.Pi/4,
		[]float64{0, 0, 0}, []float64{0, 0, 0}, []float64{1 / sqrt2, 1 / sqrt2, 0})
	inv := xfm.Inverse()

	// On the rotation axis, velocity transforms like a plain vector.
	v := []float64{1, 3, 8}
	vectorsClose(t,
		inv.ToParentVector(v),
		inv.ToParentVelocity([]float64{0, 0, 0}, v), 1e-14, "velocity at origin")
	vectorsClose(t,
		inv.ToParentVector(v),
		inv.ToParentVelocity([]float64{-4, -4, 0}, v), 1e-13, "velocity on axis")

	// Points fixed in the parent frame acquire -Ω×r in the child frame.
	vectorsClose(t, []float64{0, 0, 1 / sqrt2},
		inv.ToParentVelocity([]float64{1, 0, 0}, []float64{0, 0, 0}), 1e-14, "fixed point x")
	vectorsClose(t, []float64{0, 0, -1 / sqrt2},
		inv.ToParentVelocity([]float64{0, 1, 0}, []float64{0, 0, 0}), 1e-14, "fixed point y")
	vectorsClose(t, []float64{0, 1, 0},
		inv.ToParentVelocity([]float64{0, 0, 1}, []float64{0, 0, 0}), 1e-14, "fixed point z")

	// Add a linear velocity to the frame: every converted velocity picks up
	// the same offset.
	xfm2 := activeZRotation(math.Pi/4,
		[]float64{0, 0, 0}, []float64{0, 5, 0}, []float64{1 / sqrt2, 1 / sqrt2, 0})
	inv2 := xfm2.Inverse()
	got := inv2.ToParentVelocity([]float64{1, 0, 0}, []float64{0, 0, 0})
	vectorsClose(t,
		vAdd([]float64{0, 0, 1 / sqrt2}, MTxV33(xfm2.Rot, []float64{0, -5, 0})),
		got, 1e-13, "fixed point with frame velocity")
}

func TestFrameOffsetOrigin(t *testing.T) {
	sqrt2 := math.Sqrt2
	// Spinning frame with origin displaced along x.
	xfm := activeZRotation(math.Pi/4,
		[]float64{5, 0, 0}, []float64{0, 0, 0}, []float64{1 / sqrt2, 1 / sqrt2, 0})
	inv := xfm.Inverse()

	// A point at the child origin gets no extra boost.
	vectorsClose(t, []float64{0, 0, 0},
		inv.ToParentVelocity([]float64{5, 0, 0}, []float64{0, 0, 0}), 1e-13, "child origin at rest")

	// The parent origin sweeps around the spinning child.
	vectorsClose(t, vScale(-5/sqrt2, MTxV33(xfm.Rot, []float64{0, 0, 1})),
		inv.ToParentVelocity([]float64{0, 0, 0}, []float64{0, 0, 0}), 1e-13, "parent origin sweeps")
}

func TestFrameComposeAndInverse(t *testing.T) {
	xfm1 := FrameTransform{
		T:   []float64{-1, 4, 3},
		Rot: R3(-2.0),
		V:   []float64{1, 0, 5},
		Ω:   []float64{2, 0, 8},
	}
	xfm2 := FrameTransform{
		T:   []float64{10, 3, 0},
		Rot: R1(3.5),
		V:   []float64{0, -5, 8},
		Ω:   []float64{1, 1, 1},
	}

	// Applying the composition equals applying the parts in sequence.
	composed := xfm1.Compose(xfm2)
	pt := []float64{1, 2, 4}
	v := []float64{4, 1, 2}
	vectorsClose(t,
		xfm1.ToParentPoint(xfm2.ToParentPoint(pt)),
		composed.ToParentPoint(pt), 1e-13, "composed point")
	vectorsClose(t,
		xfm1.ToParentVelocity(xfm2.ToParentPoint(pt), xfm2.ToParentVelocity(pt, v)),
		composed.ToParentVelocity(pt, v), 1e-12, "composed velocity")

	// Round trips through the inverse restore the input.
	inv := xfm1.Inverse()
	vectorsClose(t, pt, inv.ToParentPoint(xfm1.ToParentPoint(pt)), 1e-13, "point round trip")
	vectorsClose(t, v,
		inv.ToParentVelocity(xfm1.ToParentPoint(pt), xfm1.ToParentVelocity(pt, v)),
		1e-12, "velocity round trip")

	// Composing with the inverse is the identity.
	ident := xfm1.Compose(inv)
	vectorsClose(t, []float64{0, 0, 0}, ident.T, 1e-13, "identity translation")
	vectorsClose(t, []float64{0, 0, 0}, ident.V, 1e-12, "identity velocity")
	vectorsClose(t, []float64{0, 0, 0}, ident.Ω, 1e-13, "identity angular velocity")
	vectorsClose(t, pt, ident.ToParentPoint(pt), 1e-13, "identity point")
}
