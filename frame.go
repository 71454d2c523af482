package ksp

import "github.com/gonum/matrix/mat64"

// FrameTransform is a rigid-body transform from a child frame into its parent
// frame: T is the child origin in parent coordinates, Rot takes child basis
// vectors to parent coordinates, V is the velocity of the child origin, and Ω
// is the angular velocity of the child frame, both in parent coordinates.
type FrameTransform struct {
	T   []float64
	Rot *mat64.Dense
	V   []float64
	Ω   []float64
}

// IdentityTransform returns the transform of a frame onto itself.
func IdentityTransform() FrameTransform {
	return FrameTransform{
		T:   []float64{0, 0, 0},
		Rot: identity33(),
		V:   []float64{0, 0, 0},
		Ω:   []float64{0, 0, 0},
	}
}

// TranslatingTransform returns a non-rotating transform: a frame whose origin
// sits at position with the given velocity, axes parallel to the parent's.
func TranslatingTransform(position, velocity []float64) FrameTransform {
	return FrameTransform{
		T:   position,
		Rot: identity33(),
		V:   velocity,
		Ω:   []float64{0, 0, 0},
	}
}

// Compose returns the transform of other's child frame into f's parent frame,
// where other maps into f's child frame (i.e. grandchild → parent).
func (f FrameTransform) Compose(other FrameTransform) FrameTransform {
	rT := MxV33(f.Rot, other.T)
	return FrameTransform{
		T:   vAdd(f.T, rT),
		Rot: Mx33(f.Rot, other.Rot),
		V:   vAdd(vAdd(f.V, MxV33(f.Rot, other.V)), cross(f.Ω, rT)),
		Ω:   vAdd(f.Ω, MxV33(f.Rot, other.Ω)),
	}
}

// Inverse returns the transform of the parent frame into the child frame.
// The linear velocity picks up a rotational cross term: the parent origin
// sweeps around a rotating child even when neither origin moves.
func (f FrameTransform) Inverse() FrameTransform {
	t := vScale(-1, MTxV33(f.Rot, f.T))
	ω := vScale(-1, MTxV33(f.Rot, f.Ω))
	v := vAdd(vScale(-1, MTxV33(f.Rot, f.V)), cross(ω, t))
	var rotT mat64.Dense
	rotT.Clone(f.Rot.T())
	return FrameTransform{T: t, Rot: &rotT, V: v, Ω: ω}
}

// ToParentPoint converts a position from child to parent coordinates.
func (f FrameTransform) ToParentPoint(r []float64) []float64 {
	return vAdd(f.T, MxV33(f.Rot, r))
}

// ToParentVector converts a direction from child to parent coordinates,
// ignoring the origin displacement.
func (f FrameTransform) ToParentVector(v []float64) []float64 {
	return MxV33(f.Rot, v)
}

// ToParentVelocity converts the velocity of a point at child-frame position r
// into parent coordinates. The Ω × r term is what distinguishes a rotating
// frame from a merely translating one.
func (f FrameTransform) ToParentVelocity(r, v []float64) []float64 {
	rP := MxV33(f.Rot, r)
	return vAdd(vAdd(f.V, MxV33(f.Rot, v)), cross(f.Ω, rP))
}
