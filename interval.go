package ksp

import (
	"fmt"
	"math"
)

// Interval is a closed interval [Lo, Hi] of reals, the basic currency of the
// verified event search. Operations return enclosures: the true image of the
// inputs is always contained in the result, possibly with outward slack.
type Interval struct {
	Lo, Hi float64
}

// NewInterval returns the interval with the given endpoints in either order.
func NewInterval(a, b float64) Interval {
	if a <= b {
		return Interval{a, b}
	}
	return Interval{b, a}
}

// PointInterval returns the degenerate interval [v, v].
func PointInterval(v float64) Interval {
	return Interval{v, v}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Lo, i.Hi)
}

// Width returns Hi - Lo.
func (i Interval) Width() float64 {
	return i.Hi - i.Lo
}

// Midpoint returns the midpoint of the interval.
func (i Interval) Midpoint() float64 {
	return (i.Lo + i.Hi) / 2
}

// Norm returns the magnitude of the absolutely largest element.
func (i Interval) Norm() float64 {
	return math.Max(math.Abs(i.Lo), math.Abs(i.Hi))
}

// Contains returns whether value lies in the closed interval.
func (i Interval) Contains(value float64) bool {
	return i.Lo <= value && value <= i.Hi
}

// StrictlyInside returns whether i lies in the open interior of o. This is
// the inclusion the Krawczyk–Moore test needs: boundary contact proves
// nothing.
func (i Interval) StrictlyInside(o Interval) bool {
	return o.Lo < i.Lo && i.Hi < o.Hi
}

// Include grows the interval to contain value.
func (i Interval) Include(value float64) Interval {
	if value < i.Lo {
		i.Lo = value
	}
	if value > i.Hi {
		i.Hi = value
	}
	return i
}

// Bisect splits the interval at its midpoint.
func (i Interval) Bisect() (Interval, Interval) {
	mid := i.Midpoint()
	return Interval{i.Lo, mid}, Interval{mid, i.Hi}
}

// Add returns the interval sum.
func (i Interval) Add(o Interval) Interval {
	return Interval{i.Lo + o.Lo, i.Hi + o.Hi}
}

// Sub returns the interval difference.
func (i Interval) Sub(o Interval) Interval {
	return Interval{i.Lo - o.Hi, i.Hi - o.Lo}
}

// Neg returns the negated interval.
func (i Interval) Neg() Interval {
	return Interval{-i.Hi, -i.Lo}
}

// Mul returns the interval product.
func (i Interval) Mul(o Interval) Interval {
	out := NewInterval(i.Lo*o.Lo, i.Hi*o.Hi)
	out = out.Include(i.Lo * o.Hi)
	out = out.Include(i.Hi * o.Lo)
	return out
}

// AddScalar shifts the interval by v.
func (i Interval) AddScalar(v float64) Interval {
	return Interval{i.Lo + v, i.Hi + v}
}

// MulScalar scales the interval by v.
func (i Interval) MulScalar(v float64) Interval {
	return NewInterval(i.Lo*v, i.Hi*v)
}

// DivScalar divides the interval by a non-zero scalar.
func (i Interval) DivScalar(v float64) Interval {
	return NewInterval(i.Lo/v, i.Hi/v)
}

// Div returns the interval quotient. The second return is false when the
// divisor contains zero, in which case the quotient is unbounded and the
// caller must fall back to subdivision.
func (i Interval) Div(o Interval) (Interval, bool) {
	if o.Contains(0) {
		return Interval{}, false
	}
	out := NewInterval(i.Lo/o.Lo, i.Hi/o.Hi)
	out = out.Include(i.Lo / o.Hi)
	out = out.Include(i.Hi / o.Lo)
	return out, true
}

// Sqr returns an enclosure of {x² : x ∈ i}, tight at zero.
func (i Interval) Sqr() Interval {
	lo2, hi2 := i.Lo*i.Lo, i.Hi*i.Hi
	if i.Contains(0) {
		return Interval{0, math.Max(lo2, hi2)}
	}
	return NewInterval(lo2, hi2)
}

// SqrtNonneg returns an enclosure of the square root, clamping a slightly
// negative lower bound to zero.
func (i Interval) SqrtNonneg() Interval {
	lo := i.Lo
	if lo < 0 {
		lo = 0
	}
	hi := i.Hi
	if hi < 0 {
		hi = 0
	}
	return Interval{math.Sqrt(lo), math.Sqrt(hi)}
}

// SeparatedBy returns whether the two intervals are more than threshold
// apart.
func (i Interval) SeparatedBy(o Interval, threshold float64) bool {
	return (i.Hi+threshold < o.Lo) || (o.Hi+threshold < i.Lo)
}

// containsIntegerWithModConstraint returns whether the interval contains an
// integer of the form m·k + a.
func (i Interval) containsIntegerWithModConstraint(m, a int64) bool {
	loInt := int64(math.Ceil(i.Lo))
	b := ((loInt % m) + m) % m
	var next int64
	if b <= a {
		next = loInt + (a - b)
	} else {
		next = loInt + (m + a - b)
	}
	return i.Contains(float64(next))
}

// BoundingBox is an axis-aligned box of three coordinate intervals.
type BoundingBox [3]Interval

// SeparatedBy returns whether the boxes are more than threshold apart along
// at least one axis, which suffices for the true sets to be more than
// threshold apart.
func (b BoundingBox) SeparatedBy(o BoundingBox, threshold float64) bool {
	for axis := 0; axis < 3; axis++ {
		if b[axis].SeparatedBy(o[axis], threshold) {
			return true
		}
	}
	return false
}

// DistanceTo returns an enclosure of the Euclidean distance between a point
// of b and a point of o.
func (b BoundingBox) DistanceTo(o BoundingBox) Interval {
	sum := PointInterval(0)
	for axis := 0; axis < 3; axis++ {
		sum = sum.Add(b[axis].Sub(o[axis]).Sqr())
	}
	return sum.SqrtNonneg()
}

// Sub returns the componentwise difference of the boxes.
func (b BoundingBox) Sub(o BoundingBox) BoundingBox {
	return BoundingBox{b[0].Sub(o[0]), b[1].Sub(o[1]), b[2].Sub(o[2])}
}

// DotInterval returns an enclosure of the dot product of a vector of b with a
// vector of o.
func (b BoundingBox) DotInterval(o BoundingBox) Interval {
	sum := PointInterval(0)
	for axis := 0; axis < 3; axis++ {
		sum = sum.Add(b[axis].Mul(o[axis]))
	}
	return sum
}
