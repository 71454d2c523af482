package ksp

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotConverged is returned when an iterative solve exceeds its iteration
// cap. The caller sees the failure; nothing is retried internally.
var ErrNotConverged = errors.New("iteration cap exceeded before convergence")

// findRootBracket doubles the radius around center until f changes sign
// across the bracket.
func findRootBracket(f func(float64) float64, center, radius float64, iterMax int) (Interval, error) {
	for iter := 0; iter < iterMax; iter++ {
		a, b := center-radius, center+radius
		if f(a)*f(b) < 0 {
			return NewInterval(a, b), nil
		}
		radius *= 2
	}
	return Interval{}, fmt.Errorf("no sign change around %g: %w", center, ErrNotConverged)
}

// newtonPlusBisection finds the root of f within the bracketing interval.
// Newton steps are taken whenever they stay inside the bracket, and the
// bracket shrinks around every evaluation, so a wild derivative degrades to
// bisection instead of diverging. Adapted from rtsafe (Numerical Recipes).
func newtonPlusBisection(fAndDeriv func(float64) (float64, float64), bracket Interval, iterMax int) (float64, error) {
	guess := bracket.Midpoint()
	fLo, _ := fAndDeriv(bracket.Lo)
	loIsNeg := fLo < 0

	for iter := 0; iter < iterMax; iter++ {
		f, fPrime := fAndDeriv(guess)

		if loIsNeg == (f < 0) {
			bracket = Interval{guess, bracket.Hi}
		} else {
			bracket = Interval{bracket.Lo, guess}
		}

		// Interval exhausted at this precision.
		mid := bracket.Midpoint()
		if mid == bracket.Lo || mid == bracket.Hi {
			return guess, nil
		}

		newton := guess - f/fPrime
		if bracket.Contains(newton) && newton != bracket.Lo && newton != bracket.Hi {
			guess = newton
		} else {
			guess = mid
		}
	}
	return 0, fmt.Errorf("root in %s: %w", bracket, ErrNotConverged)
}

// polishRoot drives plain Newton iteration to its floating-point fixed point.
// Starting anywhere in the quadratic-convergence basin lands on the same
// final value, which makes event times independent of the shape of the
// search window that located them. A terminal two-cycle between adjacent
// ulps resolves to the smaller value.
func polishRoot(fAndDeriv func(float64) (float64, float64), x float64) float64 {
	prev := math.NaN()
	for iter := 0; iter < 50; iter++ {
		f, fPrime := fAndDeriv(x)
		if fPrime == 0 {
			return x
		}
		next := x - f/fPrime
		if next == x {
			return x
		}
		if next == prev {
			return math.Min(x, next)
		}
		prev = x
		x = next
	}
	return x
}

// krawczykUnique applies the Krawczyk–Moore existence and uniqueness test to
// g over the interval iv, given an enclosure derivI of g' over iv.
//
//	K = m - g(m)/g'(m) + (1 - G'/g'(m)) · (iv - m)
//
// If K lands strictly inside iv, then g has exactly one simple root in iv and
// Newton started from the midpoint converges to it. A false return is not a
// disproof; the caller subdivides and tries again.
func krawczykUnique(g func(float64) (float64, float64), derivI Interval, iv Interval) bool {
	m := iv.Midpoint()
	gm, gpm := g(m)
	if gpm == 0 {
		return false
	}
	radius := Interval{iv.Lo - m, iv.Hi - m}
	contraction := PointInterval(1).Sub(derivI.DivScalar(gpm))
	k := contraction.Mul(radius).AddScalar(m - gm/gpm)
	return k.StrictlyInside(iv)
}
