package ksp

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

// vectorsEqual returns whether both vectors are equal within a tight
// absolute tolerance.
func vectorsEqual(a, b []float64) bool {
	return vectorsEqualTol(a, b, 1e-9)
}

func vectorsEqualTol(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !floats.EqualWithinAbs(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

// vectorsClose compares relative to the magnitude of the expected vector.
func vectorsClose(t *testing.T, expected, actual []float64, relTol float64, msg string) {
	t.Helper()
	diff := norm(vSub(expected, actual))
	scale := norm(expected)
	if scale == 0 {
		scale = 1
	}
	if diff >= relTol*scale {
		t.Fatalf("%s: vectors differ by %e (rel %e)\nexpected %+v\nactual   %+v", msg, diff, diff/scale, expected, actual)
	}
}

func closeRel(t *testing.T, expected, actual, relTol float64, msg string) {
	t.Helper()
	scale := math.Abs(expected)
	if scale == 0 {
		scale = 1
	}
	if math.Abs(expected-actual) >= relTol*scale {
		t.Fatalf("%s: expected %v, got %v (rel err %e)", msg, expected, actual, math.Abs(expected-actual)/scale)
	}
}

func assertPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic")
		}
	}()
	f()
}

// mustSeedKerbol seeds the full catalogue plus the provided ships at t=0.
func mustSeedKerbol(t *testing.T, ships ...ShipSpec) *Timeline {
	t.Helper()
	tl, err := Seed(KerbolSystem(), ships, 0)
	if err != nil {
		t.Fatalf("seed failed: %s", err)
	}
	return tl
}

// bodyID looks up a catalogue body by name in the seed order.
func bodyID(t *testing.T, name string) EntityID {
	t.Helper()
	for _, spec := range KerbolSystem() {
		if spec.Name == name {
			return spec.ID
		}
	}
	t.Fatalf("no body named %s", name)
	return NoEntity
}
