package ksp

import "math"

// stumpffSeriesThreshold is where the evaluation switches between the Taylor
// series and the trig/hyperbolic closed forms. Below it the closed forms for
// c2 and c3 lose digits to cancellation; above it the series needs too many
// terms.
const stumpffSeriesThreshold = 1.0

// stumpffC returns the four Stumpff functions c0(x)..c3(x), where
//
//	c_k(x) = Σ_{i≥0} (-x)^i / (k+2i)!
//
// For x > 0 these reduce to cos/sin combinations, for x < 0 to cosh/sinh, and
// at x = 0 to 1/k!. The two code paths agree to a few ulps at the threshold.
func stumpffC(x float64) [4]float64 {
	if math.Abs(x) < stumpffSeriesThreshold {
		// Series for the two highest orders, then the recurrence
		// c_k = 1/k! - x c_{k+2} downward. Going down is stable; going up
		// (c_{k+2} = (1/k! - c_k)/x) is what cancels catastrophically.
		c2 := stumpffSeries(x, 2)
		c3 := stumpffSeries(x, 3)
		return [4]float64{1 - x*c2, 1 - x*c3, c2, c3}
	}
	var c0, c1 float64
	if x > 0 {
		u := math.Sqrt(x)
		c0 = math.Cos(u)
		c1 = math.Sin(u) / u
	} else {
		u := math.Sqrt(-x)
		c0 = math.Cosh(u)
		c1 = math.Sinh(u) / u
	}
	// With |x| >= 1 and c0, c1 order unity, the upward recurrence is safe.
	return [4]float64{c0, c1, (1 - c0) / x, (1 - c1) / x}
}

// stumpffSeries evaluates c_k(x) by its Taylor series, truncating once the
// next term no longer moves the partial sum.
func stumpffSeries(x, k float64) float64 {
	term := 1 / factorial(k)
	sum := term
	for i := 1.0; ; i++ {
		// term_{i} = term_{i-1} * (-x) / ((k+2i-1)(k+2i))
		term *= -x / ((k + 2*i - 1) * (k + 2*i))
		next := sum + term
		if next == sum {
			return sum
		}
		sum = next
	}
}

func factorial(k float64) float64 {
	f := 1.0
	for i := 2.0; i <= k; i++ {
		f *= i
	}
	return f
}

// stumpffG returns G_0..G_3 where G_k(β, s) = s^k c_k(β s²). These satisfy
// dG_{k+1}/ds = G_k and the recurrence G_k = s^k/k! - β G_{k+2}.
func stumpffG(β, s float64) [4]float64 {
	c := stumpffC(β * s * s)
	return [4]float64{c[0], s * c[1], s * s * c[2], s * s * s * c[3]}
}
