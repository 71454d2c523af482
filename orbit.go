package ksp

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

const (
	// eccentricityε is the threshold below which an orbit is treated as
	// circular when fitting: the eccentricity vector no longer carries a
	// usable periapsis direction and the current radial direction is used
	// instead (any choice is exact for e=0).
	eccentricityε = 1e-10

	// rotationε is the length below which a vector is considered unusable as
	// a frame axis.
	rotationε = 1e-20
)

// Orbit is a two-body arc anchored at periapsis, parameterized by the
// universal anomaly s. The shape lives in (h, e, α): angular momentum
// disambiguates radial orbits (h=0, e=1, any α), which (r_p, a) alone cannot
// represent. The rotation takes the canonical frame — periapsis along +x,
// velocity at periapsis along +y, angular momentum along +z — into the
// parent frame. s=0 corresponds to t=tP.
type Orbit struct {
	μ   float64      // gravitational parameter of the parent
	h   float64      // angular momentum magnitude
	e   float64      // eccentricity
	α   float64      // inverse semi-major axis, signed
	rot *mat64.Dense // canonical → parent
	tP  float64      // time at periapsis
}

// NewOrbitFromRV fits an orbit to a position and velocity in the parent
// frame, observed at time t. This is the re-rooting entry point: the fitted
// arc reproduces (R, V) at t exactly, up to roundoff.
func NewOrbitFromRV(R, V []float64, μ, t float64) *Orbit {
	r := norm(R)
	v2 := dot(V, V)
	hVec := cross(R, V)
	h := norm(hVec)
	ξ := v2/2 - μ/r
	α := -2 * ξ / μ

	// Laplace–Runge–Lenz vector: v × h / μ - r̂.
	eVec := vSub(vScale(1/μ, cross(V, hVec)), unit(R))
	e := norm(eVec)

	periDir := eVec
	if e < eccentricityε {
		periDir = unit(R)
	}
	// For radial orbits hVec vanishes and the fallback keeps the r,v line in
	// the orbital plane.
	rot := alwaysFindRotation(hVec, periDir, rotationε)

	o := &Orbit{μ: μ, h: h, e: e, α: α, rot: rot}

	// Recover the current anomaly in closed form by reading G1 and G2 off the
	// state, then anchor tP so that s=0 is periapsis.
	β := o.Beta()
	rp := o.Periapsis()
	var g1, g2 float64
	if e >= eccentricityε {
		g1 = dot(R, V) / (μ * e) // r·ṙ = R⃗·V⃗ and dr/ds = μe·G1
		g2 = (r - rp) / (μ * e)
	}
	s := sFromG(β, g1, g2)
	o.tP = t - (rp*s + μ*e*stumpffG(β, s)[3])
	return o
}

// NewOrbitFromElements builds an orbit from classical elements: semi-major
// axis a, eccentricity e, inclination i, longitude of ascending node Ω,
// argument of periapsis ω (radians), and mean anomaly M0 at simulated time
// zero. Only closed orbits can be specified this way; open arcs come from
// NewOrbitFromRV. Angles follow the 3-1-3 convention of rotationFromElements.
func NewOrbitFromElements(a, e, i, Ω, ω, M0, μ float64) *Orbit {
	if e >= 1 || a <= 0 {
		panic(fmt.Errorf("elements describe an open orbit (a=%g, e=%g); seed open arcs from a state vector", a, e))
	}
	o := &Orbit{
		μ:   μ,
		h:   math.Sqrt(μ * a * (1 - e*e)),
		e:   e,
		α:   1 / a,
		rot: rotationFromElements(i, Ω, ω),
	}
	// M = 2π/P · (t - tP)
	o.tP = -M0 / (2 * math.Pi) * o.Period()
	return o
}

// sFromG recovers the universal anomaly from G1 and G2, using the branch
// structure of each conic family. For β>0 the pair (√β·G1, 1-β·G2) is
// (sin, cos) of √β·s; for β<0, √-β·G1 is sinh of √-β·s; for β=0, G1 is s
// itself.
func sFromG(β, g1, g2 float64) float64 {
	switch {
	case β > 0:
		sqβ := math.Sqrt(β)
		return math.Atan2(sqβ*g1, 1-β*g2) / sqβ
	case β < 0:
		sqβ := math.Sqrt(-β)
		return math.Asinh(sqβ*g1) / sqβ
	default:
		return g1
	}
}

// GM returns μ (which is unexported because it's a lowercase letter).
func (o *Orbit) GM() float64 {
	return o.μ
}

// HNorm returns the angular momentum magnitude.
func (o *Orbit) HNorm() float64 {
	return o.h
}

// Eccentricity returns e.
func (o *Orbit) Eccentricity() float64 {
	return o.e
}

// Beta returns β = μ/a, which classifies the conic: positive ellipse, zero
// parabola, negative hyperbola.
func (o *Orbit) Beta() float64 {
	return o.μ * o.α
}

// Energyξ returns the specific mechanical energy ξ.
func (o *Orbit) Energyξ() float64 {
	return -o.μ * o.α / 2
}

// SemiMajorAxis returns a, +Inf for a parabolic arc.
func (o *Orbit) SemiMajorAxis() float64 {
	if o.α == 0 {
		return math.Inf(1)
	}
	return 1 / o.α
}

// SemiLatusRectum returns h²/μ.
func (o *Orbit) SemiLatusRectum() float64 {
	return o.h * o.h / o.μ
}

// Periapsis returns the periapsis radius h²/(μ(1+e)). Zero for radial
// orbits, with no division by a vanishing 1-e.
func (o *Orbit) Periapsis() float64 {
	return o.h * o.h / (o.μ * (1 + o.e))
}

// Apoapsis returns the apoapsis radius, +Inf for open orbits.
func (o *Orbit) Apoapsis() float64 {
	if !o.IsClosed() {
		return math.Inf(1)
	}
	return 2/o.α - o.Periapsis()
}

// IsClosed returns whether the orbit is bound (β > 0).
func (o *Orbit) IsClosed() bool {
	return o.Beta() > 0
}

// Period returns the orbital period in seconds, +Inf for open orbits.
func (o *Orbit) Period() float64 {
	if !o.IsClosed() {
		return math.Inf(1)
	}
	a := 1 / o.α
	return 2 * math.Pi * math.Sqrt(a*a*a/o.μ)
}

// TimeAtPeriapsis returns tP.
func (o *Orbit) TimeAtPeriapsis() float64 {
	return o.tP
}

// Rotation returns the canonical-to-parent rotation.
func (o *Orbit) Rotation() *mat64.Dense {
	return o.rot
}

// RadiusAtS returns r(s) = r_p + μe·G2(β, s).
func (o *Orbit) RadiusAtS(s float64) float64 {
	return o.Periapsis() + o.μ*o.e*stumpffG(o.Beta(), s)[2]
}

// StateAtS returns position and velocity in the parent frame at universal
// anomaly s. Radial and parabolic arcs take the same path: nothing here
// divides by h or by β.
func (o *Orbit) StateAtS(s float64) (R, V []float64) {
	G := stumpffG(o.Beta(), s)
	rp := o.Periapsis()
	x := rp - o.μ*G[2]
	y := o.h * G[1]
	r := rp + o.μ*o.e*G[2]
	vx := -o.μ / r * G[1]
	vy := o.h / r * G[0]

	R = MxV33(o.rot, []float64{x, y, 0})
	V = MxV33(o.rot, []float64{vx, vy, 0})
	return
}

// TimeAtS returns t(s) = tP + r_p·s + μe·G3(β, s).
func (o *Orbit) TimeAtS(s float64) float64 {
	return o.tP + o.Periapsis()*s + o.μ*o.e*stumpffG(o.Beta(), s)[3]
}

// tspAndDeriv returns t(s)-tP and its derivative dt/ds = r(s).
func (o *Orbit) tspAndDeriv(s float64) (float64, float64) {
	G := stumpffG(o.Beta(), s)
	rp := o.Periapsis()
	return rp*s + o.μ*o.e*G[3], rp + o.μ*o.e*G[2]
}

// SAtTime inverts TimeAtS. The map is monotonic (dt/ds = r > 0), solved by
// Newton iteration safeguarded by bisection. For closed orbits the time
// since periapsis is first reduced modulo the period, so the returned s lies
// in [0, 2π/√β).
func (o *Orbit) SAtTime(t float64) (float64, error) {
	tsp := t - o.tP
	if o.IsClosed() {
		p := o.Period()
		tsp = math.Mod(tsp, p)
		if tsp < 0 {
			tsp += p
		}
	}
	return o.solveS(tsp)
}

// sAtTimeRaw is SAtTime without the modulo reduction: monotone over all of
// time, which is what interval endpoints require.
func (o *Orbit) sAtTimeRaw(t float64) (float64, error) {
	return o.solveS(t - o.tP)
}

func (o *Orbit) solveS(tsp float64) (float64, error) {
	if tsp == 0 {
		return 0, nil
	}
	fAndDeriv := func(s float64) (float64, float64) {
		ts, deriv := o.tspAndDeriv(s)
		return ts - tsp, deriv
	}

	// Initial scale: s grows like t/r. Periapsis sets the scale when it
	// exists; radial orbits fall back to the semi-major axis, and radial
	// parabolas to the exact t = μs³/6.
	var center float64
	switch {
	case o.Periapsis() > 0:
		center = tsp / o.Periapsis()
	case o.α != 0:
		center = tsp * math.Abs(o.α) * 2
	default:
		center = math.Cbrt(6 * tsp / o.μ)
	}

	iterMax := kspConfig().iterMax
	bracket, err := findRootBracket(func(s float64) float64 {
		f, _ := fAndDeriv(s)
		return f
	}, center, math.Max(math.Abs(center), 1e-9), iterMax)
	if err != nil {
		return 0, fmt.Errorf("s at tsp=%g: %w", tsp, err)
	}
	s, err := newtonPlusBisection(fAndDeriv, bracket, iterMax)
	if err != nil {
		return 0, fmt.Errorf("s at tsp=%g: %w", tsp, err)
	}
	return s, nil
}

// StateAtTime returns position and velocity in the parent frame at time t.
func (o *Orbit) StateAtTime(t float64) (R, V []float64, err error) {
	s, err := o.SAtTime(t)
	if err != nil {
		return nil, nil, err
	}
	R, V = o.StateAtS(s)
	return R, V, nil
}

// OrbitalAngularVelocityAtS returns the instantaneous orbital angular
// velocity vector h⃗/r² in the parent frame. This is the Ω a co-rotating
// orbital frame carries; it vanishes for radial orbits.
func (o *Orbit) OrbitalAngularVelocityAtS(s float64) []float64 {
	r := o.RadiusAtS(s)
	return MxV33(o.rot, []float64{0, 0, o.h / (r * r)})
}

// SAtRadius returns the first s > 0 at which r(s) reaches the given radius,
// or ok=false if the orbit never does. The root is certified by the
// Krawczyk–Moore test before Newton runs; failure to certify down to the
// subdivision floor reports a tangent contact.
func (o *Orbit) SAtRadius(radius float64) (s float64, ok bool, err error) {
	rp := o.Periapsis()
	μe := o.μ * o.e
	if radius <= rp || μe == 0 {
		// Inside periapsis, or circular: r never reaches it going out.
		return 0, false, nil
	}
	β := o.Beta()

	var sHi float64
	if o.IsClosed() {
		if radius >= o.Apoapsis() {
			return 0, false, nil
		}
		// r is monotone from periapsis to apoapsis, reached at s = π/√β.
		sHi = math.Pi / math.Sqrt(β)
	} else {
		sHi = 1
		for o.RadiusAtS(sHi) < radius {
			sHi *= 2
		}
	}

	g := func(s float64) (float64, float64) {
		G := stumpffG(β, s)
		return rp + μe*G[2] - radius, μe * G[1]
	}

	iv := Interval{0, sHi}
	cfg := kspConfig()
	for {
		derivI := g1Inclusion(β, iv).MulScalar(μe)
		if krawczykUnique(g, derivI, iv) {
			root, err := newtonPlusBisection(g, iv, cfg.iterMax)
			if err != nil {
				return 0, false, err
			}
			return polishRoot(g, root), true, nil
		}
		if iv.Width() < cfg.anomalyFloor {
			return 0, false, fmt.Errorf("radius %g on %s: %w", radius, iv, errTangentContact)
		}
		// r is monotone here, so keep the half that brackets the crossing.
		lo, hi := iv.Bisect()
		fLo, _ := g(lo.Lo)
		fMid, _ := g(lo.Hi)
		if fLo*fMid <= 0 {
			iv = lo
		} else {
			iv = hi
		}
	}
}

// check validates the primitive's internal consistency: the stored (h, e, α)
// must describe one conic, i.e. e² = 1 - α·h²/μ. Inconsistent triples (such
// as a parabolic eccentricity with non-zero β and non-zero h) are seed bugs.
func (o *Orbit) check() error {
	want := 1 - o.α*o.h*o.h/o.μ
	if want < 0 {
		want = 0
	}
	if math.Abs(o.e*o.e-want) > 1e-6*(1+want) {
		return fmt.Errorf("inconsistent orbit: e=%g, h=%g, 1/a=%g (e² should be %g)", o.e, o.h, o.α, want)
	}
	if o.μ <= 0 {
		return fmt.Errorf("non-positive gravitational parameter μ=%g", o.μ)
	}
	if o.h < 0 || o.e < 0 {
		return fmt.Errorf("negative orbit shape parameter: h=%g, e=%g", o.h, o.e)
	}
	return nil
}

// g1Inclusion returns an enclosure of G1(β, ·) over the s-interval. For β≤0,
// G1 is monotone and endpoint bounds are exact; for β>0 it oscillates with
// period 2π/√β and any interior extremum (±1/√β, at s√β = (2n±½)π) widens
// the bound.
func g1Inclusion(β float64, sI Interval) Interval {
	G := func(s float64) float64 { return stumpffG(β, s)[1] }
	out := NewInterval(G(sI.Lo), G(sI.Hi))
	if β > 0 {
		sqβ := math.Sqrt(β)
		// Rescale so extrema sit at integers of the form 4n±1.
		test := NewInterval(sI.Lo*sqβ/(math.Pi/2), sI.Hi*sqβ/(math.Pi/2))
		if test.containsIntegerWithModConstraint(4, 3) {
			out = out.Include(-1 / sqβ)
		}
		if test.containsIntegerWithModConstraint(4, 1) {
			out = out.Include(1 / sqβ)
		}
	}
	return out
}

// g2Inclusion returns an enclosure of G2(β, ·) over the s-interval. Same
// structure as g1Inclusion, with extrema 0 and 2/β at s√β = nπ. For β≤0, G2
// is even in s with its minimum 0 at s=0, so an interval spanning 0 also
// takes in 0.
func g2Inclusion(β float64, sI Interval) Interval {
	G := func(s float64) float64 { return stumpffG(β, s)[2] }
	out := NewInterval(G(sI.Lo), G(sI.Hi))
	if β > 0 {
		sqβ := math.Sqrt(β)
		test := NewInterval(sI.Lo*sqβ/math.Pi, sI.Hi*sqβ/math.Pi)
		if test.containsIntegerWithModConstraint(2, 0) {
			out = out.Include(0)
		}
		if test.containsIntegerWithModConstraint(2, 1) {
			out = out.Include(2 / β)
		}
	} else if sI.Contains(0) {
		out = out.Include(0)
	}
	return out
}

// g3Inclusion returns an enclosure of G3(β, ·) over the s-interval. G3 is
// monotone (dG3/ds = G2 ≥ 0), so the endpoints bound it.
func g3Inclusion(β float64, sI Interval) Interval {
	return NewInterval(stumpffG(β, sI.Lo)[3], stumpffG(β, sI.Hi)[3])
}

// radiusInclusion returns an enclosure of r(s) over the s-interval.
func (o *Orbit) radiusInclusion(sI Interval) Interval {
	return g2Inclusion(o.Beta(), sI).MulScalar(o.μ * o.e).AddScalar(o.Periapsis())
}

// positionInclusion returns a bounding box, in parent-frame axes, of the
// position over the s-interval. Each axis is the canonical-frame formula
// dotted against that axis expressed in canonical coordinates.
func (o *Orbit) positionInclusion(sI Interval) BoundingBox {
	β := o.Beta()
	rp := o.Periapsis()
	g1I := g1Inclusion(β, sI)
	g2I := g2Inclusion(β, sI)
	xI := g2I.MulScalar(-o.μ).AddScalar(rp)
	yI := g1I.MulScalar(o.h)

	var box BoundingBox
	for axis := 0; axis < 3; axis++ {
		// Row of the rotation = canonical coordinates of the parent axis.
		ux, uy := o.rot.At(axis, 0), o.rot.At(axis, 1)
		box[axis] = xI.MulScalar(ux).Add(yI.MulScalar(uy))
	}
	return box
}

// velocityInclusion returns a bounding box of the velocity over the
// s-interval. ok=false when the radius enclosure touches zero (radial orbit
// near the focus), where velocity is unbounded.
func (o *Orbit) velocityInclusion(sI Interval) (BoundingBox, bool) {
	β := o.Beta()
	g1I := g1Inclusion(β, sI)
	g2I := g2Inclusion(β, sI)
	g0I := g2I.MulScalar(-β).AddScalar(1)
	rI := o.radiusInclusion(sI)

	vxI, ok := g1I.MulScalar(-o.μ).Div(rI)
	if !ok {
		return BoundingBox{}, false
	}
	vyI, ok := g0I.MulScalar(o.h).Div(rI)
	if !ok {
		return BoundingBox{}, false
	}

	var box BoundingBox
	for axis := 0; axis < 3; axis++ {
		ux, uy := o.rot.At(axis, 0), o.rot.At(axis, 1)
		box[axis] = vxI.MulScalar(ux).Add(vyI.MulScalar(uy))
	}
	return box, true
}

// Radii2ae returns the semi major axis and the eccentricity from the radii.
func Radii2ae(rA, rP float64) (a, e float64) {
	if rA < rP {
		panic("periapsis cannot be greater than apoapsis")
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}

func (o *Orbit) String() string {
	return fmt.Sprintf("h=%.6g e=%.6g 1/a=%.6g tP=%.6g", o.h, o.e, o.α, o.tP)
}
