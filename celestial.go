package ksp

import (
	"fmt"
	"math"
)

// EntityID identifies a body or ship in the registry. Bodies and ships share
// one identity space; identities are assigned by the seeder and never reused.
type EntityID int

// NoEntity is the absent parent of the root body.
const NoEntity EntityID = -1

// CelestialObject defines a celestial object: its physical constants and the
// classical elements of its orbit around its parent. All values are SI
// (meters, seconds, m³/s²) and angles are radians.
type CelestialObject struct {
	Name   string
	Radius float64
	μ      float64
	SOI    float64 // +Inf for the root star
	a      float64 // semi-major axis about the parent; 0 for the root
	e      float64
	incl   float64
	Ω      float64 // longitude of ascending node
	ω      float64 // argument of periapsis
	M0     float64 // mean anomaly at simulated time zero
	Parent string  // empty for the root
}

// GM returns μ (which is unexported because it's a lowercase letter).
func (c CelestialObject) GM() float64 {
	return c.μ
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.a == b.a && c.μ == b.μ && c.SOI == b.SOI
}

/* Definitions. Constants follow the KSP wiki. */

var deg = math.Pi / 180

// Kerbol is the star everything ultimately falls around.
var Kerbol = CelestialObject{"Kerbol", 261600000, 1.1723328e18, math.Inf(1), 0, 0, 0, 0, 0, 0, ""}

// Moho is the scorched innermost planet.
var Moho = CelestialObject{"Moho", 250000, 1.6860938e11, 9646663, 5263138304, 0.2, 7 * deg, 70 * deg, 15 * deg, 3.14, "Kerbol"}

// Eve is purple and will not let your ship back out.
var Eve = CelestialObject{"Eve", 700000, 8.1717302e12, 85109365, 9832684544, 0.01, 2.1 * deg, 15 * deg, 0, 3.14, "Kerbol"}

// Kerbin is home.
var Kerbin = CelestialObject{"Kerbin", 600000, 3.5316e12, 84159286, 13599840256, 0, 0, 0, 0, 3.14, "Kerbol"}

// Mun is the first stop of every program.
var Mun = CelestialObject{"Mun", 200000, 6.5138398e10, 2429559.1, 12000000, 0, 0, 0, 0, 1.7, "Kerbin"}

// Minmus is the minty one.
var Minmus = CelestialObject{"Minmus", 60000, 1.7658e9, 2247428.4, 47000000, 0, 6 * deg, 78 * deg, 38 * deg, 0.9, "Kerbin"}

// Duna is the vacation place.
var Duna = CelestialObject{"Duna", 320000, 3.0136321e11, 47921949, 20726155264, 0.051, 0.06 * deg, 135.5 * deg, 0, 3.14, "Kerbol"}

// Ike hangs over Duna and eats incoming probes.
var Ike = CelestialObject{"Ike", 130000, 1.8568369e10, 1049598.9, 3200000, 0.03, 0.2 * deg, 0, 0, 1.7, "Duna"}

// Jool is big.
var Jool = CelestialObject{"Jool", 6000000, 2.82528e14, 2.4559852e9, 68773560320, 0.05, 1.304 * deg, 52 * deg, 0, 0.1, "Kerbol"}

// kerbolObjects lists the catalogue in seed order: parents before children.
var kerbolObjects = []CelestialObject{Kerbol, Moho, Eve, Kerbin, Mun, Minmus, Duna, Ike, Jool}

// BodySpec is one entry of the seed list: identity, tree position, physical
// constants, and the orbit primitive about the parent (nil for the root).
type BodySpec struct {
	ID     EntityID
	Parent EntityID // NoEntity for the root
	Name   string
	Mu     float64
	SOI    float64
	Radius float64
	Orbit  *Orbit
}

// ShipSpec is one seeded ship: identity, initial parent body, and the orbit
// primitive about it.
type ShipSpec struct {
	ID     EntityID
	Parent EntityID
	Orbit  *Orbit
}

// KerbolSystem returns the catalogue above as a seed list, identities
// assigned in order starting at 0 (the root). Ships get identities from the
// caller, conventionally above the body range.
func KerbolSystem() []BodySpec {
	specs := make([]BodySpec, 0, len(kerbolObjects))
	byName := make(map[string]EntityID, len(kerbolObjects))
	for i, c := range kerbolObjects {
		id := EntityID(i)
		spec := BodySpec{
			ID:     id,
			Parent: NoEntity,
			Name:   c.Name,
			Mu:     c.μ,
			SOI:    c.SOI,
			Radius: c.Radius,
		}
		if c.Parent != "" {
			pid, ok := byName[c.Parent]
			if !ok {
				panic(fmt.Errorf("catalogue lists %s before its parent %s", c.Name, c.Parent))
			}
			spec.Parent = pid
			spec.Orbit = NewOrbitFromElements(c.a, c.e, c.incl, c.Ω, c.ω, c.M0, kerbolObjects[pid].μ)
		}
		specs = append(specs, spec)
		byName[c.Name] = id
	}
	return specs
}
