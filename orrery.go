package ksp

import (
	"fmt"
	"sort"
)

// FrameKind selects which of an entity's reference frames a query means.
type FrameKind int

const (
	// FrameRoot is the frame of the root body: the fixed stage everything
	// else plays on.
	FrameRoot FrameKind = iota
	// FrameInertial is an entity-centered frame whose axes stay parallel to
	// the root's. Orbit primitives are expressed in their parent's inertial
	// frame; its angular velocity is zero by construction.
	FrameInertial
	// FrameOrbital is an entity-centered frame co-rotating with the entity's
	// orbit: z along the orbit normal, x along the velocity. Its angular
	// velocity is the instantaneous orbital angular velocity h⃗/r².
	FrameOrbital
)

// Frame names a reference frame for state queries.
type Frame struct {
	Kind   FrameKind
	Entity EntityID
}

// RootFrame returns the frame of the root body.
func RootFrame() Frame { return Frame{Kind: FrameRoot} }

// InertialFrame returns the non-rotating frame centered on the entity.
func InertialFrame(id EntityID) Frame { return Frame{Kind: FrameInertial, Entity: id} }

// OrbitalFrame returns the co-rotating frame centered on the entity.
func OrbitalFrame(id EntityID) Frame { return Frame{Kind: FrameOrbital, Entity: id} }

// Registry is the immutable half of the universe: the body tree. Bodies are
// created once at seed time and shared by identity across every orrery.
type Registry struct {
	bodies    map[EntityID]BodySpec
	bodyOrder []EntityID // sorted by identity
	root      EntityID
}

// newRegistry validates the seed bodies and freezes them into a registry.
func newRegistry(bodies []BodySpec) (*Registry, error) {
	reg := &Registry{bodies: make(map[EntityID]BodySpec, len(bodies)), root: NoEntity}
	for _, b := range bodies {
		if _, dup := reg.bodies[b.ID]; dup {
			return nil, fmt.Errorf("duplicate body identity %d", b.ID)
		}
		if b.Mu <= 0 {
			return nil, fmt.Errorf("body %d: non-positive μ %g", b.ID, b.Mu)
		}
		reg.bodies[b.ID] = b
		reg.bodyOrder = append(reg.bodyOrder, b.ID)
	}
	sort.Slice(reg.bodyOrder, func(i, j int) bool { return reg.bodyOrder[i] < reg.bodyOrder[j] })

	for _, id := range reg.bodyOrder {
		b := reg.bodies[id]
		if b.Parent == NoEntity {
			if b.Orbit != nil {
				return nil, fmt.Errorf("root body %d must not carry an orbit", id)
			}
			if reg.root != NoEntity {
				return nil, fmt.Errorf("two root bodies: %d and %d", reg.root, id)
			}
			reg.root = id
			continue
		}
		parent, ok := reg.bodies[b.Parent]
		if !ok {
			return nil, fmt.Errorf("body %d orbits unknown parent %d", id, b.Parent)
		}
		if b.Orbit == nil {
			return nil, fmt.Errorf("body %d has a parent but no orbit", id)
		}
		if err := b.Orbit.check(); err != nil {
			return nil, fmt.Errorf("body %d: %w", id, err)
		}
		if b.SOI <= 0 {
			return nil, fmt.Errorf("body %d: non-positive SOI %g", id, b.SOI)
		}
		if rp := b.Orbit.Periapsis(); b.SOI >= rp {
			return nil, fmt.Errorf("body %d: SOI %g reaches its own periapsis %g, the sphere would swallow parent %d", id, b.SOI, rp, b.Parent)
		}
		if ra := b.Orbit.Apoapsis(); ra > parent.SOI {
			return nil, fmt.Errorf("body %d: apoapsis %g leaves parent %d's SOI %g", id, ra, b.Parent, parent.SOI)
		}
	}
	if reg.root == NoEntity {
		return nil, fmt.Errorf("no root body in seed")
	}
	// Reject cycles: walking up from any body must reach the root.
	for _, id := range reg.bodyOrder {
		seen := map[EntityID]bool{}
		for cur := id; cur != reg.root; cur = reg.bodies[cur].Parent {
			if seen[cur] {
				return nil, fmt.Errorf("parent cycle through body %d", cur)
			}
			seen[cur] = true
		}
	}
	return reg, nil
}

// Body returns the spec of a registered body.
func (reg *Registry) Body(id EntityID) (BodySpec, bool) {
	b, ok := reg.bodies[id]
	return b, ok
}

// childrenOf returns the bodies orbiting parent, in identity order.
func (reg *Registry) childrenOf(parent EntityID) []EntityID {
	var out []EntityID
	for _, id := range reg.bodyOrder {
		if reg.bodies[id].Parent == parent {
			out = append(out, id)
		}
	}
	return out
}

type shipEntry struct {
	parent EntityID
	orbit  *Orbit
}

// Orrery is one immutable universe segment: the shared body tree plus a
// per-ship parent and orbit, valid from t0 until the next SOI transition.
// Once built it is never mutated; scrubbing inside a segment is therefore
// bitwise reproducible.
type Orrery struct {
	reg       *Registry
	ships     map[EntityID]shipEntry
	shipOrder []EntityID // sorted
	t0        float64
}

// T0 returns the simulated time the segment's primitives were anchored at.
func (orr *Orrery) T0() float64 {
	return orr.t0
}

// orbitOf resolves an entity to its orbit and parent. The root body has
// neither.
func (orr *Orrery) orbitOf(id EntityID) (*Orbit, EntityID, error) {
	if s, ok := orr.ships[id]; ok {
		return s.orbit, s.parent, nil
	}
	if b, ok := orr.reg.bodies[id]; ok {
		return b.Orbit, b.Parent, nil
	}
	return nil, NoEntity, fmt.Errorf("unknown entity %d", id)
}

// frameFromRoot returns the transform of the requested frame into the root
// frame at time t. Intermediate inertial transforms are memoized in cache,
// keyed by entity, so a query touching many entities walks each tree path
// once.
func (orr *Orrery) frameFromRoot(fr Frame, t float64, cache map[EntityID]FrameTransform) (FrameTransform, error) {
	switch fr.Kind {
	case FrameRoot:
		return IdentityTransform(), nil
	case FrameInertial:
		return orr.inertialFromRoot(fr.Entity, t, cache)
	case FrameOrbital:
		base, err := orr.inertialFromRoot(fr.Entity, t, cache)
		if err != nil {
			return FrameTransform{}, err
		}
		orbit, _, err := orr.orbitOf(fr.Entity)
		if err != nil {
			return FrameTransform{}, err
		}
		if orbit == nil {
			// The root's orbital frame is its inertial frame.
			return base, nil
		}
		s, err := orbit.SAtTime(t)
		if err != nil {
			return FrameTransform{}, err
		}
		_, v := orbit.StateAtS(s)
		normal := MxV33(orbit.Rotation(), []float64{0, 0, 1})
		spin := FrameTransform{
			T:   []float64{0, 0, 0},
			Rot: alwaysFindRotation(normal, v, rotationε),
			V:   []float64{0, 0, 0},
			Ω:   orbit.OrbitalAngularVelocityAtS(s),
		}
		return base.Compose(spin), nil
	default:
		return FrameTransform{}, fmt.Errorf("unknown frame kind %d", fr.Kind)
	}
}

func (orr *Orrery) inertialFromRoot(id EntityID, t float64, cache map[EntityID]FrameTransform) (FrameTransform, error) {
	if xfm, ok := cache[id]; ok {
		return xfm, nil
	}
	orbit, parent, err := orr.orbitOf(id)
	if err != nil {
		return FrameTransform{}, err
	}
	if orbit == nil {
		return IdentityTransform(), nil
	}
	parentXfm, err := orr.inertialFromRoot(parent, t, cache)
	if err != nil {
		return FrameTransform{}, err
	}
	r, v, err := orbit.StateAtTime(t)
	if err != nil {
		return FrameTransform{}, fmt.Errorf("entity %d at t=%g: %w", id, t, err)
	}
	xfm := parentXfm.Compose(TranslatingTransform(r, v))
	cache[id] = xfm
	return xfm, nil
}

// StateOf returns the position and velocity of an entity at time t,
// expressed in the requested frame.
func (orr *Orrery) StateOf(id EntityID, t float64, fr Frame) (R, V []float64, err error) {
	cache := make(map[EntityID]FrameTransform)

	var rRoot, vRoot []float64
	orbit, parent, err := orr.orbitOf(id)
	if err != nil {
		return nil, nil, err
	}
	if orbit == nil {
		rRoot, vRoot = []float64{0, 0, 0}, []float64{0, 0, 0}
	} else {
		rNative, vNative, err := orbit.StateAtTime(t)
		if err != nil {
			return nil, nil, err
		}
		parentXfm, err := orr.inertialFromRoot(parent, t, cache)
		if err != nil {
			return nil, nil, err
		}
		rRoot = parentXfm.ToParentPoint(rNative)
		vRoot = parentXfm.ToParentVelocity(rNative, vNative)
	}

	target, err := orr.frameFromRoot(fr, t, cache)
	if err != nil {
		return nil, nil, err
	}
	inv := target.Inverse()
	return inv.ToParentPoint(rRoot), inv.ToParentVelocity(rRoot, vRoot), nil
}

// transition builds the successor orrery for a single ship changing parent at
// tEvent. The ship's root-frame state at exactly tEvent is re-expressed in
// the new parent's frame and refit; every other primitive is copied verbatim,
// never re-anchored.
func (orr *Orrery) transition(ship, newParent EntityID, tEvent float64) (*Orrery, error) {
	if _, ok := orr.ships[ship]; !ok {
		return nil, fmt.Errorf("unknown ship %d", ship)
	}
	nb, ok := orr.reg.bodies[newParent]
	if !ok {
		return nil, fmt.Errorf("unknown body %d", newParent)
	}

	rRoot, vRoot, err := orr.StateOf(ship, tEvent, RootFrame())
	if err != nil {
		return nil, err
	}
	cache := make(map[EntityID]FrameTransform)
	newFrame, err := orr.inertialFromRoot(newParent, tEvent, cache)
	if err != nil {
		return nil, err
	}
	inv := newFrame.Inverse()
	rNew := inv.ToParentPoint(rRoot)
	vNew := inv.ToParentVelocity(rRoot, vRoot)

	ships := make(map[EntityID]shipEntry, len(orr.ships))
	for id, entry := range orr.ships {
		ships[id] = entry
	}
	ships[ship] = shipEntry{
		parent: newParent,
		orbit:  NewOrbitFromRV(rNew, vNew, nb.Mu, tEvent),
	}

	next := &Orrery{
		reg:       orr.reg,
		ships:     ships,
		shipOrder: orr.shipOrder,
		t0:        tEvent,
	}
	return next, nil
}
