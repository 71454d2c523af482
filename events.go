package ksp

import (
	"errors"
	"fmt"
	"math"
)

// EventKind distinguishes the two ways a ship changes parent.
type EventKind int

const (
	// Escape is a ship leaving its parent's sphere of influence, re-rooting
	// to the grandparent.
	Escape EventKind = iota
	// Encounter is a ship entering a sibling body's sphere of influence.
	Encounter
)

func (k EventKind) String() string {
	switch k {
	case Escape:
		return "escape"
	case Encounter:
		return "encounter"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one SOI transition: at time T, Ship stops orbiting OldParent and
// starts orbiting NewParent.
type Event struct {
	T         float64
	Ship      EntityID
	OldParent EntityID
	NewParent EntityID
	Kind      EventKind
}

// neighbor returns the identity the event was searched against, used for
// deterministic tie-breaking.
func (e Event) neighbor() EntityID {
	if e.Kind == Escape {
		return e.OldParent
	}
	return e.NewParent
}

// before is the total event order: earliest time first, ties broken by
// lowest ship identity, then lowest neighbor identity.
func (e Event) before(o Event) bool {
	if e.T != o.T {
		return e.T < o.T
	}
	if e.Ship != o.Ship {
		return e.Ship < o.Ship
	}
	return e.neighbor() < o.neighbor()
}

// errTangentContact reports that the search could not certify a simple root
// before its interval shrank below tolerance: the ship grazes an SOI boundary
// without cleanly crossing it. The timeline advances past it without a
// transition.
var errTangentContact = errors.New("tangent/grazing contact, no simple root certified")

type searchOutcome int

const (
	outcomeFound searchOutcome = iota
	outcomeNotFound
	outcomeNever
)

// searchResult is the answer to one (ship, candidate) query: an event, a
// horizon up to which nothing happens, or proof that nothing ever will.
type searchResult struct {
	outcome searchOutcome
	event   Event
	horizon float64
}

func foundResult(ev Event) searchResult {
	return searchResult{outcome: outcomeFound, event: ev}
}

func notFoundResult(horizon float64) searchResult {
	return searchResult{outcome: outcomeNotFound, horizon: horizon}
}

func neverResult() searchResult {
	return searchResult{outcome: outcomeNever}
}

// searchEscape looks for the ship leaving its current parent's SOI. The
// search is windowless: r(s) either reaches the SOI radius on the outbound
// branch or never does.
func searchEscape(orr *Orrery, ship EntityID) (searchResult, error) {
	se := orr.ships[ship]
	parent := orr.reg.bodies[se.parent]
	if parent.Parent == NoEntity {
		// There is no outside to escape to.
		return neverResult(), nil
	}

	s, ok, err := se.orbit.SAtRadius(parent.SOI)
	if errors.Is(err, errTangentContact) {
		logger.Log("level", "info", "subsys", "events", "ship", ship, "parent", se.parent,
			"kind", "escape", "outcome", "tangent", "detail", err.Error())
		return neverResult(), nil
	}
	if err != nil {
		return searchResult{}, err
	}
	if !ok {
		return neverResult(), nil
	}

	t := se.orbit.TimeAtS(s)
	if se.orbit.IsClosed() {
		// Fold the crossing into the first period after segment start; a
		// crossing at the very instant of the segment boundary is the
		// previous event seen again, not a new one.
		p := se.orbit.Period()
		t = orr.t0 + math.Mod(t-orr.t0, p)
		if t < orr.t0 {
			t += p
		}
		if t-orr.t0 < kspConfig().windowFloor {
			t += p
		}
	} else if t <= orr.t0 {
		// Open orbit with the outbound crossing behind us: the ship is
		// already past the boundary, nothing left to find.
		return neverResult(), nil
	}

	return foundResult(Event{
		T:         t,
		Ship:      ship,
		OldParent: se.parent,
		NewParent: parent.Parent,
		Kind:      Escape,
	}), nil
}

// searchEncounter looks for the ship entering the SOI of a sibling body
// within [startT, endT]. Interval analysis discards regions where the
// bounding boxes stay apart; surviving windows shrink until the
// Krawczyk–Moore test certifies a single crossing and Newton polishes it.
func searchEncounter(orr *Orrery, ship, target EntityID, startT, endT float64) (searchResult, error) {
	if startT > endT {
		return searchResult{}, fmt.Errorf("reversed window: %g > %g", startT, endT)
	}
	se := orr.ships[ship]
	tb := orr.reg.bodies[target]
	if tb.Parent != se.parent {
		// Not co-orbiting: encounters only happen between siblings.
		return neverResult(), nil
	}
	soi := tb.SOI
	shipO, targetO := se.orbit, tb.Orbit

	// Quick check: if one orbit is much smaller than the other there is no
	// chance of intersection, ever.
	shipApsis := Interval{shipO.Periapsis(), shipO.Apoapsis()}
	targetApsis := Interval{targetO.Periapsis(), targetO.Apoapsis()}
	if shipApsis.SeparatedBy(targetApsis, soi) {
		return neverResult(), nil
	}

	cfg := kspConfig()

	g := func(t float64) (float64, float64) {
		// Signed SOI residual and its time derivative.
		sShip, err := shipO.sAtTimeRaw(t)
		if err != nil {
			panic(err) // bracketed by the certified window; cannot fail to converge there
		}
		sTarget, err := targetO.sAtTimeRaw(t)
		if err != nil {
			panic(err)
		}
		rs, vs := shipO.StateAtS(sShip)
		rt, vt := targetO.StateAtS(sTarget)
		Δr := vSub(rs, rt)
		Δv := vSub(vs, vt)
		d := norm(Δr)
		return d - soi, dot(Δr, Δv) / d
	}

	// Depth-first with the earliest window on top, so the first certified
	// root is the earliest one.
	stack := []Interval{{startT, endT}}
	for len(stack) > 0 {
		window := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sShipI, err := sIntervalOver(shipO, window)
		if err != nil {
			return searchResult{}, err
		}
		sTargetI, err := sIntervalOver(targetO, window)
		if err != nil {
			return searchResult{}, err
		}
		shipBox := shipO.positionInclusion(sShipI)
		targetBox := targetO.positionInclusion(sTargetI)
		if shipBox.SeparatedBy(targetBox, soi) {
			continue
		}

		if window.Width() <= cfg.windowCoarse {
			distI := shipBox.DistanceTo(targetBox)
			if distI.Lo > soi {
				// Boxes overlap some axis but the distance never reaches the
				// threshold in this window.
				continue
			}
			if certified, derivI := encounterDerivative(shipO, targetO, sShipI, sTargetI, shipBox, targetBox); certified {
				if krawczykUnique(g, derivI, window) {
					root, err := newtonPlusBisection(g, window, cfg.iterMax)
					if err != nil {
						return searchResult{}, err
					}
					root = polishRoot(g, root)
					if root-orr.t0 < cfg.windowFloor {
						// A crossing at the very start of the segment is the
						// transition we just processed, not a new event.
						continue
					}
					return foundResult(Event{
						T:         root,
						Ship:      ship,
						OldParent: se.parent,
						NewParent: target,
						Kind:      Encounter,
					}), nil
				}
			}
		}

		if window.Width() < cfg.windowFloor {
			logger.Log("level", "info", "subsys", "events", "ship", ship, "target", target,
				"kind", "encounter", "outcome", "tangent",
				"t", window.Midpoint(), "±", window.Width()/2)
			continue
		}

		first, second := window.Bisect()
		stack = append(stack, second, first)
	}
	return notFoundResult(endT), nil
}

// encounterDerivative builds an enclosure of d/dt (|Δr| - soi) =
// (Δr·Δv)/|Δr| over the window from the position and velocity boxes.
// certified=false when the enclosure is unbounded (relative distance or a
// radius touching zero), which simply defers to further subdivision.
func encounterDerivative(shipO, targetO *Orbit, sShipI, sTargetI Interval, shipBox, targetBox BoundingBox) (bool, Interval) {
	shipVel, ok := shipO.velocityInclusion(sShipI)
	if !ok {
		return false, Interval{}
	}
	targetVel, ok := targetO.velocityInclusion(sTargetI)
	if !ok {
		return false, Interval{}
	}
	ΔrBox := shipBox.Sub(targetBox)
	ΔvBox := shipVel.Sub(targetVel)
	distI := shipBox.DistanceTo(targetBox)
	derivI, ok := ΔrBox.DotInterval(ΔvBox).Div(distI)
	if !ok {
		return false, Interval{}
	}
	return true, derivI
}

// sIntervalOver maps a time window through the monotone t ↦ s of the orbit.
func sIntervalOver(o *Orbit, window Interval) (Interval, error) {
	sLo, err := o.sAtTimeRaw(window.Lo)
	if err != nil {
		return Interval{}, err
	}
	sHi, err := o.sAtTimeRaw(window.Hi)
	if err != nil {
		return Interval{}, err
	}
	return Interval{sLo, sHi}, nil
}
