package ksp

import (
	"fmt"
	"math"
	"sort"

	kitlog "github.com/go-kit/kit/log"
)

// logger is the package logger. The default is silent; collaborators that
// want the transition chatter install their own.
var logger kitlog.Logger = kitlog.NewNopLogger()

// SetLogger installs a logger for timeline extension and event search
// reporting.
func SetLogger(l kitlog.Logger) {
	logger = l
}

// closedSegment is one finished chapter: an orrery valid on
// [startT, endingEvent.T), closed by its ending event.
type closedSegment struct {
	startT      float64
	orrery      *Orrery
	endingEvent Event
}

// horizonKey identifies one independent search: a ship against one candidate
// transition.
type horizonKey struct {
	ship   EntityID
	kind   EventKind
	target EntityID // the sibling body for encounters; the parent for escapes
}

// openSegment is the live frontier of the timeline, with the memoized search
// state for every (ship, candidate) pair: how far we have scanned without an
// event, or the event itself once found.
type openSegment struct {
	startT   float64
	orrery   *Orrery
	horizons map[horizonKey]searchResult
}

func newOpenSegment(startT float64, orr *Orrery) openSegment {
	return openSegment{startT: startT, orrery: orr, horizons: make(map[horizonKey]searchResult)}
}

// Timeline is the gap-free sequence of orreries. The first is seeded; each
// later one is derived from its predecessor by exactly one SOI transition.
// Segments are append-only and immutable, so any past time can be re-queried
// with bit-identical results.
type Timeline struct {
	reg    *Registry
	closed []closedSegment
	open   openSegment
}

// Seed builds a timeline from the initial universe: the body tree, the
// ships, and the simulated time the ship orbits are anchored at. Invariant
// violations in the seed are fatal here, not later.
func Seed(bodies []BodySpec, ships []ShipSpec, t0 float64) (*Timeline, error) {
	reg, err := newRegistry(bodies)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	entries := make(map[EntityID]shipEntry, len(ships))
	var order []EntityID
	for _, s := range ships {
		if _, isBody := reg.bodies[s.ID]; isBody {
			return nil, fmt.Errorf("seed: ship %d reuses a body identity", s.ID)
		}
		if _, dup := entries[s.ID]; dup {
			return nil, fmt.Errorf("seed: duplicate ship identity %d", s.ID)
		}
		if _, ok := reg.bodies[s.Parent]; !ok {
			return nil, fmt.Errorf("seed: ship %d orbits unknown body %d", s.ID, s.Parent)
		}
		if s.Orbit == nil {
			return nil, fmt.Errorf("seed: ship %d has no orbit", s.ID)
		}
		if err := s.Orbit.check(); err != nil {
			return nil, fmt.Errorf("seed: ship %d: %w", s.ID, err)
		}
		entries[s.ID] = shipEntry{parent: s.Parent, orbit: s.Orbit}
		order = append(order, s.ID)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	orr := &Orrery{reg: reg, ships: entries, shipOrder: order, t0: t0}
	return &Timeline{reg: reg, open: newOpenSegment(t0, orr)}, nil
}

// StartTime returns the earliest queryable time.
func (tl *Timeline) StartTime() float64 {
	if len(tl.closed) > 0 {
		return tl.closed[0].startT
	}
	return tl.open.startT
}

// ExtendTo scans for SOI transitions up to time t, appending a segment per
// event found. It is idempotent: already-scanned windows are never searched
// again. On a numerical failure the timeline is left at its last consistent
// segment and the error is returned.
func (tl *Timeline) ExtendTo(t float64) error {
	for {
		ev, err := tl.nextTransition(t)
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
		next, err := tl.open.orrery.transition(ev.Ship, ev.NewParent, ev.T)
		if err != nil {
			return fmt.Errorf("transition at t=%g: %w", ev.T, err)
		}
		logger.Log("level", "info", "subsys", "timeline", "event", ev.Kind.String(),
			"t", ev.T, "ship", ev.Ship, "from", ev.OldParent, "to", ev.NewParent)
		tl.closed = append(tl.closed, closedSegment{
			startT:      tl.open.startT,
			orrery:      tl.open.orrery,
			endingEvent: *ev,
		})
		tl.open = newOpenSegment(ev.T, next)
	}
}

// nextTransition returns the earliest event no later than endT, or nil if
// none exists in the scanned window. Candidate searches are memoized in the
// open segment's horizons.
func (tl *Timeline) nextTransition(endT float64) (*Event, error) {
	if endT <= tl.open.startT {
		return nil, nil
	}
	orr := tl.open.orrery
	for _, ship := range orr.shipOrder {
		parent := orr.ships[ship].parent

		key := horizonKey{ship: ship, kind: Escape, target: parent}
		if _, done := tl.open.horizons[key]; !done {
			res, err := searchEscape(orr, ship)
			if err != nil {
				return nil, fmt.Errorf("escape search for ship %d: %w", ship, err)
			}
			tl.open.horizons[key] = res
		}

		for _, sibling := range tl.reg.childrenOf(parent) {
			key := horizonKey{ship: ship, kind: Encounter, target: sibling}
			prev, seen := tl.open.horizons[key]
			switch {
			case seen && prev.outcome != outcomeNotFound:
				continue // found or never: nothing more to learn
			case seen && prev.horizon >= endT:
				continue // already scanned past the requested time
			}
			startT := tl.open.startT
			if seen {
				startT = prev.horizon
			}
			res, err := searchEncounter(orr, ship, sibling, startT, endT)
			if err != nil {
				return nil, fmt.Errorf("encounter search for ship %d against body %d: %w", ship, sibling, err)
			}
			tl.open.horizons[key] = res
		}
	}

	var best *Event
	for _, res := range tl.open.horizons {
		if res.outcome != outcomeFound || res.event.T > endT {
			continue
		}
		ev := res.event
		if best == nil || ev.before(*best) {
			best = &ev
		}
	}
	return best, nil
}

// segmentAt returns the orrery covering time t, extending the timeline first
// if t is past the scanned range.
func (tl *Timeline) segmentAt(t float64) (*Orrery, error) {
	if t < tl.StartTime() {
		return nil, fmt.Errorf("t=%g precedes the timeline start %g", t, tl.StartTime())
	}
	if err := tl.ExtendTo(t); err != nil {
		return nil, err
	}
	if t >= tl.open.startT {
		return tl.open.orrery, nil
	}
	// Binary search for the first closed segment starting after t; the one
	// before it covers t.
	idx := sort.Search(len(tl.closed), func(i int) bool { return tl.closed[i].startT > t })
	return tl.closed[idx-1].orrery, nil
}

// StateAt returns the position and velocity of an entity at time t in the
// given reference frame. Queries beyond the scanned range extend the
// timeline implicitly; queries before the start are errors.
func (tl *Timeline) StateAt(t float64, entity EntityID, fr Frame) (R, V []float64, err error) {
	orr, err := tl.segmentAt(t)
	if err != nil {
		return nil, nil, err
	}
	return orr.StateOf(entity, t, fr)
}

// EventLog returns every transition found so far, in order.
func (tl *Timeline) EventLog() []Event {
	out := make([]Event, 0, len(tl.closed))
	for _, seg := range tl.closed {
		out = append(out, seg.endingEvent)
	}
	return out
}

// ScannedTo returns the time up to which the timeline is known to be
// event-complete: the minimum over open search horizons and unprocessed
// event times. +Inf when every candidate is proven impossible, the open
// segment start when nothing has been searched yet.
func (tl *Timeline) ScannedTo() float64 {
	if len(tl.open.horizons) == 0 {
		return tl.open.startT
	}
	scanned := math.Inf(1)
	for _, res := range tl.open.horizons {
		switch res.outcome {
		case outcomeNotFound:
			scanned = math.Min(scanned, res.horizon)
		case outcomeFound:
			scanned = math.Min(scanned, res.event.T)
		}
	}
	return scanned
}
