package ksp

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Seed serialization: the persisted state of a simulation is its initial
// universe, nothing more. Replaying the same ExtendTo calls against a loaded
// seed reconstructs the identical timeline, so there is no segment or event
// persistence format.

type orbitJSON struct {
	Mu       float64    `json:"mu"`
	H        float64    `json:"h"`
	E        float64    `json:"e"`
	InvSMA   float64    `json:"inv_sma"`
	TP       float64    `json:"t_periapsis"`
	Rotation [9]float64 `json:"rotation"`
}

// MarshalJSON encodes the primitive's exact parameterization; float64 values
// survive the round-trip bit for bit.
func (o *Orbit) MarshalJSON() ([]byte, error) {
	var rot [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot[3*i+j] = o.rot.At(i, j)
		}
	}
	return json.Marshal(orbitJSON{
		Mu: o.μ, H: o.h, E: o.e, InvSMA: o.α, TP: o.tP, Rotation: rot,
	})
}

// UnmarshalJSON decodes an orbit written by MarshalJSON.
func (o *Orbit) UnmarshalJSON(data []byte) error {
	var enc orbitJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	o.μ, o.h, o.e, o.α, o.tP = enc.Mu, enc.H, enc.E, enc.InvSMA, enc.TP
	o.rot = rotationFromColumns(
		[]float64{enc.Rotation[0], enc.Rotation[3], enc.Rotation[6]},
		[]float64{enc.Rotation[1], enc.Rotation[4], enc.Rotation[7]},
		[]float64{enc.Rotation[2], enc.Rotation[5], enc.Rotation[8]})
	return o.check()
}

type bodyJSON struct {
	ID     EntityID  `json:"id"`
	Parent *EntityID `json:"parent,omitempty"`
	Name   string    `json:"name"`
	Mu     float64   `json:"mu"`
	SOI    *float64  `json:"soi,omitempty"` // absent for the root (infinite)
	Radius float64   `json:"radius"`
	Orbit  *Orbit    `json:"orbit,omitempty"`
}

type shipJSON struct {
	ID     EntityID `json:"id"`
	Parent EntityID `json:"parent"`
	Orbit  *Orbit   `json:"orbit"`
}

type seedJSON struct {
	T0     float64    `json:"t0"`
	Bodies []bodyJSON `json:"bodies"`
	Ships  []shipJSON `json:"ships"`
}

// WriteSeed serializes the initial universe to JSON.
func WriteSeed(w io.Writer, bodies []BodySpec, ships []ShipSpec, t0 float64) error {
	enc := seedJSON{T0: t0}
	for _, b := range bodies {
		bj := bodyJSON{ID: b.ID, Name: b.Name, Mu: b.Mu, Radius: b.Radius, Orbit: b.Orbit}
		if b.Parent != NoEntity {
			parent := b.Parent
			soi := b.SOI
			bj.Parent = &parent
			bj.SOI = &soi
		}
		enc.Bodies = append(enc.Bodies, bj)
	}
	for _, s := range ships {
		enc.Ships = append(enc.Ships, shipJSON{ID: s.ID, Parent: s.Parent, Orbit: s.Orbit})
	}
	out := json.NewEncoder(w)
	out.SetIndent("", "  ")
	return out.Encode(enc)
}

// ReadSeed parses a serialized seed back into specs.
func ReadSeed(r io.Reader) (bodies []BodySpec, ships []ShipSpec, t0 float64, err error) {
	var enc seedJSON
	if err = json.NewDecoder(r).Decode(&enc); err != nil {
		return nil, nil, 0, err
	}
	for _, bj := range enc.Bodies {
		b := BodySpec{ID: bj.ID, Parent: NoEntity, Name: bj.Name, Mu: bj.Mu, Radius: bj.Radius, Orbit: bj.Orbit, SOI: math.Inf(1)}
		if bj.Parent != nil {
			b.Parent = *bj.Parent
		}
		if bj.SOI != nil {
			b.SOI = *bj.SOI
		}
		bodies = append(bodies, b)
	}
	for _, sj := range enc.Ships {
		ships = append(ships, ShipSpec{ID: sj.ID, Parent: sj.Parent, Orbit: sj.Orbit})
	}
	return bodies, ships, enc.T0, nil
}

// LoadSeed reads a seed file and builds a fresh timeline from it.
func LoadSeed(path string) (*Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bodies, ships, t0, err := ReadSeed(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Seed(bodies, ships, t0)
}

// WriteEventLogCSV streams the timeline's event log as CSV, one row per
// transition.
func WriteEventLogCSV(w io.Writer, tl *Timeline) error {
	out := csv.NewWriter(w)
	if err := out.Write([]string{"t", "ship", "old_parent", "new_parent", "kind"}); err != nil {
		return err
	}
	for _, ev := range tl.EventLog() {
		row := []string{
			fmt.Sprintf("%.9f", ev.T),
			fmt.Sprintf("%d", ev.Ship),
			fmt.Sprintf("%d", ev.OldParent),
			fmt.Sprintf("%d", ev.NewParent),
			ev.Kind.String(),
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
