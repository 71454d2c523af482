package main

import (
	"fmt"
	"math"
	"os"

	kitlog "github.com/go-kit/kit/log"

	ksp "github.com/HenrySwanson/ksp-orbit-planner"
)

// Seeds the stock system with a Mun free-return-style transfer, runs the
// timeline for two ship periods, and dumps the transition log as CSV.
func main() {
	ksp.SetLogger(kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout)))

	bodies := ksp.KerbolSystem()
	var kerbin ksp.EntityID
	for _, b := range bodies {
		if b.Name == "Kerbin" {
			kerbin = b.ID
		}
	}

	μ := ksp.Kerbin.GM()
	a, e := ksp.Radii2ae(12e6, 7e5)
	pShip := 2 * math.Pi * math.Sqrt(a*a*a/μ)
	pMun := 2 * math.Pi * math.Sqrt(math.Pow(12e6, 3)/μ)
	// Phase the apoapsis onto the Mun's position half a ship period from now.
	φ := ksp.Mun.M0 + 2*math.Pi/pMun*(pShip/2) - math.Pi

	ships := []ksp.ShipSpec{{
		ID:     100,
		Parent: kerbin,
		Orbit:  ksp.NewOrbitFromElements(a, e, 0, 0, φ, 0, μ),
	}}

	tl, err := ksp.Seed(bodies, ships, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %s\n", err)
		os.Exit(1)
	}
	if err := tl.ExtendTo(2 * pShip); err != nil {
		fmt.Fprintf(os.Stderr, "extend: %s\n", err)
		os.Exit(1)
	}

	for _, ev := range tl.EventLog() {
		r, v, err := tl.StateAt(ev.T, ev.Ship, ksp.InertialFrame(ev.NewParent))
		if err != nil {
			fmt.Fprintf(os.Stderr, "state: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("t=%.3f ship=%d %s %d -> %d  r=%.0f m  v=%.1f m/s\n",
			ev.T, ev.Ship, ev.Kind, ev.OldParent, ev.NewParent,
			vecNorm(r), vecNorm(v))
	}

	if err := ksp.WriteEventLogCSV(os.Stdout, tl); err != nil {
		fmt.Fprintf(os.Stderr, "csv: %s\n", err)
		os.Exit(1)
	}
}

func vecNorm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
