// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package clock

import "math"

// Solution is a generator configuration the solver judged closest to the
// requested timing.  The caller applies it with Generator.Configure.
type Solution struct {
	Source Source
	MASH   uint32
	DivI   uint32
	DivF   uint32
}

// Divisor returns the average divisor the hardware will apply.  With MASH
// off the fractional part is ignored.
func (s Solution) Divisor() float64 {
	if s.MASH == 0 {
		return float64(s.DivI)
	}
	return float64(s.DivI) + float64(s.DivF)/DivisorMax
}

// Cycle returns the achieved output period in microseconds.
func (s Solution) Cycle() float64 { return s.Divisor() / s.Source.MHz() }

// Frequency returns the achieved output frequency in MHz.
func (s Solution) Frequency() float64 { return s.Source.MHz() / s.Divisor() }

// Sources the solver may pick from: only those whose rate is trustworthy
// on an unmodified board.
var solverSources = [...]Source{Oscillator, PLLD}

// A request is unsatisfiable when even the best candidate misses the
// target by more than this relative error.
const tolerance = 0.01

// SolveForCycle finds the source, MASH level and divisor whose output
// period best approximates cycle microseconds, trying MASH levels from 0
// through maxMASH.  Higher MASH levels trade output jitter for accuracy.
// Returns false when no candidate comes within tolerance: the request is
// unsatisfiable, not an error.
func SolveForCycle(cycle float64, maxMASH uint32) (Solution, bool) {
	if cycle <= 0 {
		return Solution{}, false
	}
	best, err, found := solve(maxMASH,
		func(rate float64) float64 { return rate * cycle },
		func(s Solution) float64 { return math.Abs(s.Cycle() - cycle) })
	if !found || err > cycle*tolerance {
		return Solution{}, false
	}
	return best, true
}

// SolveForFrequency is the frequency-domain dual of SolveForCycle: it
// approximates an output frequency in MHz.
func SolveForFrequency(mhz float64, maxMASH uint32) (Solution, bool) {
	if mhz <= 0 {
		return Solution{}, false
	}
	best, err, found := solve(maxMASH,
		func(rate float64) float64 { return rate / mhz },
		func(s Solution) float64 { return math.Abs(s.Frequency() - mhz) })
	if !found || err > mhz*tolerance {
		return Solution{}, false
	}
	return best, true
}

// solve enumerates source × MASH candidates.  want maps a source rate to
// the ideal divisor; errOf measures a candidate's miss in the caller's
// domain.  Selection: smallest error, ties broken by the smaller integer
// divisor (cheaper, lower jitter), then by the order candidates are tried
// (lower MASH first).
func solve(maxMASH uint32, want func(rate float64) float64, errOf func(Solution) float64) (Solution, float64, bool) {
	if maxMASH > 3 {
		maxMASH = 3
	}
	var best Solution
	bestErr := math.Inf(1)
	found := false
	for _, src := range solverSources {
		ideal := want(src.MHz())
		if ideal >= DivisorMax || ideal < 0 {
			continue
		}
		for mash := uint32(0); mash <= maxMASH; mash++ {
			divi := uint32(ideal) // integer part truncates
			divf := uint32(0)
			if mash > 0 {
				divf = uint32((ideal-float64(divi))*DivisorMax + 0.5)
				if divf == DivisorMax {
					divi, divf = divi+1, 0
				}
				if divi >= DivisorMax {
					continue
				}
			}
			s := Solution{Source: src, MASH: mash, DivI: divi, DivF: divf}
			if s.Divisor() == 0 {
				continue
			}
			e := errOf(s)
			if e < bestErr || (e == bestErr && found && s.DivI < best.DivI) {
				best, bestErr, found = s, e, true
			}
		}
	}
	return best, bestErr, found
}
