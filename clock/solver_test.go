// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package clock

import (
	"math"
	"testing"
)

func TestSolveTenMicrosecondsExact(t *testing.T) {
	s, ok := SolveForCycle(10, 0)
	if !ok {
		t.Fatal("no solution")
	}
	if s.Source != Oscillator || s.MASH != 0 || s.DivI != 192 || s.DivF != 0 {
		t.Fatalf("solution %+v", s)
	}
	if s.Cycle() != 10 {
		t.Fatalf("cycle %v, want exactly 10", s.Cycle())
	}
}

// 58µs is not an integer number of oscillator ticks.  Without MASH the
// divisor truncates to 1113 and the period comes up short; MASH 1 buys the
// missing fraction back at the cost of jitter.
func TestSolveMASHTradesJitterForAccuracy(t *testing.T) {
	s, ok := SolveForCycle(58, 0)
	if !ok {
		t.Fatal("no MASH 0 solution")
	}
	if s.Source != Oscillator || s.DivI != 1113 || s.DivF != 0 {
		t.Fatalf("MASH 0 solution %+v", s)
	}
	if got := s.Cycle(); math.Abs(got-57.96875) > 1e-9 {
		t.Fatalf("MASH 0 cycle %v, want 57.96875", got)
	}

	s, ok = SolveForCycle(58, 1)
	if !ok {
		t.Fatal("no MASH 1 solution")
	}
	if s.Source != Oscillator || s.MASH != 1 || s.DivI != 1113 || s.DivF != 2458 {
		t.Fatalf("MASH 1 solution %+v", s)
	}
	if got := s.Cycle(); math.Abs(got-58) > 1e-4 {
		t.Fatalf("MASH 1 cycle %v, want 58", got)
	}
}

func TestSolveUnsatisfiable(t *testing.T) {
	// Too slow: even the oscillator needs a divisor beyond 12 bits.
	if s, ok := SolveForCycle(250, 0); ok {
		t.Fatalf("250µs solved as %+v", s)
	}
	if s, ok := SolveForCycle(250, 3); ok {
		t.Fatalf("250µs with MASH solved as %+v", s)
	}
	// Too fast for integer division, but a fractional divisor below one
	// reaches it.
	if s, ok := SolveForCycle(0.001, 0); ok {
		t.Fatalf("0.001µs at MASH 0 solved as %+v", s)
	}
	s, ok := SolveForCycle(0.001, 1)
	if !ok {
		t.Fatal("0.001µs at MASH 1 has no solution")
	}
	if math.Abs(s.Cycle()-0.001) > 0.001*tolerance {
		t.Fatalf("0.001µs solution %+v achieves %v", s, s.Cycle())
	}
	// Nonsense input.
	if _, ok := SolveForCycle(0, 3); ok {
		t.Fatal("zero cycle solved")
	}
	if _, ok := SolveForCycle(-1, 3); ok {
		t.Fatal("negative cycle solved")
	}
}

func TestSolveTiePrefersSmallerDivisor(t *testing.T) {
	// 5µs divides both trusted sources exactly: 96 ticks of the
	// oscillator or 2500 of PLLD.  The cheaper divisor wins.
	s, ok := SolveForCycle(5, 0)
	if !ok {
		t.Fatal("no solution")
	}
	if s.Source != Oscillator || s.DivI != 96 {
		t.Fatalf("solution %+v", s)
	}
}

func TestSolveForFrequency(t *testing.T) {
	// 9.6MHz is the oscillator halved.
	s, ok := SolveForFrequency(9.6, 0)
	if !ok {
		t.Fatal("no solution")
	}
	if s.Source != Oscillator || s.DivI != 2 || s.MASH != 0 {
		t.Fatalf("solution %+v", s)
	}
	if s.Frequency() != 9.6 {
		t.Fatalf("frequency %v", s.Frequency())
	}

	// 100MHz needs PLLD; the oscillator can't divide up.
	s, ok = SolveForFrequency(100, 0)
	if !ok {
		t.Fatal("no 100MHz solution")
	}
	if s.Source != PLLD || s.DivI != 5 {
		t.Fatalf("100MHz solution %+v", s)
	}

	if _, ok = SolveForFrequency(0, 3); ok {
		t.Fatal("zero frequency solved")
	}
}

func TestSolveMASHLevelClamped(t *testing.T) {
	// Levels beyond 3 don't exist in the 2 bit field; asking for more
	// must not panic or change the result.
	a, okA := SolveForCycle(58, 3)
	b, okB := SolveForCycle(58, 99)
	if okA != okB || a != b {
		t.Fatalf("MASH 3 %+v/%v != MASH 99 %+v/%v", a, okA, b, okB)
	}
}
