// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package clock

import (
	"fmt"

	"github.com/signalbox/raspberrypi/hw"
)

// The clock manager discards any write whose top byte is not the password.
// Constructors and With* methods inject it so callers never have to
// remember; reads report whatever the hardware returns there.
const password = 0x5a << 24

// Source selects the oscillator or PLL a generator divides down.
type Source uint32

const (
	GND        Source = 0
	Oscillator Source = 1
	TestDebug0 Source = 2
	TestDebug1 Source = 3
	PLLA       Source = 4
	PLLC       Source = 5
	PLLD       Source = 6
	HDMIAux    Source = 7
)

// MHz returns the source's nominal rate.  Zero for sources the solver
// cannot rely on: PLLA is usually off, PLLC follows the overclock settings
// and the HDMI auxiliary clock stops with the display.
func (s Source) MHz() float64 {
	switch s {
	case Oscillator:
		return 19.2
	case PLLD:
		return 500
	}
	return 0
}

func (s Source) String() string {
	switch s {
	case GND:
		return "GND"
	case Oscillator:
		return "oscillator"
	case TestDebug0:
		return "testdebug0"
	case TestDebug1:
		return "testdebug1"
	case PLLA:
		return "PLLA"
	case PLLC:
		return "PLLC"
	case PLLD:
		return "PLLD"
	case HDMIAux:
		return "HDMI aux"
	}
	return fmt.Sprintf("Source(%d)", uint32(s))
}

// Control is the clock manager's per-generator control register.
type Control uint32

const (
	ctlEnable = 1 << 4
	ctlKill   = 1 << 5
	ctlBusy   = 1 << 7
	ctlFlip   = 1 << 8
)

const (
	srcShift, srcWidth   = 0, 4
	mashShift, mashWidth = 9, 2
)

// NewControl returns an all-clear control word carrying the password.
func NewControl() Control { return password }

func (c Control) withPassword() Control {
	return c&^(0xff<<24) | password
}

// Source returns the selected source.
func (c Control) Source() Source {
	return Source(hw.Field(uint32(c), srcShift, srcWidth))
}

// WithSource returns c with the source field replaced.
func (c Control) WithSource(s Source) Control {
	return Control(hw.WithField(uint32(c), srcShift, srcWidth, uint32(s))).withPassword()
}

// MASH returns the noise-shaping level: 0 is plain integer division, 1-3
// apply increasingly aggressive fractional division.
func (c Control) MASH() uint32 {
	return hw.Field(uint32(c), mashShift, mashWidth)
}

// WithMASH returns c with the MASH field replaced.
func (c Control) WithMASH(level uint32) Control {
	return Control(hw.WithField(uint32(c), mashShift, mashWidth, level)).withPassword()
}

// Enabled returns the enable bit.
func (c Control) Enabled() bool { return c&ctlEnable != 0 }

// WithEnabled returns c with the enable bit set or cleared.
func (c Control) WithEnabled(on bool) Control {
	if on {
		return (c | ctlEnable).withPassword()
	}
	return (c &^ ctlEnable).withPassword()
}

// Busy reports the hardware's running flag.  Source, MASH and divisor must
// only change while this has settled false.
func (c Control) Busy() bool { return c&ctlBusy != 0 }

// WithKill returns c with the kill bit, which stops and resets the
// generator without waiting for a clean edge.  Debug use only.
func (c Control) WithKill(on bool) Control {
	if on {
		return (c | ctlKill).withPassword()
	}
	return (c &^ ctlKill).withPassword()
}

// Inverted returns the output-invert bit.
func (c Control) Inverted() bool { return c&ctlFlip != 0 }

// WithInverted returns c with the output-invert bit set or cleared.
func (c Control) WithInverted(on bool) Control {
	if on {
		return (c | ctlFlip).withPassword()
	}
	return (c &^ ctlFlip).withPassword()
}

// Divisor is the clock manager's 12.12 fixed point divisor register.
type Divisor uint32

const (
	divfShift, divfWidth = 0, 12
	diviShift, diviWidth = 12, 12
)

// DivisorMax is the first integer or fractional value that no longer fits
// the 12 bit fields.
const DivisorMax = 1 << 12

// NewDivisor packs an integer and fractional divisor, carrying the
// password.  Panics if either part exceeds 12 bits.
func NewDivisor(divi, divf uint32) Divisor {
	d := hw.WithField(0, diviShift, diviWidth, divi)
	d = hw.WithField(d, divfShift, divfWidth, divf)
	return Divisor(d) | password
}

// DivI returns the integer part.
func (d Divisor) DivI() uint32 { return hw.Field(uint32(d), diviShift, diviWidth) }

// DivF returns the fractional part, in 1/4096ths.
func (d Divisor) DivF() uint32 { return hw.Field(uint32(d), divfShift, divfWidth) }
