// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Package gpio exposes the BCM283x GPIO block: per-pin function select,
// level, pull resistors and edge detection.  These are thin register
// accessors over a single mapped window; the set/clear register pairs are
// also the destinations DMA chains write to when generating timed edges.
package gpio

import (
	"fmt"
	"time"

	"github.com/signalbox/raspberrypi/hw"
)

const blockOffset = 0x200000

// Pins is the number of GPIO lines the block controls.
const Pins = 54

// Function selects what drives a pin.
type Function uint32

const (
	Input  Function = 0
	Output Function = 1
	Alt0   Function = 4
	Alt1   Function = 5
	Alt2   Function = 6
	Alt3   Function = 7
	Alt4   Function = 3
	Alt5   Function = 2
)

// Pull selects a pin's internal pull resistor.
type Pull uint32

const (
	PullOff  Pull = 0
	PullDown Pull = 1
	PullUp   Pull = 2
)

type regs struct {
	fsel   [6]hw.U32 // 0x00 function select, 10 pins x 3 bits per register
	_      hw.U32
	set    [2]hw.U32 // 0x1c output set, write 1 to drive high
	_      hw.U32
	clr    [2]hw.U32 // 0x28 output clear, write 1 to drive low
	_      hw.U32
	lev    [2]hw.U32 // 0x34 pin level
	_      hw.U32
	eds    [2]hw.U32 // 0x40 event detect status, write 1 to clear
	_      hw.U32
	ren    [2]hw.U32 // 0x4c rising edge detect enable
	_      hw.U32
	fen    [2]hw.U32 // 0x58 falling edge detect enable
	_      hw.U32
	hen    [2]hw.U32 // 0x64 high level detect enable
	_      hw.U32
	len    [2]hw.U32 // 0x70 low level detect enable
	_      hw.U32
	aren   [2]hw.U32 // 0x7c async rising edge detect enable
	_      hw.U32
	afen   [2]hw.U32 // 0x88 async falling edge detect enable
	_      hw.U32
	pud    hw.U32    // 0x94 pull control
	pudclk [2]hw.U32 // 0x98 pull clock
}

// GPIO is the mapped GPIO block.  One per SoC; treat as a process-wide
// singleton and serialize access to it.
type GPIO struct {
	win  *hw.Window
	regs *regs
}

// Open maps the GPIO block's registers.
func Open() (*GPIO, error) {
	win, err := hw.Map(blockOffset, 0xa0)
	if err != nil {
		return nil, fmt.Errorf("gpio: %v", err)
	}
	return &GPIO{win: win, regs: (*regs)(win.Regs())}, nil
}

// Close unmaps the GPIO block.  Pins keep their configuration.
func (g *GPIO) Close() error { return g.win.Close() }

// Pin returns the accessor for pin n.
func (g *GPIO) Pin(n int) (Pin, error) {
	if n < 0 || n >= Pins {
		return Pin{}, fmt.Errorf("gpio: no pin %d", n)
	}
	return Pin{regs: g.regs, n: uint(n)}, nil
}

// SetBus returns the bus address of output-set register bank (0 covers
// pins 0-31, 1 covers 32-53), for DMA destinations.
func (g *GPIO) SetBus(bank int) uint32 { return g.win.Bus(uint32(0x1c + 4*bank)) }

// ClearBus returns the bus address of output-clear register bank, for DMA
// destinations.  ClearBus(b) is 3 words after SetBus(b); a 2-D control
// block with a 4 byte destination stride writes a set/clear pair in one
// transfer.
func (g *GPIO) ClearBus(bank int) uint32 { return g.win.Bus(uint32(0x28 + 4*bank)) }

// Pin accesses one GPIO line.
type Pin struct {
	regs *regs
	n    uint
}

func (p Pin) bank() uint    { return p.n / 32 }
func (p Pin) bit() uint32   { return 1 << (p.n % 32) }
func (p Pin) fsel() *hw.U32 { return &p.regs.fsel[p.n/10] }

// Function returns what currently drives the pin.
func (p Pin) Function() Function {
	return Function(hw.Field(p.fsel().Get(), 3*(p.n%10), 3))
}

// SetFunction routes the pin to a function, leaving the nine other pins in
// the same select register untouched.
func (p Pin) SetFunction(f Function) {
	r := p.fsel()
	r.Set(hw.WithField(r.Get(), 3*(p.n%10), 3, uint32(f)))
}

// Level returns the pin's current input level.
func (p Pin) Level() bool {
	return p.regs.lev[p.bank()].Get()&p.bit() != 0
}

// Set drives the pin high.  The set registers ignore zero bits, so no
// read-modify-write is needed.
func (p Pin) Set() { p.regs.set[p.bank()].Set(p.bit()) }

// Clear drives the pin low.
func (p Pin) Clear() { p.regs.clr[p.bank()].Set(p.bit()) }

// SetLevel drives the pin high or low.
func (p Pin) SetLevel(high bool) {
	if high {
		p.Set()
	} else {
		p.Clear()
	}
}

// pullSettle covers the datasheet's 150 core cycles of set-up and hold
// around each pull clock edge.
const pullSettle = time.Microsecond

// SetPull reprograms the pin's pull resistor using the two-phase
// pull/clock sequence.  The setting survives reboot but cannot be read
// back.
func (p Pin) SetPull(pull Pull) {
	p.regs.pud.Set(uint32(pull))
	time.Sleep(pullSettle)
	p.regs.pudclk[p.bank()].Set(p.bit())
	time.Sleep(pullSettle)
	p.regs.pud.Set(uint32(PullOff))
	p.regs.pudclk[p.bank()].Set(0)
}

// EventDetected reports the pin's sticky edge/level event flag.
func (p Pin) EventDetected() bool {
	return p.regs.eds[p.bank()].Get()&p.bit() != 0
}

// ClearEvent clears the pin's event flag by writing it back.
func (p Pin) ClearEvent() { p.regs.eds[p.bank()].Set(p.bit()) }

// DetectRisingEdge enables or disables rising edge detection on the pin.
func (p Pin) DetectRisingEdge(on bool) { p.detect(&p.regs.ren[p.bank()], on) }

// DetectFallingEdge enables or disables falling edge detection on the pin.
func (p Pin) DetectFallingEdge(on bool) { p.detect(&p.regs.fen[p.bank()], on) }

// DetectHighLevel enables or disables high level detection on the pin.
func (p Pin) DetectHighLevel(on bool) { p.detect(&p.regs.hen[p.bank()], on) }

// DetectLowLevel enables or disables low level detection on the pin.
func (p Pin) DetectLowLevel(on bool) { p.detect(&p.regs.len[p.bank()], on) }

func (p Pin) detect(r *hw.U32, on bool) {
	if on {
		r.SetBits(p.bit())
	} else {
		r.ClearBits(p.bit())
	}
}
