// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Package clock programs the BCM283x clock manager's general purpose, PCM
// and PWM generators, and solves for the source, MASH level and 12.12
// divisor that best approximate a requested period or frequency.
package clock

import (
	"fmt"

	"github.com/signalbox/raspberrypi/hw"
)

const blockOffset = 0x101000

// ID names a generator within the clock manager.
type ID int

const (
	GP0 ID = iota
	GP1
	GP2
	PCM
	PWM
)

// Control/divisor register pair offsets within the clock manager block.
var genOffsets = [...]uint32{
	GP0: 0x70,
	GP1: 0x78,
	GP2: 0x80,
	PCM: 0x98,
	PWM: 0xa0,
}

func (id ID) String() string {
	switch id {
	case GP0, GP1, GP2:
		return fmt.Sprintf("GP%d", int(id))
	case PCM:
		return "PCM"
	case PWM:
		return "PWM"
	}
	return fmt.Sprintf("ID(%d)", int(id))
}

type genRegs struct {
	ctl hw.U32
	div hw.U32
}

// Clocks is the mapped clock manager.  One per SoC; treat as a process-wide
// singleton and serialize access to it.
type Clocks struct {
	win *hw.Window
}

// Open maps the clock manager's registers.
func Open() (*Clocks, error) {
	win, err := hw.Map(blockOffset, int(genOffsets[PWM])+8)
	if err != nil {
		return nil, fmt.Errorf("clock: %v", err)
	}
	return &Clocks{win: win}, nil
}

// Close unmaps the clock manager.  Generators obtained from it must not be
// used afterwards; running generators keep running.
func (c *Clocks) Close() error { return c.win.Close() }

// Generator returns the named generator.
func (c *Clocks) Generator(id ID) (*Generator, error) {
	if id < GP0 || id > PWM {
		return nil, fmt.Errorf("clock: no generator %d", int(id))
	}
	return &Generator{
		id:   id,
		regs: (*genRegs)(c.win.RegsAt(genOffsets[id])),
	}, nil
}

// Generator is one frequency generator of the clock manager.
type Generator struct {
	id   ID
	regs *genRegs
}

// ID returns the generator's name.
func (g *Generator) ID() ID { return g.id }

// Control returns the generator's current control word.
func (g *Generator) Control() Control { return Control(g.regs.ctl.Get()) }

// Divisor returns the generator's current divisor word.
func (g *Generator) Divisor() Divisor { return Divisor(g.regs.div.Get()) }

// store writes a control word; the password goes into the top byte no
// matter what the caller built, since the hardware discards writes
// without it.
func (g *Generator) store(c Control) { g.regs.ctl.Set(uint32(c.withPassword())) }

// Running reports the hardware's busy flag.
func (g *Generator) Running() bool { return g.Control().Busy() }

// Configure stops the generator, waits for the running flag to settle, and
// programs the solution's divisor, source and MASH level.  Changing any of
// these while running glitches the output; the register interface cannot
// prevent a caller racing this, so callers must serialize.
func (g *Generator) Configure(s Solution) {
	g.store(g.Control().WithEnabled(false))
	for g.Running() {
	}
	g.regs.div.Set(uint32(NewDivisor(s.DivI, s.DivF)))
	g.store(NewControl().WithSource(s.Source).WithMASH(s.MASH))
}

// Enable starts the generator and spins until the hardware reports it
// running.  No timeout: a wedged clock manager hangs the caller.
func (g *Generator) Enable() {
	g.store(g.Control().WithEnabled(true))
	for !g.Running() {
	}
}

// Disable stops the generator and spins until the hardware reports it
// stopped.  No timeout, as with Enable.
func (g *Generator) Disable() {
	g.store(g.Control().WithEnabled(false))
	for g.Running() {
	}
}
