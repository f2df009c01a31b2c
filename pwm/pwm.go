// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Package pwm configures the BCM283x PWM block.  In serializer mode with
// the FIFO as data source and a DMA chain feeding it, the block shifts an
// arbitrary bit pattern out of a pin at the PWM clock rate, which is the
// timed-output path the DMA and clock packages exist to serve.
package pwm

import (
	"fmt"

	"github.com/signalbox/raspberrypi/hw"
)

const blockOffset = 0x20c000

// DREQ is the PWM block's peripheral number for DMA pacing
// (dma.PeripheralPWM carries the same value).
const DREQ = 5

type regs struct {
	ctl  hw.U32 // 0x00 control
	sta  hw.U32 // 0x04 status
	dmac hw.U32 // 0x08 DMA configuration
	_    hw.U32
	rng1 hw.U32 // 0x10 channel 1 range
	dat1 hw.U32 // 0x14 channel 1 data
	fif1 hw.U32 // 0x18 FIFO input, shared by both channels
	_    hw.U32
	rng2 hw.U32 // 0x20 channel 2 range
	dat2 hw.U32 // 0x24 channel 2 data
}

// Control register bits for channel 1; channel 2's sit 8 bits higher.
const (
	ctlEnable     = 1 << 0
	ctlSerializer = 1 << 1
	ctlRepeatLast = 1 << 2
	ctlSilenceHi  = 1 << 3
	ctlInvert     = 1 << 4
	ctlUseFIFO    = 1 << 5
	ctlMarkSpace  = 1 << 7

	ctlClearFIFO = 1 << 6 // single-shot, channel independent
)

// Status are the PWM block's status flags.  The error flags are sticky and
// cleared by writing them back, never by zeroing the register.
type Status uint32

const (
	FIFOFull  Status = 1 << 0
	FIFOEmpty Status = 1 << 1
	// FIFOWriteError: the FIFO was written while full.
	FIFOWriteError Status = 1 << 2
	// FIFOReadError: the FIFO was read while empty.
	FIFOReadError Status = 1 << 3
	// Gap1..Gap4: the channel ran out of FIFO data mid-pattern.
	Gap1 Status = 1 << 4
	Gap2 Status = 1 << 5
	Gap3 Status = 1 << 6
	Gap4 Status = 1 << 7
	// BusError: a register write was not accepted.
	BusError Status = 1 << 8

	stickyMask = FIFOWriteError | FIFOReadError | Gap1 | Gap2 | Gap3 | Gap4 | BusError
)

// DMA configuration register fields.
const (
	dmacEnable              = 1 << 31
	dmacPanicShift          = 8
	dmacDreqShift           = 0
	dmacThresholdWidth uint = 8
)

// PWM is the mapped PWM block.  One per SoC; treat as a process-wide
// singleton and serialize access to it.
type PWM struct {
	win  *hw.Window
	regs *regs
}

// Open maps the PWM block's registers.
func Open() (*PWM, error) {
	win, err := hw.Map(blockOffset, 0x28)
	if err != nil {
		return nil, fmt.Errorf("pwm: %v", err)
	}
	return &PWM{win: win, regs: (*regs)(win.Regs())}, nil
}

// Close unmaps the PWM block.  The block keeps running as configured.
func (p *PWM) Close() error { return p.win.Close() }

// FIFOBus returns the bus address of the FIFO input register, the usual
// destination of a DREQ-paced DMA chain.
func (p *PWM) FIFOBus() uint32 { return p.win.Bus(0x18) }

// WriteFIFO pushes one word into the FIFO from the CPU.  Writing while
// full sets the sticky FIFOWriteError flag.
func (p *PWM) WriteFIFO(w uint32) { p.regs.fif1.Set(w) }

// ClearFIFO discards the FIFO contents.
func (p *PWM) ClearFIFO() { p.regs.ctl.SetBits(ctlClearFIFO) }

// EnableDMA makes the block assert DREQ when the FIFO holds fewer than
// dreq words and panic when fewer than panicAt, pacing a DMA chain to the
// PWM clock.
func (p *PWM) EnableDMA(dreq, panicAt uint32) {
	d := hw.WithField(0, dmacDreqShift, dmacThresholdWidth, dreq)
	d = hw.WithField(d, dmacPanicShift, dmacThresholdWidth, panicAt)
	p.regs.dmac.Set(d | dmacEnable)
}

// DisableDMA stops the block asserting DREQ.
func (p *PWM) DisableDMA() { p.regs.dmac.ClearBits(dmacEnable) }

// Status returns the block's current status flags.
func (p *PWM) Status() Status { return Status(p.regs.sta.Get()) }

// ClearStatus clears the given sticky error flags by writing them back.
func (p *PWM) ClearStatus(s Status) { p.regs.sta.Set(uint32(s & stickyMask)) }

// Channel returns channel 1 or 2 of the block.
func (p *PWM) Channel(n int) (Channel, error) {
	if n != 1 && n != 2 {
		return Channel{}, fmt.Errorf("pwm: no channel %d", n)
	}
	return Channel{regs: p.regs, shift: uint(8 * (n - 1))}, nil
}

// Channel configures one of the block's two output channels.  The FIFO and
// its DMA pacing are shared and live on PWM itself.
type Channel struct {
	regs  *regs
	shift uint
}

func (c Channel) setCtl(bit uint32, on bool) {
	if on {
		c.regs.ctl.SetBits(bit << c.shift)
	} else {
		c.regs.ctl.ClearBits(bit << c.shift)
	}
}

// Enable starts or stops the channel.
func (c Channel) Enable(on bool) { c.setCtl(ctlEnable, on) }

// UseSerializer switches between PWM mode (false) and serializer mode
// (true), in which each range-sized word shifts out bit by bit.
func (c Channel) UseSerializer(on bool) { c.setCtl(ctlSerializer, on) }

// UseFIFO feeds the channel from the shared FIFO instead of its data
// register.
func (c Channel) UseFIFO(on bool) { c.setCtl(ctlUseFIFO, on) }

// RepeatLast makes the channel repeat its last word when the FIFO runs
// dry instead of emitting the silence level.
func (c Channel) RepeatLast(on bool) { c.setCtl(ctlRepeatLast, on) }

// SilenceHigh sets the level driven outside transmission to high.
func (c Channel) SilenceHigh(on bool) { c.setCtl(ctlSilenceHi, on) }

// Invert inverts the channel output.
func (c Channel) Invert(on bool) { c.setCtl(ctlInvert, on) }

// MarkSpace switches PWM mode from distributed duty cycle to mark-space.
// Ignored in serializer mode.
func (c Channel) MarkSpace(on bool) { c.setCtl(ctlMarkSpace, on) }

// SetRange sets the channel's range: the period in PWM clock ticks, or in
// serializer mode the number of bits sent per word.
func (c Channel) SetRange(r uint32) {
	if c.shift == 0 {
		c.regs.rng1.Set(r)
	} else {
		c.regs.rng2.Set(r)
	}
}

// SetData sets the channel's data register, used when the FIFO is not.
func (c Channel) SetData(d uint32) {
	if c.shift == 0 {
		c.regs.dat1.Set(d)
	} else {
		c.regs.dat2.Set(d)
	}
}
