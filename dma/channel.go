// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package dma

import (
	"fmt"

	"github.com/signalbox/raspberrypi/hw"
)

// Peripheral block offsets.  Channels 0-14 are 0x100 apart in one block;
// channel 15 sits in its own block.  The enable and interrupt-status
// registers at the top of the main block are shared by all channels.
const (
	blockOffset     = 0x007000
	chan15Offset    = 0xe05000
	channelStride   = 0x100
	intStatusOffset = 0xfe0
	enableOffset    = 0xff0
)

// Control and status register bits.
const (
	csActive                      = 1 << 0
	csEnd                         = 1 << 1 // write to clear
	csInt                         = 1 << 2 // write to clear
	csDreq                        = 1 << 3
	csPaused                      = 1 << 4
	csDreqStopsDMA                = 1 << 5
	csWaitingForOutstandingWrites = 1 << 6
	csError                       = 1 << 8
	csWaitForOutstandingWrites    = 1 << 28
	csDisableDebug                = 1 << 29
	csAbort                       = 1 << 30
	csReset                       = 1 << 31
)

const (
	csPriorityShift, csPriorityWidth = 16, 4
	csPanicShift, csPanicWidth       = 20, 4
)

// DebugFlags are the sticky error conditions a channel reports in its
// debug register.  Each is cleared by writing the flag back, never by
// zeroing the register.
type DebugFlags uint32

const (
	// ReadLastNotSetError: the last signal was missing on the final read.
	ReadLastNotSetError DebugFlags = 1 << 0
	// FIFOError: the internal FIFO reported an error.
	FIFOError DebugFlags = 1 << 1
	// ReadError: a bus read returned an error response.
	ReadError DebugFlags = 1 << 2

	debugErrorMask = ReadLastNotSetError | FIFOError | ReadError
)

func (f DebugFlags) String() string {
	s := ""
	if f&ReadError != 0 {
		s += "|read error"
	}
	if f&FIFOError != 0 {
		s += "|FIFO error"
	}
	if f&ReadLastNotSetError != 0 {
		s += "|read last not set"
	}
	if s == "" {
		return "none"
	}
	return s[1:]
}

type channelRegs struct {
	cs        hw.U32
	conblkAd  hw.U32
	ti        hw.U32
	sourceAd  hw.U32
	destAd    hw.U32
	txfrLen   hw.U32
	stride    hw.U32
	nextConbk hw.U32
	debug     hw.U32
}

// DMA is the channel array plus the shared enable and interrupt-status
// registers.  There is one engine per SoC; treat this as a process-wide
// singleton and serialize access to it.
type DMA struct {
	win    *hw.Window // channels 0-14, enable, interrupt status
	win15  *hw.Window // channel 15
	chans  [16]Channel
	enable *hw.U32
	intSt  *hw.U32
}

// Open maps the DMA engine's registers.
func Open() (*DMA, error) {
	win, err := hw.Map(blockOffset, 0x1000)
	if err != nil {
		return nil, fmt.Errorf("dma: %v", err)
	}
	win15, err := hw.Map(chan15Offset, channelStride)
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("dma: %v", err)
	}
	d := &DMA{
		win:    win,
		win15:  win15,
		enable: win.U32(enableOffset),
		intSt:  win.U32(intStatusOffset),
	}
	for n := 0; n < 15; n++ {
		d.chans[n] = Channel{
			n:    n,
			regs: (*channelRegs)(win.RegsAt(uint32(n * channelStride))),
		}
	}
	d.chans[15] = Channel{n: 15, regs: (*channelRegs)(win15.Regs())}
	return d, nil
}

// Close unmaps the engine's registers.  Channels obtained from this DMA
// must not be used afterwards; any active transfer keeps running.
func (d *DMA) Close() error {
	err := d.win.Close()
	if e := d.win15.Close(); err == nil {
		err = e
	}
	return err
}

// Channel returns channel n of the engine.
func (d *DMA) Channel(n int) (*Channel, error) {
	if n < 0 || n > 15 {
		return nil, fmt.Errorf("dma: no channel %d", n)
	}
	return &d.chans[n], nil
}

// Enable sets channel n's bit in the global enable register.  A channel
// ignores writes while disabled.
func (d *DMA) Enable(n int) { d.enable.SetBits(1 << uint(n)) }

// Disable clears channel n's bit in the global enable register.
func (d *DMA) Disable(n int) { d.enable.ClearBits(1 << uint(n)) }

// Enabled reports whether channel n is enabled.
func (d *DMA) Enabled(n int) bool { return d.enable.Get()&(1<<uint(n)) != 0 }

// InterruptStatus returns the per-channel interrupt bits.
func (d *DMA) InterruptStatus() uint16 { return uint16(d.intSt.Get()) }

// Channel is one of the engine's sixteen transfer channels.
type Channel struct {
	n    int
	regs *channelRegs
}

// Number returns the channel number.
func (c *Channel) Number() int { return c.n }

// Reset pulses the channel reset bit; the hardware clears it again once
// the channel is reset.
func (c *Channel) Reset() { c.regs.cs.SetBits(csReset) }

// Abort pulses the abort bit, stopping the current control block.  There
// is no graceful drain: abort then Reset to cancel a chain.
func (c *Channel) Abort() { c.regs.cs.SetBits(csAbort) }

// Activate points the channel at the first control block of a chain, by
// bus address, and sets it running.  The engine walks the chain on its own
// until it reaches the stop sentinel or an error.
func (c *Channel) Activate(chain uint32) {
	c.regs.conblkAd.Set(chain)
	c.regs.cs.SetBits(csActive)
}

// Active reports whether the channel is still walking a chain.
func (c *Channel) Active() bool { return c.regs.cs.Get()&csActive != 0 }

// Complete reports whether the end flag is set.  Sticky; cleared with
// ClearComplete.
func (c *Channel) Complete() bool { return c.regs.cs.Get()&csEnd != 0 }

// ClearComplete clears the end flag by writing it back.
func (c *Channel) ClearComplete() { c.regs.cs.SetBits(csEnd) }

// Wait spins until the channel stops, either at the stop sentinel or on an
// error.  There is deliberately no timeout: the engine is trusted to
// terminate, and a chain whose next pointers form a cycle will hang the
// caller.
func (c *Channel) Wait() {
	for c.Active() {
	}
}

// Errored reports whether the channel stopped on an error.
func (c *Channel) Errored() bool { return c.regs.cs.Get()&csError != 0 }

// Errors returns the channel's sticky error flags.
func (c *Channel) Errors() DebugFlags {
	return DebugFlags(c.regs.debug.Get()) & debugErrorMask
}

// ClearErrors clears the given sticky error flags by writing them back.
func (c *Channel) ClearErrors(f DebugFlags) {
	c.regs.debug.Set(uint32(f & debugErrorMask))
}

// Block returns the bus address of the control block the channel is
// currently executing, zero when stopped at the sentinel.
func (c *Channel) Block() uint32 { return c.regs.conblkAd.Get() }
