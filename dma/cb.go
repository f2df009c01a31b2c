// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Package dma drives the BCM283x DMA engine: it encodes control blocks,
// links them into hardware-walked chains and runs channels through them.
//
// A control block describes one transfer.  Chained control blocks form a
// transfer program the engine executes on its own; with DREQ pacing against
// a clock-driven peripheral the program runs with hardware timing,
// independent of CPU scheduling.
package dma

import (
	"encoding/binary"
	"fmt"

	"github.com/signalbox/raspberrypi/hw"
)

// TransferInfo is the first word of a control block: flags plus packed
// burst-length, peripheral-map and wait-cycle fields.
type TransferInfo uint32

const (
	// InterruptEnable raises the channel interrupt when the block
	// completes.
	InterruptEnable TransferInfo = 1 << 0
	// TwoDMode interprets Length as yCount<<16|xRowBytes and applies
	// Stride after each row.
	TwoDMode TransferInfo = 1 << 1
	// WaitForWriteResponse stalls writes until they are acknowledged.
	WaitForWriteResponse TransferInfo = 1 << 3

	DestAddrIncrement TransferInfo = 1 << 4
	DestWidth128      TransferInfo = 1 << 5
	// DestDREQGated paces writes by the destination peripheral's data
	// request signal.
	DestDREQGated TransferInfo = 1 << 6
	DestIgnore    TransferInfo = 1 << 7

	SrcAddrIncrement TransferInfo = 1 << 8
	SrcWidth128      TransferInfo = 1 << 9
	// SrcDREQGated paces reads by the source peripheral's data request
	// signal.
	SrcDREQGated TransferInfo = 1 << 10
	SrcIgnore    TransferInfo = 1 << 11

	NoWideBursts TransferInfo = 1 << 26
)

const (
	burstShift, burstWidth   = 12, 4
	permapShift, permapWidth = 16, 5
	waitsShift, waitsWidth   = 21, 5
)

// Peripheral mapping values for WithPeripheral.
const (
	PeripheralNone   = 0
	PeripheralDSI    = 1
	PeripheralPCMTx  = 2
	PeripheralPCMRx  = 3
	PeripheralSMI    = 4
	PeripheralPWM    = 5
	PeripheralSPITx  = 6
	PeripheralSPIRx  = 7
	PeripheralUARTTx = 12
	PeripheralUARTRx = 14
)

// BurstLength returns the packed burst length field.
func (t TransferInfo) BurstLength() uint32 {
	return hw.Field(uint32(t), burstShift, burstWidth)
}

// WithBurstLength returns t with the burst length field replaced.
func (t TransferInfo) WithBurstLength(n uint32) TransferInfo {
	return TransferInfo(hw.WithField(uint32(t), burstShift, burstWidth, n))
}

// Peripheral returns the peripheral whose DREQ gates this transfer.
func (t TransferInfo) Peripheral() uint32 {
	return hw.Field(uint32(t), permapShift, permapWidth)
}

// WithPeripheral returns t with the peripheral map field replaced.
func (t TransferInfo) WithPeripheral(p uint32) TransferInfo {
	return TransferInfo(hw.WithField(uint32(t), permapShift, permapWidth, p))
}

// WaitCycles returns the number of idle cycles added after each read or
// write.
func (t TransferInfo) WaitCycles() uint32 {
	return hw.Field(uint32(t), waitsShift, waitsWidth)
}

// WithWaitCycles returns t with the wait cycles field replaced.
func (t TransferInfo) WithWaitCycles(n uint32) TransferInfo {
	return TransferInfo(hw.WithField(uint32(t), waitsShift, waitsWidth, n))
}

// ControlBlockSize is the size of an encoded control block.  The engine
// requires blocks to be 32 byte aligned.
const ControlBlockSize = 32

// ControlBlock is one DMA transfer descriptor.  SrcAddr, DestAddr and Next
// are bus addresses.  Next is left zero (the stop sentinel) by the chain
// builder until a following block is appended.
type ControlBlock struct {
	Info     TransferInfo
	SrcAddr  uint32
	DestAddr uint32
	Length   uint32
	Stride   uint32
	Next     uint32
}

// Length2D packs a 2-D transfer length: yCount rows of xRowBytes each.
// The block's Info must have TwoDMode set.
func Length2D(xRowBytes, yCount uint32) uint32 {
	return hw.WithField(hw.WithField(0, 0, 16, xRowBytes), 16, 14, yCount)
}

// Stride2D packs the signed byte offsets added to the source and
// destination addresses at the end of each 2-D row.
func Stride2D(src, dest int16) uint32 {
	return uint32(uint16(dest))<<16 | uint32(uint16(src))
}

// encode writes the block's 32 byte little-endian wire format.
func (cb *ControlBlock) encode(b []byte) {
	if len(b) < ControlBlockSize {
		panic(fmt.Errorf("dma: control block needs %d bytes, have %d",
			ControlBlockSize, len(b)))
	}
	binary.LittleEndian.PutUint32(b[0x00:], uint32(cb.Info))
	binary.LittleEndian.PutUint32(b[0x04:], cb.SrcAddr)
	binary.LittleEndian.PutUint32(b[0x08:], cb.DestAddr)
	binary.LittleEndian.PutUint32(b[0x0c:], cb.Length)
	binary.LittleEndian.PutUint32(b[0x10:], cb.Stride)
	binary.LittleEndian.PutUint32(b[0x14:], cb.Next)
	binary.LittleEndian.PutUint32(b[0x18:], 0) // reserved, must be zero
	binary.LittleEndian.PutUint32(b[0x1c:], 0)
}
