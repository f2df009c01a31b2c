// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package dma

import (
	"encoding/binary"
	"fmt"

	"github.com/signalbox/raspberrypi/hw/gpumem"
)

// Builder assembles a chain of control blocks in a flat byte buffer the
// engine will walk by bus address.  Appending a block back-patches the
// previous block's next pointer; the last block always carries the stop
// sentinel until another is appended.
type Builder struct {
	buf []byte
	bus uint32
	n   int
}

// NewBuilder builds a chain in buf, which the engine will see starting at
// busAddr.  Panics if busAddr does not satisfy the engine's 32 byte control
// block alignment.
func NewBuilder(buf []byte, busAddr uint32) *Builder {
	if busAddr%ControlBlockSize != 0 {
		panic(fmt.Errorf("dma: chain bus address %#x not %d byte aligned",
			busAddr, ControlBlockSize))
	}
	return &Builder{buf: buf, bus: busAddr}
}

// NewRegionBuilder builds a chain at the start of a coherent region.
func NewRegionBuilder(r *gpumem.Region) *Builder {
	return NewBuilder(r.Mem(), r.Bus())
}

// Append adds a block to the end of the chain and returns its bus address.
// The block's Next is overridden: it becomes the stop sentinel, and the
// previously appended block is patched to point here.
func (b *Builder) Append(cb ControlBlock) (uint32, error) {
	off := b.n * ControlBlockSize
	if off+ControlBlockSize > len(b.buf) {
		return 0, fmt.Errorf("dma: chain buffer full after %d blocks", b.n)
	}
	addr := b.bus + uint32(off)
	cb.Next = 0
	cb.encode(b.buf[off:])
	if b.n > 0 {
		prev := off - ControlBlockSize + 0x14
		binary.LittleEndian.PutUint32(b.buf[prev:], addr)
	}
	b.n++
	return addr, nil
}

// Len returns the number of blocks appended so far.
func (b *Builder) Len() int { return b.n }

// Size returns the number of buffer bytes occupied by the chain.
func (b *Builder) Size() int { return b.n * ControlBlockSize }

// First returns the bus address of the first block, the address a channel
// is activated with.  Zero if the chain is empty.
func (b *Builder) First() uint32 {
	if b.n == 0 {
		return 0
	}
	return b.bus
}
