// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Package gpumem allocates physically contiguous, cache-bypassing memory
// from the VideoCore firmware and maps it into the process.  Memory here is
// visible to the DMA engine at its bus address without any cache
// maintenance, which is what DMA control block chains must live in.
//
// The firmware does not reclaim these allocations when the process exits:
// a Region that is never freed is leaked until reboot.
package gpumem

import (
	"fmt"
	"os"

	"github.com/signalbox/raspberrypi/hw"
	"github.com/signalbox/raspberrypi/hw/mbox"
)

// UncachedAlias is the bus alias in which locked firmware allocations
// appear when requested with mbox.FlagDirect.  Accesses through it bypass
// both the GPU L2 and the ARM caches.
const UncachedAlias uint32 = 0xc0000000

// BusAddr returns the bus address of a physical address within the
// uncached alias.
func BusAddr(phys uint32) uint32 { return phys | UncachedAlias }

// PhysAddr returns the physical address behind an uncached-alias bus
// address.
func PhysAddr(bus uint32) uint32 { return bus &^ UncachedAlias }

// Region is a firmware allocation locked in place and mapped into the
// process.
type Region struct {
	handle uint32
	bus    uint32
	mem    []byte
}

// Bus returns the bus address of the start of the region.
func (r *Region) Bus() uint32 { return r.bus }

// Mem returns the mapped memory of the region.  Writes land in the
// uncached alias and are immediately visible to the DMA engine.
func (r *Region) Mem() []byte { return r.mem }

// Len returns the usable byte length of the region, always a whole number
// of pages.
func (r *Region) Len() int { return len(r.mem) }

// Alloc obtains at least size bytes of coherent memory, rounded up to a
// whole number of pages.  The region must be returned with Free; it
// outlives the process otherwise.
func Alloc(m *mbox.Mailbox, size int) (*Region, error) {
	page := os.Getpagesize()
	size = (size + page - 1) &^ (page - 1)

	handle, err := m.AllocateMemory(size, page, mbox.FlagDirect)
	if err != nil {
		return nil, fmt.Errorf("gpumem: allocate %d bytes: %v", size, err)
	}
	bus, err := m.LockMemory(handle)
	if err != nil {
		m.ReleaseMemory(handle)
		return nil, fmt.Errorf("gpumem: lock: %v", err)
	}
	mem, err := hw.MapPhys(PhysAddr(bus), size)
	if err != nil {
		m.UnlockMemory(handle)
		m.ReleaseMemory(handle)
		return nil, fmt.Errorf("gpumem: %v", err)
	}
	return &Region{handle: handle, bus: bus, mem: mem}, nil
}

// Free unlocks and releases the firmware handle, then unmaps the region.
// The region's memory must not be touched afterwards.  Freeing a region
// twice fails: the firmware no longer knows the handle.
func (r *Region) Free(m *mbox.Mailbox) error {
	var first error
	if err := m.UnlockMemory(r.handle); err != nil && first == nil {
		first = err
	}
	if err := m.ReleaseMemory(r.handle); err != nil && first == nil {
		first = err
	}
	if r.mem != nil {
		if err := hw.Unmap(r.mem); err != nil && first == nil {
			first = err
		}
		r.mem = nil
	}
	return first
}
