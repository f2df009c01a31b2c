// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package hw

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Window is a range of peripheral registers mapped into process memory.
// One Window owns one mapping; logical peripherals sharing a mapping should
// be modeled as offsets into a single Window rather than separate mappings.
type Window struct {
	offset uint32 // offset of the requested range within the peripheral block
	phys   uint32 // physical address of the start of the mapping
	mem    []byte
	skip   int // bytes between the start of the mapping and the requested range
}

// mapBounds widens a requested (offset, size) range so that the mapping
// starts on a page boundary and still covers size bytes from the true
// offset.  Returns the aligned start, the widened length and the number of
// leading bytes to skip.
func mapBounds(offset uint32, size, pageSize int) (start uint32, length, skip int) {
	skip = int(offset) % pageSize
	start = offset - uint32(skip)
	length = (skip + size + pageSize - 1) &^ (pageSize - 1)
	return
}

// Map maps size bytes of peripheral registers starting at the given offset
// within the peripheral block.
func Map(offset uint32, size int) (*Window, error) {
	f, err := memFile()
	if err != nil {
		return nil, err
	}
	start, length, skip := mapBounds(offset, size, os.Getpagesize())
	mem, err := unix.Mmap(int(f.Fd()), int64(Base()+start),
		length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%s: mmap 0x%08x+0x%x: %v",
			devMem, Base()+start, length, err)
	}
	return &Window{
		offset: offset,
		phys:   Base() + start,
		mem:    mem,
		skip:   skip,
	}, nil
}

// MapPhys maps size bytes of physical memory outside the peripheral block,
// e.g. a firmware-allocated coherent region.  phys must be page aligned.
func MapPhys(phys uint32, size int) ([]byte, error) {
	f, err := memFile()
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), int64(phys), size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%s: mmap 0x%08x+0x%x: %v",
			devMem, phys, size, err)
	}
	return mem, nil
}

// Unmap releases a mapping obtained from MapPhys.
func Unmap(mem []byte) error { return unix.Munmap(mem) }

// U32 returns the register at the given offset from the start of the
// window's requested range.
func (w *Window) U32(offset uint32) *U32 {
	return (*U32)(unsafe.Pointer(&w.mem[w.skip+int(offset)]))
}

// Regs casts the window's requested range to a register struct pointer.
// The caller supplies the concrete struct type:
//
//	regs := (*gpioRegs)(w.Regs())
func (w *Window) Regs() unsafe.Pointer {
	return unsafe.Pointer(&w.mem[w.skip])
}

// RegsAt is Regs at a byte offset into the window, for register blocks
// repeated at a stride within one mapping.
func (w *Window) RegsAt(offset uint32) unsafe.Pointer {
	return unsafe.Pointer(&w.mem[w.skip+int(offset)])
}

// Bus returns the bus address of the register at the given offset from the
// start of the window's requested range, for handing to the DMA engine.
func (w *Window) Bus(offset uint32) uint32 {
	return BusBase + w.offset + offset
}

// Close unmaps the window.  Registers obtained from it must not be used
// afterwards.
func (w *Window) Close() error {
	mem := w.mem
	w.mem = nil
	return unix.Munmap(mem)
}
