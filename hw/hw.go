// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Package hw maps BCM283x peripheral registers into process memory and
// translates between the CPU-physical and DMA-bus views of the peripheral
// address space.
//
// The peripheral block always appears at BusBase to bus masters such as the
// DMA engine; its physical location differs per board and is discovered from
// the device tree, falling back to the original BCM2835 location.
package hw

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	"github.com/platinasystems/fdt"
)

const (
	// BusBase is the peripheral base as seen by bus masters.  Constant
	// across board revisions.
	BusBase uint32 = 0x7e000000

	// LegacyBase is the physical peripheral base of the original
	// BCM2835, used when no device tree is available.
	LegacyBase uint32 = 0x20000000
)

// Device tree sources, in order of preference.  Variables so tests can
// point them elsewhere.
var (
	fdtBlob   = "/sys/firmware/fdt"
	socRanges = "/proc/device-tree/soc/ranges"
)

var base struct {
	once sync.Once
	phys uint32
}

// Base returns the physical address of the peripheral block on this board.
func Base() uint32 {
	base.once.Do(func() { base.phys = discoverBase() })
	return base.phys
}

// BusAddr returns the bus address of the peripheral register at the given
// offset within the peripheral block.
func BusAddr(offset uint32) uint32 { return BusBase + offset }

// PhysAddr returns the physical address of the peripheral register at the
// given offset within the peripheral block.
func PhysAddr(offset uint32) uint32 { return Base() + offset }

func discoverBase() uint32 {
	if b, err := ioutil.ReadFile(fdtBlob); err == nil {
		t := &fdt.Tree{}
		if err = t.Parse(b); err == nil {
			var ranges []uint32
			t.MatchNode("soc", func(n *fdt.Node) {
				ranges = t.PropUint32Slice(n.Properties["ranges"])
			})
			if phys, ok := rangesBase(ranges); ok {
				return phys
			}
		}
	}
	if b, err := ioutil.ReadFile(socRanges); err == nil {
		ranges := make([]uint32, len(b)/4)
		for i := range ranges {
			ranges[i] = binary.BigEndian.Uint32(b[i*4:])
		}
		if phys, ok := rangesBase(ranges); ok {
			return phys
		}
	}
	return LegacyBase
}

// rangesBase extracts the physical peripheral base from the cells of the
// soc node's "ranges" property.  The child address is always the single
// cell 0x7e000000; the parent address that follows it is one cell on
// BCM2835/6/7 and two cells (high word first) on BCM2711.
func rangesBase(cells []uint32) (uint32, bool) {
	for i, c := range cells {
		if c != BusBase || i+1 >= len(cells) {
			continue
		}
		if cells[i+1] != 0 {
			return cells[i+1], true
		}
		if i+2 < len(cells) && cells[i+2] != 0 {
			return cells[i+2], true
		}
	}
	return 0, false
}

const devMem = "/dev/mem"

var mem struct {
	once sync.Once
	f    *os.File
	err  error
}

// memFile opens /dev/mem once for the life of the process.  All register
// windows and coherent regions map through this descriptor.
func memFile() (*os.File, error) {
	mem.once.Do(func() {
		mem.f, mem.err = os.OpenFile(devMem, os.O_RDWR|os.O_SYNC, 0)
		if mem.err != nil && os.IsPermission(mem.err) {
			mem.err = fmt.Errorf("%v (run as root)", mem.err)
		}
	})
	return mem.f, mem.err
}
