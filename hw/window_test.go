// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package hw

import "testing"

func TestMapBounds(t *testing.T) {
	const page = 4096
	for _, x := range []struct {
		offset        uint32
		size          int
		start         uint32
		length, skip  int
	}{
		{0x200000, 0xa0, 0x200000, page, 0},
		{0x200000, page, 0x200000, page, 0},
		{0x200000, page + 1, 0x200000, 2 * page, 0},
		{0x2010a0, 8, 0x201000, page, 0xa0},
		{0x201ff8, 16, 0x201000, 2 * page, 0xff8},
	} {
		start, length, skip := mapBounds(x.offset, x.size, page)
		if start != x.start || length != x.length || skip != x.skip {
			t.Errorf("mapBounds(%#x, %#x) = %#x, %#x, %#x; want %#x, %#x, %#x",
				x.offset, x.size, start, length, skip,
				x.start, x.length, x.skip)
		}
		if start%page != 0 {
			t.Errorf("mapBounds(%#x, %#x): start %#x not page aligned",
				x.offset, x.size, start)
		}
		if skip+x.size > length {
			t.Errorf("mapBounds(%#x, %#x): range not covered", x.offset, x.size)
		}
	}
}

func TestRangesBase(t *testing.T) {
	for _, x := range []struct {
		name  string
		cells []uint32
		phys  uint32
		ok    bool
	}{
		{"bcm2835", []uint32{0x7e000000, 0x20000000, 0x02000000}, 0x20000000, true},
		{"bcm2836", []uint32{0x7e000000, 0x3f000000, 0x01000000}, 0x3f000000, true},
		{"bcm2711", []uint32{0x7e000000, 0x0, 0xfe000000, 0x01800000}, 0xfe000000, true},
		{"empty", nil, 0, false},
		{"truncated", []uint32{0x7e000000}, 0, false},
	} {
		phys, ok := rangesBase(x.cells)
		if phys != x.phys || ok != x.ok {
			t.Errorf("%s: rangesBase = %#x, %v; want %#x, %v",
				x.name, phys, ok, x.phys, x.ok)
		}
	}
}
