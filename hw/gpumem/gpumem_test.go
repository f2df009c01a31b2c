// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package gpumem

import "testing"

func TestAliasTranslationSelfInverse(t *testing.T) {
	for _, phys := range []uint32{0, 0x1000, 0x0badcafe & ^UncachedAlias, 0x3f000000} {
		if got := PhysAddr(BusAddr(phys)); got != phys {
			t.Errorf("PhysAddr(BusAddr(%#x)) = %#x", phys, got)
		}
	}
	for _, bus := range []uint32{0xc0000000, 0xc0001000, 0xfe000000} {
		if got := BusAddr(PhysAddr(bus)); got != bus {
			t.Errorf("BusAddr(PhysAddr(%#x)) = %#x", bus, got)
		}
	}
}

func TestBusAliasBit(t *testing.T) {
	if BusAddr(0x1e000000) != 0xde000000 {
		t.Errorf("BusAddr(0x1e000000) = %#x", BusAddr(0x1e000000))
	}
	if PhysAddr(0xde000000) != 0x1e000000 {
		t.Errorf("PhysAddr(0xde000000) = %#x", PhysAddr(0xde000000))
	}
}
