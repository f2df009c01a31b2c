// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package gpio

import (
	"testing"
	"unsafe"
)

func TestRegisterLayout(t *testing.T) {
	r := new(regs)
	base := uintptr(unsafe.Pointer(r))
	for _, x := range []struct {
		name string
		p    unsafe.Pointer
		off  uintptr
	}{
		{"fsel", unsafe.Pointer(&r.fsel), 0x00},
		{"set", unsafe.Pointer(&r.set), 0x1c},
		{"clr", unsafe.Pointer(&r.clr), 0x28},
		{"lev", unsafe.Pointer(&r.lev), 0x34},
		{"eds", unsafe.Pointer(&r.eds), 0x40},
		{"ren", unsafe.Pointer(&r.ren), 0x4c},
		{"fen", unsafe.Pointer(&r.fen), 0x58},
		{"hen", unsafe.Pointer(&r.hen), 0x64},
		{"len", unsafe.Pointer(&r.len), 0x70},
		{"aren", unsafe.Pointer(&r.aren), 0x7c},
		{"afen", unsafe.Pointer(&r.afen), 0x88},
		{"pud", unsafe.Pointer(&r.pud), 0x94},
		{"pudclk", unsafe.Pointer(&r.pudclk), 0x98},
	} {
		if got := uintptr(x.p) - base; got != x.off {
			t.Errorf("%s at %#x, want %#x", x.name, got, x.off)
		}
	}
}

func testPin(t *testing.T, r *regs, n int) Pin {
	t.Helper()
	return Pin{regs: r, n: uint(n)}
}

func TestPinFunction(t *testing.T) {
	r := new(regs)
	p17 := testPin(t, r, 17)
	p18 := testPin(t, r, 18)

	p17.SetFunction(Output)
	p18.SetFunction(Alt5)
	if p17.Function() != Output {
		t.Errorf("pin 17 function %d", p17.Function())
	}
	if p18.Function() != Alt5 {
		t.Errorf("pin 18 function %d", p18.Function())
	}
	// Both live in fsel1; neither write may clobber the other.
	p17.SetFunction(Input)
	if p18.Function() != Alt5 {
		t.Error("pin 18 function lost on pin 17 write")
	}
	if r.fsel[0].Get() != 0 || r.fsel[2].Get() != 0 {
		t.Error("write hit the wrong select register")
	}
}

func TestPinSetClear(t *testing.T) {
	r := new(regs)
	lo := testPin(t, r, 4)
	hi := testPin(t, r, 47)

	lo.Set()
	hi.Set()
	if r.set[0].Get() != 1<<4 {
		t.Errorf("set[0] = %#x", r.set[0].Get())
	}
	if r.set[1].Get() != 1<<(47-32) {
		t.Errorf("set[1] = %#x", r.set[1].Get())
	}
	lo.Clear()
	if r.clr[0].Get() != 1<<4 {
		t.Errorf("clr[0] = %#x", r.clr[0].Get())
	}

	r.lev[1].Set(1 << (47 - 32))
	if !hi.Level() || lo.Level() {
		t.Error("levels misread")
	}
}

func TestPinEvents(t *testing.T) {
	r := new(regs)
	p := testPin(t, r, 20)

	p.DetectRisingEdge(true)
	p.DetectFallingEdge(true)
	if r.ren[0].Get() != 1<<20 || r.fen[0].Get() != 1<<20 {
		t.Error("edge enables not set")
	}
	p.DetectRisingEdge(false)
	if r.ren[0].Get() != 0 {
		t.Error("rising enable not cleared")
	}
	if r.fen[0].Get() != 1<<20 {
		t.Error("falling enable lost on rising change")
	}

	r.eds[0].Set(1 << 20)
	if !p.EventDetected() {
		t.Error("event not detected")
	}
	p.ClearEvent()
	if r.eds[0].Get() != 1<<20 {
		t.Error("clear must write the flag back, not zero the register")
	}
}

func TestPinBounds(t *testing.T) {
	g := &GPIO{regs: new(regs)}
	if _, err := g.Pin(-1); err == nil {
		t.Error("pin -1 accepted")
	}
	if _, err := g.Pin(Pins); err == nil {
		t.Errorf("pin %d accepted", Pins)
	}
	if _, err := g.Pin(53); err != nil {
		t.Errorf("pin 53 rejected: %v", err)
	}
}
