// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package dma

import (
	"encoding/binary"
	"testing"
)

func TestChainLinkage(t *testing.T) {
	const busBase = 0xc0002000
	const n = 5
	buf := make([]byte, n*ControlBlockSize)
	b := NewBuilder(buf, busBase)

	for i := 0; i < n; i++ {
		addr, err := b.Append(ControlBlock{
			SrcAddr: uint32(0x1000 * i),
			Next:    0xdeadbeef, // must be overridden
		})
		if err != nil {
			t.Fatal(err)
		}
		if want := uint32(busBase + i*ControlBlockSize); addr != want {
			t.Fatalf("block %d at %#x, want %#x", i, addr, want)
		}
	}
	if b.Len() != n {
		t.Fatalf("Len = %d", b.Len())
	}
	if b.First() != busBase {
		t.Fatalf("First = %#x", b.First())
	}

	// Every block but the last points at its successor; the last carries
	// the stop sentinel.
	for i := 0; i < n; i++ {
		next := binary.LittleEndian.Uint32(buf[i*ControlBlockSize+0x14:])
		want := uint32(busBase + (i+1)*ControlBlockSize)
		if i == n-1 {
			want = 0
		}
		if next != want {
			t.Errorf("block %d next = %#x, want %#x", i, next, want)
		}
	}
}

func TestChainSingleBlockSentinel(t *testing.T) {
	buf := make([]byte, ControlBlockSize)
	b := NewBuilder(buf, 0xc0000000)
	if _, err := b.Append(ControlBlock{Next: 42}); err != nil {
		t.Fatal(err)
	}
	if next := binary.LittleEndian.Uint32(buf[0x14:]); next != 0 {
		t.Fatalf("single block next = %#x, want stop sentinel", next)
	}
}

func TestChainBufferFull(t *testing.T) {
	buf := make([]byte, 2*ControlBlockSize)
	b := NewBuilder(buf, 0xc0000000)
	for i := 0; i < 2; i++ {
		if _, err := b.Append(ControlBlock{}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.Append(ControlBlock{}); err == nil {
		t.Fatal("expected error appending past end of buffer")
	}
	if b.Len() != 2 {
		t.Fatalf("failed append changed Len to %d", b.Len())
	}
}

func TestChainEmpty(t *testing.T) {
	b := NewBuilder(make([]byte, ControlBlockSize), 0xc0000000)
	if b.First() != 0 {
		t.Fatalf("empty chain First = %#x", b.First())
	}
	if b.Size() != 0 {
		t.Fatalf("empty chain Size = %d", b.Size())
	}
}

func TestChainMisalignedBase(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for misaligned bus address")
		}
	}()
	NewBuilder(make([]byte, ControlBlockSize), 0xc0000010)
}
