// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

// Package mbox talks to the VideoCore firmware over the mailbox property
// channel exposed by /dev/vcio.  Each call is a synchronous request/response
// exchange over a fixed-layout buffer of 32 bit words.
package mbox

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const devVcio = "/dev/vcio"

// _IOWR(100, 0, char *) from the vcio driver.
const mboxPropertyIoctl = 3<<30 | uint(unsafe.Sizeof(uintptr(0)))<<16 | 100<<8 | 0

// Property buffer codes.
const (
	codeRequest        = 0x00000000
	codeResponse       = 0x80000000
	codeParseError     = 0x80000001
	tagResponse        = 0x80000000 // bit 31 of the value-buffer-size word
	tagEnd             = 0x00000000
)

// Memory management property tags.
const (
	tagAllocateMemory = 0x0003000c
	tagLockMemory     = 0x0003000d
	tagUnlockMemory   = 0x0003000e
	tagReleaseMemory  = 0x0003000f
)

// Allocation flags for AllocateMemory.
const (
	FlagDiscardable   = 1 << 0 // can be resized to 0 at any time
	FlagDirect        = 1 << 2 // uncached, in the direct 0xC alias
	FlagCoherent      = 1 << 3 // non-allocating, in the coherent 0x8 alias
	FlagZero          = 1 << 4 // initialise to zero
	FlagNoInit        = 1 << 5 // don't initialise
	FlagHintPermalock = 1 << 6 // likely to be locked for long periods
)

// Protocol errors are distinct from I/O errors: the ioctl itself succeeded
// but the firmware rejected or mangled the exchange.
type ProtocolError string

func (e ProtocolError) Error() string { return "mbox: " + string(e) }

// Mailbox is an open property channel.  A single Mailbox serves the whole
// process; calls are synchronous and must be serialized by the caller.
type Mailbox struct {
	f *os.File
}

// Open opens the firmware property channel.
func Open() (*Mailbox, error) {
	f, err := os.OpenFile(devVcio, os.O_RDWR, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%v (run as root)", err)
		}
		return nil, err
	}
	return &Mailbox{f: f}, nil
}

// Close closes the property channel.
func (m *Mailbox) Close() error { return m.f.Close() }

// request builds a single-tag property request.  The value buffer is sized
// to hold the larger of the request values and the expected response words.
func request(tag uint32, values []uint32, respWords int) []uint32 {
	n := len(values)
	if respWords > n {
		n = respWords
	}
	buf := make([]uint32, 6+n)
	buf[0] = uint32(len(buf) * 4) // total size in bytes
	buf[1] = codeRequest
	buf[2] = tag
	buf[3] = uint32(n * 4) // value buffer size in bytes
	buf[4] = 0             // firmware replaces this with size | tagResponse
	copy(buf[5:], values)
	buf[5+n] = tagEnd
	return buf
}

// response validates a completed exchange and returns the tag's value words.
func response(buf []uint32, tag uint32, respWords int) ([]uint32, error) {
	switch buf[1] {
	case codeResponse:
	case codeParseError:
		return nil, ProtocolError("firmware could not parse request")
	default:
		return nil, ProtocolError(fmt.Sprintf("unexpected response code %#08x", buf[1]))
	}
	if buf[2] != tag {
		return nil, ProtocolError(fmt.Sprintf("response tag %#08x, requested %#08x", buf[2], tag))
	}
	if buf[4]&tagResponse == 0 {
		return nil, ProtocolError(fmt.Sprintf("tag %#08x not filled by firmware", tag))
	}
	if n := int(buf[4]&^tagResponse) / 4; n < respWords {
		return nil, ProtocolError(fmt.Sprintf("tag %#08x response too short: %d words", tag, n))
	}
	return buf[5 : 5+respWords], nil
}

func (m *Mailbox) call(tag uint32, values []uint32, respWords int) ([]uint32, error) {
	buf := request(tag, values, respWords)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, m.f.Fd(),
		uintptr(mboxPropertyIoctl), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return nil, fmt.Errorf("%s: ioctl: %v", devVcio, errno)
	}
	return response(buf, tag, respWords)
}

// AllocateMemory asks the firmware for size bytes of contiguous GPU memory
// with the given alignment and placement flags.  The returned handle is not
// usable for DMA until locked.  Allocated memory survives process exit;
// every handle must be explicitly released.
func (m *Mailbox) AllocateMemory(size, align int, flags uint32) (handle uint32, err error) {
	r, err := m.call(tagAllocateMemory, []uint32{uint32(size), uint32(align), flags}, 1)
	if err != nil {
		return 0, err
	}
	if r[0] == 0 {
		return 0, ProtocolError(fmt.Sprintf("allocate of %d bytes failed", size))
	}
	return r[0], nil
}

// LockMemory pins a handle in place and returns the bus address of its
// memory.
func (m *Mailbox) LockMemory(handle uint32) (busAddr uint32, err error) {
	r, err := m.call(tagLockMemory, []uint32{handle}, 1)
	if err != nil {
		return 0, err
	}
	if r[0] == 0 {
		return 0, ProtocolError(fmt.Sprintf("lock of handle %#x failed", handle))
	}
	return r[0], nil
}

// UnlockMemory releases the pin on a handle.  Its bus address becomes
// invalid.
func (m *Mailbox) UnlockMemory(handle uint32) error {
	r, err := m.call(tagUnlockMemory, []uint32{handle}, 1)
	if err != nil {
		return err
	}
	if r[0] != 0 {
		return ProtocolError(fmt.Sprintf("unlock of handle %#x failed", handle))
	}
	return nil
}

// ReleaseMemory returns a handle's memory to the firmware.
func (m *Mailbox) ReleaseMemory(handle uint32) error {
	r, err := m.call(tagReleaseMemory, []uint32{handle}, 1)
	if err != nil {
		return err
	}
	if r[0] != 0 {
		return ProtocolError(fmt.Sprintf("release of handle %#x failed", handle))
	}
	return nil
}
