// Copyright © 2016-2018 the SignalBox authors. All rights reserved.
// Use of this source code is governed by a BSD-style license described in the
// LICENSE file.

package hw

import (
	"fmt"
	"sync/atomic"
)

// U32 is a 32 bit memory mapped register.  Loads and stores go through
// sync/atomic so the compiler can neither elide nor reorder them.
type U32 uint32

func (r *U32) Get() uint32  { return atomic.LoadUint32((*uint32)(r)) }
func (r *U32) Set(v uint32) { atomic.StoreUint32((*uint32)(r), v) }

// SetBits sets the given bits, leaving the rest of the register unchanged.
func (r *U32) SetBits(bits uint32) { r.Set(r.Get() | bits) }

// ClearBits clears the given bits, leaving the rest of the register
// unchanged.
func (r *U32) ClearBits(bits uint32) { r.Set(r.Get() &^ bits) }

// Field extracts the width-bit field at the given bit offset of w.
func Field(w uint32, shift, width uint) uint32 {
	return (w >> shift) & (1<<width - 1)
}

// WithField returns w with the width-bit field at the given bit offset
// replaced by v and every other bit unchanged.  Panics if v does not fit in
// width bits; the hardware would silently truncate it.
func WithField(w uint32, shift, width uint, v uint32) uint32 {
	if v >= 1<<width {
		panic(fmt.Errorf("hw: value 0x%x exceeds %d bit field", v, width))
	}
	return w&^((1<<width-1)<<shift) | v<<shift
}
