// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mask implements the value-semantic, flyweighted Mask handle
// that denotes which elements of a connection are live, and the striped
// registry that interns its backing Bits.
package mask

import (
	"sync"

	"code.hybscloud.com/vexec/bits"
)

// Mask is a value-semantic handle onto an interned bits.Bits. The zero
// value is the null mask, denoting logical size 0. Two masks compare
// equal iff they reference the same interned entry (pointer identity).
type Mask struct {
	e *entry
}

// New interns b in the default registry and returns a Mask for it.
func New(b bits.Bits) Mask {
	return DefaultRegistry().Intern(b)
}

// OfSize returns the null-bits mask of the given size (no bits set).
func OfSize(size uint64) Mask {
	if size == 0 {
		return Mask{}
	}
	return New(bits.New(size))
}

var (
	allOnes1     Mask
	allOnes1Once sync.Once
)

// AllOnesOfSize1 returns the singleton all-ones mask of size 1. It is a
// constructor fast path that never touches the registry (spec §4.2).
func AllOnesOfSize1() Mask {
	allOnes1Once.Do(func() {
		b := bits.AllSet(1)
		allOnes1 = Mask{e: &entry{val: b, hash: b.Hash(), immortal: true}}
	})
	return allOnes1
}

// IsNull reports whether m is the null mask (size 0).
func (m Mask) IsNull() bool { return m.e == nil }

// Size returns the logical size of the mask, or 0 for the null mask.
func (m Mask) Size() uint64 {
	if m.e == nil {
		return 0
	}
	return m.e.val.Size()
}

// Bits returns the interned Bits backing m.
func (m Mask) Bits() bits.Bits {
	if m.e == nil {
		return bits.Bits{}
	}
	return m.e.val
}

// Equal reports whether m and n reference the same interned entry.
// Per spec §3 this is pointer-identity equality, not value equality of
// the underlying bits.
func (m Mask) Equal(n Mask) bool {
	return m.e == n.e
}

// Retain returns a second owning reference to the same entry, bumping
// its refcount (a no-op for immortal and null masks). Use Retain when a
// Mask is stored somewhere with a lifetime independent of the copy it
// came from; use Release to give up that reference when done.
func (m Mask) Retain() Mask {
	if m.e == nil || m.e.immortal {
		return m
	}
	m.e.refCount.AddAcqRel(1)
	return m
}

// Release gives up one owning reference to m's entry. It is a no-op for
// immortal and null masks. Calling Release more times than a Mask was
// retained is undefined.
func (m Mask) Release() {
	DefaultRegistry().release(m.e)
}

// IsAllOnes reports whether every bit is set (a null mask is trivially
// all-ones of size 0).
func (m Mask) IsAllOnes() bool {
	if m.e == nil {
		return true
	}
	return m.e.val.IsAllSet()
}

// IsAllZeros reports whether no bit is set.
func (m Mask) IsAllZeros() bool {
	if m.e == nil {
		return true
	}
	return m.e.val.IsAllUnset()
}

// IsAnySet reports whether at least one bit is set.
func (m Mask) IsAnySet() bool {
	return !m.IsAllZeros()
}

// Popcount returns the number of set bits.
func (m Mask) Popcount() uint64 {
	if m.e == nil {
		return 0
	}
	return m.e.val.Popcount()
}

// IsSet reports whether bit i is set.
func (m Mask) IsSet(i uint64) bool {
	if m.e == nil {
		return false
	}
	return m.e.val.IsSet(i)
}

// And returns the interned mask for the bitwise intersection of m and n.
// Both must have equal size (or be null).
func (m Mask) And(n Mask) Mask {
	if m.e == nil || n.e == nil {
		return Mask{}
	}
	return New(m.e.val.Intersect(n.e.val))
}

// Or returns the interned mask for the bitwise union of m and n.
func (m Mask) Or(n Mask) Mask {
	if m.e == nil {
		return n
	}
	if n.e == nil {
		return m
	}
	return New(m.e.val.Union(n.e.val))
}

// Xor returns the interned mask for the symmetric difference of m and n.
func (m Mask) Xor(n Mask) Mask {
	if m.e == nil {
		return n
	}
	if n.e == nil {
		return m
	}
	return New(m.e.val.Xor(n.e.val))
}

// Sub returns the interned mask for m with every bit in n cleared.
func (m Mask) Sub(n Mask) Mask {
	if m.e == nil || n.e == nil {
		return m
	}
	return New(m.e.val.Difference(n.e.val))
}

// Not returns the interned mask for the complement of m within its size.
func (m Mask) Not() Mask {
	if m.e == nil {
		return Mask{}
	}
	return New(m.e.val.Complement())
}

// Overlaps reports whether m and n have any set bit in common.
func (m Mask) Overlaps(n Mask) bool {
	if m.Equal(n) {
		return m.IsAnySet()
	}
	if m.e == nil || n.e == nil {
		return false
	}
	return m.e.val.HasNonEmptyIntersection(n.e.val)
}

// Contains reports whether n is a subset of (or equal to) m.
func (m Mask) Contains(n Mask) bool {
	if m.Equal(n) {
		return true
	}
	if n.e == nil {
		return true
	}
	if m.e == nil {
		return false
	}
	return !n.e.val.HasNonEmptyDifference(m.e.val)
}

// String renders a compact debug form.
func (m Mask) String() string {
	if m.e == nil {
		return "Mask(null)"
	}
	return "Mask" + m.e.val.String()
}
