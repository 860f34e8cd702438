// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bits implements the compressed-RLE bitset that backs masks:
// Bits is a fixed-size set of indices in [0, size), stored as a
// RoaringBitmap/v2 bitmap so that union/intersection/difference and
// rank/select queries are backed by a real compressed set representation
// rather than a hand-rolled run-length encoder.
package bits

import (
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"code.hybscloud.com/vexec/internal/xxhash"
)

// Bits is a fixed-size (logical length size), compressed set of indices.
// The zero value is the empty set of size 0.
type Bits struct {
	size uint64
	bm   *roaring.Bitmap // nil means "no bits set"; lazily allocated
}

// New returns a Bits of the given logical size with no bits set.
//
// size is capped at math.MaxUint32 because the underlying roaring bitmap
// addresses uint32 elements; larger sizes are a fatal usage error.
func New(size uint64) Bits {
	checkSize(size)
	return Bits{size: size}
}

// AllSet returns a Bits of the given size with every bit set.
func AllSet(size uint64) Bits {
	checkSize(size)
	if size == 0 {
		return Bits{}
	}
	bm := roaring.New()
	bm.AddRange(0, size)
	return Bits{size: size, bm: bm}
}

// FromIndices returns a Bits of the given size with the listed indices
// set. Each index must be < size.
func FromIndices(size uint64, indices ...uint64) Bits {
	checkSize(size)
	if len(indices) == 0 {
		return Bits{size: size}
	}
	bm := roaring.New()
	for _, i := range indices {
		if i >= size {
			panic(fmt.Sprintf("bits: index %d out of range for size %d", i, size))
		}
		bm.Add(uint32(i))
	}
	return Bits{size: size, bm: bm}
}

func checkSize(size uint64) {
	if size > math.MaxUint32 {
		panic(fmt.Sprintf("bits: size %d exceeds maximum addressable size %d", size, uint64(math.MaxUint32)))
	}
}

// Size returns the logical length of the set.
func (b Bits) Size() uint64 { return b.size }

// Popcount returns the number of set bits.
func (b Bits) Popcount() uint64 {
	if b.bm == nil {
		return 0
	}
	return b.bm.GetCardinality()
}

// IsAllSet reports whether every bit in [0, size) is set.
func (b Bits) IsAllSet() bool {
	return b.size > 0 && b.Popcount() == b.size
}

// IsAllUnset reports whether no bit is set.
func (b Bits) IsAllUnset() bool {
	return b.bm == nil || b.bm.IsEmpty()
}

// IsAnySet reports whether at least one bit is set.
func (b Bits) IsAnySet() bool {
	return !b.IsAllUnset()
}

// IsSet reports whether bit i is set. i must be < size.
func (b Bits) IsSet(i uint64) bool {
	if b.bm == nil {
		return false
	}
	return b.bm.Contains(uint32(i))
}

// FirstSet returns the index of the lowest set bit, or 0 if none are set.
func (b Bits) FirstSet() uint64 {
	if b.IsAllUnset() {
		return 0
	}
	return uint64(b.bm.Minimum())
}

// LastSet returns the index of the highest set bit, or 0 if none are set.
func (b Bits) LastSet() uint64 {
	if b.IsAllUnset() {
		return 0
	}
	return uint64(b.bm.Maximum())
}

// FindNthSet returns the index of the n-th set bit (0-based, ascending)
// and true, or (0, false) if there are fewer than n+1 set bits.
func (b Bits) FindNthSet(n uint64) (uint64, bool) {
	if b.bm == nil || n >= b.bm.GetCardinality() {
		return 0, false
	}
	v, err := b.bm.Select(uint32(n))
	if err != nil {
		return 0, false
	}
	return uint64(v), true
}

// Contiguous reports whether the set bits (if any) form a single
// unbroken run.
func (b Bits) Contiguous() bool {
	n := b.Popcount()
	if n == 0 {
		return true
	}
	return b.LastSet()-b.FirstSet()+1 == n
}

// Set returns a copy of b with index i set. i must be < size.
func (b Bits) Set(i uint64) Bits {
	if i >= b.size {
		panic(fmt.Sprintf("bits: index %d out of range for size %d", i, b.size))
	}
	bm := b.cloneOrNew()
	bm.Add(uint32(i))
	return Bits{size: b.size, bm: bm}
}

// Clear returns a copy of b with index i cleared.
func (b Bits) Clear(i uint64) Bits {
	if b.bm == nil {
		return b
	}
	bm := b.bm.Clone()
	bm.Remove(uint32(i))
	return Bits{size: b.size, bm: normalize(bm)}
}

func (b Bits) cloneOrNew() *roaring.Bitmap {
	if b.bm != nil {
		return b.bm.Clone()
	}
	return roaring.New()
}

func normalize(bm *roaring.Bitmap) *roaring.Bitmap {
	if bm == nil || bm.IsEmpty() {
		return nil
	}
	return bm
}

func requireSameSize(a, b Bits, op string) {
	if a.size != b.size {
		panic(fmt.Sprintf("bits: %s size mismatch: %d vs %d", op, a.size, b.size))
	}
}

// Union returns the bitwise OR of a and b. a and b must have equal size.
func (a Bits) Union(b Bits) Bits {
	requireSameSize(a, b, "Union")
	if a.bm == nil {
		return b
	}
	if b.bm == nil {
		return a
	}
	return Bits{size: a.size, bm: normalize(roaring.Or(a.bm, b.bm))}
}

// Intersect returns the bitwise AND of a and b. a and b must have equal size.
func (a Bits) Intersect(b Bits) Bits {
	requireSameSize(a, b, "Intersect")
	if a.bm == nil || b.bm == nil {
		return Bits{size: a.size}
	}
	return Bits{size: a.size, bm: normalize(roaring.And(a.bm, b.bm))}
}

// Difference returns a with every bit in b cleared (asymmetric
// difference, "a - b"). a and b must have equal size.
func (a Bits) Difference(b Bits) Bits {
	requireSameSize(a, b, "Difference")
	if a.bm == nil || b.bm == nil {
		return a
	}
	return Bits{size: a.size, bm: normalize(roaring.AndNot(a.bm, b.bm))}
}

// Xor returns the symmetric difference of a and b. a and b must have
// equal size.
func (a Bits) Xor(b Bits) Bits {
	requireSameSize(a, b, "Xor")
	if a.bm == nil {
		return b
	}
	if b.bm == nil {
		return a
	}
	return Bits{size: a.size, bm: normalize(roaring.Xor(a.bm, b.bm))}
}

// Complement returns the bitwise NOT of b within [0, size).
func (b Bits) Complement() Bits {
	if b.size == 0 {
		return b
	}
	full := roaring.New()
	full.AddRange(0, b.size)
	if b.bm == nil {
		return Bits{size: b.size, bm: normalize(full)}
	}
	return Bits{size: b.size, bm: normalize(roaring.AndNot(full, b.bm))}
}

// HasNonEmptyIntersection reports whether a and b share any set bit.
func (a Bits) HasNonEmptyIntersection(b Bits) bool {
	requireSameSize(a, b, "HasNonEmptyIntersection")
	if a.bm == nil || b.bm == nil {
		return false
	}
	return a.bm.Intersects(b.bm)
}

// HasNonEmptyDifference reports whether a has any bit set that b does not
// (i.e. a is not a subset of b).
func (a Bits) HasNonEmptyDifference(b Bits) bool {
	requireSameSize(a, b, "HasNonEmptyDifference")
	if a.bm == nil {
		return false
	}
	if b.bm == nil {
		return a.IsAnySet()
	}
	return !roaring.AndNot(a.bm, b.bm).IsEmpty()
}

// Equal reports whether a and b denote the same size and the same set of
// indices.
func (a Bits) Equal(b Bits) bool {
	if a.size != b.size {
		return false
	}
	if a.bm == nil || b.bm == nil {
		return a.bm == nil && b.bm == nil
	}
	return a.bm.Equals(b.bm)
}

// Hash returns a precomputed-style fast hash of the set. Two equal Bits
// (by Equal) always hash equally; the converse need not hold.
func (b Bits) Hash() uint64 {
	h := xxhash.New()
	var sizeBuf [8]byte
	putUint64(sizeBuf[:], b.size)
	h.Write(sizeBuf[:])
	if b.bm != nil {
		enc, err := b.bm.ToBytes()
		if err == nil {
			h.Write(enc)
		}
	}
	return h.Sum64()
}

func putUint64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// SetIndexIterator iterates the set bits of a Bits in ascending order.
// It is the "all-set view" from spec §4.2.
type SetIndexIterator struct {
	it roaring.IntPeekable
}

// AllSetView returns an iterator over the ascending set indices.
func (b Bits) AllSetView() *SetIndexIterator {
	if b.bm == nil {
		return &SetIndexIterator{}
	}
	return &SetIndexIterator{it: b.bm.Iterator()}
}

// HasNext reports whether another set index remains.
func (it *SetIndexIterator) HasNext() bool {
	return it.it != nil && it.it.HasNext()
}

// Next returns the next ascending set index.
func (it *SetIndexIterator) Next() uint64 {
	return uint64(it.it.Next())
}

// Platform is one run of the RLE decomposition of a Bits: a contiguous
// span [First, First+Length) that is uniformly set or unset.
type Platform struct {
	First  uint64
	Length uint64
	IsSet  bool
}

// PlatformsView returns the alternating zero/one runs of b, ascending by
// index. An empty Bits (size 0) yields no platforms.
func (b Bits) PlatformsView() []Platform {
	if b.size == 0 {
		return nil
	}
	if b.bm == nil {
		return []Platform{{First: 0, Length: b.size, IsSet: false}}
	}

	setIdx := b.bm.ToArray()
	if len(setIdx) == 0 {
		return []Platform{{First: 0, Length: b.size, IsSet: false}}
	}
	sort.Slice(setIdx, func(i, j int) bool { return setIdx[i] < setIdx[j] })

	var platforms []Platform
	cursor := uint64(0)
	i := 0
	for cursor < b.size {
		if i < len(setIdx) && uint64(setIdx[i]) == cursor {
			start := cursor
			for i < len(setIdx) && uint64(setIdx[i]) == cursor {
				cursor++
				i++
			}
			platforms = append(platforms, Platform{First: start, Length: cursor - start, IsSet: true})
		} else {
			start := cursor
			for cursor < b.size && (i >= len(setIdx) || uint64(setIdx[i]) != cursor) {
				cursor++
			}
			platforms = append(platforms, Platform{First: start, Length: cursor - start, IsSet: false})
		}
	}
	return platforms
}

// String renders a compact debug form, e.g. "Bits(size=10){2,3,7}".
func (b Bits) String() string {
	idx := b.AllSetView()
	s := fmt.Sprintf("Bits(size=%d){", b.size)
	first := true
	for idx.HasNext() {
		if !first {
			s += ","
		}
		first = false
		s += fmt.Sprintf("%d", idx.Next())
	}
	return s + "}"
}
