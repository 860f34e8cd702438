// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package vector implements the polymorphic, per-type value container
// that carries data along a connection: Vector[T], with five storage
// layouts (Empty, Single, Contiguous, Compressed, Boxed) selected
// dynamically, plus a Shared wrapper for zero-copy sharing with
// copy-on-write detachment.
//
// Cross-vector and accessor operations are statically typed through the
// T type parameter; the AnyVector interface is the type-erasure view a
// caller can hold without knowing T, mirroring the original's type-handle
// and dispatch-vtable erasure. No other package of this module uses it.
package vector

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/vexec/bits"
	"code.hybscloud.com/vexec/diagnostics"
	"reflect"
)

// Layout identifies which of the five storage representations a Vector
// currently uses.
type Layout uint8

const (
	LayoutEmpty Layout = iota
	LayoutSingle
	LayoutContiguous
	LayoutCompressed
	LayoutBoxed
)

func (l Layout) String() string {
	switch l {
	case LayoutEmpty:
		return "Empty"
	case LayoutSingle:
		return "Single"
	case LayoutContiguous:
		return "Contiguous"
	case LayoutCompressed:
		return "Compressed"
	case LayoutBoxed:
		return "Boxed"
	default:
		return "Unknown"
	}
}

// shareSizeThreshold is the minimum size at which any non-Single layout
// is sharable (spec §4.1 "Sharing").
const shareSizeThreshold = 5000

// AnyVector is the type-erased view of a Vector[T], for holders that do
// not know T statically.
type AnyVector interface {
	Size() uint64
	ElemType() reflect.Type
	Layout() Layout
	IsBoxed() bool
	IsShared() bool
	IsSharable() bool
}

// payload holds the data for exactly one of the five storage layouts.
type payload[T any] struct {
	layout Layout

	// Contiguous / Compressed
	first uint64
	last  uint64 // valid when numStored() > 0
	data  []T    // Contiguous: len == last-first+1. Compressed: packed stored values.
	blockMap *blockMapping

	// Single
	single T

	// Boxed
	boxed *BoxedContainer[T]
}

func (p *payload[T]) numStored() uint64 {
	switch p.layout {
	case LayoutEmpty:
		return 0
	case LayoutSingle, LayoutBoxed:
		return 1
	case LayoutContiguous:
		return uint64(len(p.data))
	case LayoutCompressed:
		if p.blockMap == nil {
			return 0
		}
		return p.blockMap.numStored()
	default:
		return 0
	}
}

func clonePayload[T any](p payload[T]) payload[T] {
	out := p
	if p.data != nil {
		out.data = append([]T(nil), p.data...)
	}
	if p.boxed != nil {
		out.boxed = p.boxed.clone()
	}
	return out
}

// sharedState is the refcounted wrapper a Vector's Share() installs.
type sharedState[T any] struct {
	refCount atomix.Int64
	payload  payload[T]
}

// Vector is the polymorphic, per-type container described by spec §3/§4.1.
type Vector[T any] struct {
	size   uint64
	p      payload[T]
	shared *sharedState[T]
}

func (v *Vector[T]) current() *payload[T] {
	if v.shared != nil {
		return &v.shared.payload
	}
	return &v.p
}

// NewEmpty creates a Vector of the given logical size with no stored
// elements.
func NewEmpty[T any](size uint64) *Vector[T] {
	return &Vector[T]{size: size, p: payload[T]{layout: LayoutEmpty}}
}

// NewSingle creates a Vector of the given logical size whose single
// stored value is returned for every logical index (a constant/splat
// vector).
func NewSingle[T any](size uint64, v T) *Vector[T] {
	return &Vector[T]{size: size, p: payload[T]{layout: LayoutSingle, single: v}}
}

// NewDense creates a Vector of the given size, fully covered by data
// (len(data) must equal size).
func NewDense[T any](size uint64, data []T) *Vector[T] {
	if uint64(len(data)) != size {
		diagnostics.FatalError("vector.NewDense", "data length %d does not match size %d", len(data), size)
	}
	return NewSparse[T](size, 0, data)
}

// NewSparse creates a Vector of the given logical size whose stored
// elements are the closed range [first, first+len(data)-1].
func NewSparse[T any](size uint64, first uint64, data []T) *Vector[T] {
	if len(data) == 0 {
		return NewEmpty[T](size)
	}
	last := first + uint64(len(data)) - 1
	if last >= size {
		diagnostics.FatalError("vector.NewSparse", "range [%d,%d] exceeds size %d", first, last, size)
	}
	cp := append([]T(nil), data...)
	return &Vector[T]{size: size, p: payload[T]{layout: LayoutContiguous, first: first, last: last, data: cp}}
}

// NewCompressedFromBits creates a Compressed-layout Vector of the given
// mask's size, where data[i] is the value for the i-th set bit of b in
// ascending order.
func NewCompressedFromBits[T any](b bits.Bits, data []T) *Vector[T] {
	if uint64(len(data)) != b.Popcount() {
		diagnostics.FatalError("vector.NewCompressedFromBits", "data length %d does not match popcount %d", len(data), b.Popcount())
	}
	bm := newBlockMapping(b)
	cp := append([]T(nil), data...)
	return &Vector[T]{size: b.Size(), p: payload[T]{layout: LayoutCompressed, blockMap: bm, data: cp}}
}

// NewBoxed creates a Vector of logical size 1 whose element is box.
func NewBoxed[T any](box *BoxedContainer[T]) *Vector[T] {
	return &Vector[T]{size: 1, p: payload[T]{layout: LayoutBoxed, boxed: box}}
}

// Size returns the logical length.
func (v *Vector[T]) Size() uint64 { return v.size }

// ElemType returns the static element type T as a reflect.Type, the
// identity used at the type-erasure boundary.
func (v *Vector[T]) ElemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Layout returns the current storage layout.
func (v *Vector[T]) Layout() Layout { return v.current().layout }

// IsBoxed reports whether this vector's layout is Boxed.
func (v *Vector[T]) IsBoxed() bool { return v.current().layout == LayoutBoxed }

// IsShared reports whether the vector's storage is currently wrapped in
// a shared, refcounted source.
func (v *Vector[T]) IsShared() bool { return v.shared != nil }

// IsSharable reports whether Share() would succeed: refused for Single
// layout, and for any other layout below shareSizeThreshold (spec §4.1).
func (v *Vector[T]) IsSharable() bool {
	p := v.current()
	if p.layout == LayoutSingle {
		return false
	}
	return v.size >= shareSizeThreshold
}

// Share wraps the vector's current storage in a refcounted source,
// enabling zero-copy sharing via Go value copies of the Vector struct
// made by the caller. Returns false (no-op) if IsSharable() is false.
// Calling Share on an already-shared vector is idempotent.
func (v *Vector[T]) Share() bool {
	if v.shared != nil {
		return true
	}
	if !v.IsSharable() {
		return false
	}
	v.shared = &sharedState[T]{payload: v.p}
	v.shared.refCount.StoreRelaxed(1)
	v.p = payload[T]{}
	return true
}

// ShareWith returns a new Vector sharing the same backing storage as v,
// incrementing the shared refcount. v must already be shared (call
// Share() first); ShareWith panics otherwise.
func (v *Vector[T]) ShareWith() *Vector[T] {
	if v.shared == nil {
		diagnostics.FatalError("vector.ShareWith", "vector is not shared")
	}
	v.shared.refCount.AddAcqRel(1)
	return &Vector[T]{size: v.size, shared: v.shared}
}

// detach ensures the vector owns its storage uniquely, performing a
// copy-on-write materialization unless the shared source observes a
// unique reference, in which case ownership transfers without copying
// (spec §3 "Lifecycle", §4.1 "Sharing").
func (v *Vector[T]) detach() {
	if v.shared == nil {
		return
	}
	if v.shared.refCount.LoadAcquire() == 1 {
		v.p = v.shared.payload
		v.shared = nil
		return
	}
	v.p = clonePayload(v.shared.payload)
	v.shared.refCount.AddAcqRel(-1)
	v.shared = nil
}

// Resize changes the logical size of the vector. If the current layout
// can no longer represent data outside the new size it is reset to
// Empty; otherwise stored data within the new bounds is preserved.
func (v *Vector[T]) Resize(n uint64) {
	v.detach()
	p := &v.p
	switch p.layout {
	case LayoutContiguous:
		if p.last >= n {
			*p = payload[T]{layout: LayoutEmpty}
		}
	case LayoutCompressed:
		if p.blockMap != nil && len(p.blockMap.blocks) > 0 && p.blockMap.blockLastIndex(len(p.blockMap.blocks)-1) >= n {
			*p = payload[T]{layout: LayoutEmpty}
		}
	case LayoutBoxed:
		diagnostics.FatalError("vector.Resize", "cannot resize a boxed vector (logical size is always 1)")
	}
	v.size = n
}

// ResizeWithBits resizes the vector to b.Size() and re-lays-out its
// storage for b's set bits: Empty when none is set, otherwise
// Contiguous-sparse or Compressed per the compression heuristic
// (spec §4.1).
func (v *Vector[T]) ResizeWithBits(b bits.Bits) {
	v.detach()
	v.size = b.Size()
	if !b.IsAnySet() {
		v.p = payload[T]{layout: LayoutEmpty}
		return
	}
	if shouldCompress(b) {
		v.p = payload[T]{layout: LayoutCompressed, blockMap: newBlockMapping(b), data: make([]T, b.Popcount())}
		return
	}
	first, last := b.FirstSet(), b.LastSet()
	v.p = payload[T]{layout: LayoutContiguous, first: first, last: last, data: make([]T, last-first+1)}
}

// Set replaces the vector's storage with a single value, splatted across
// every logical index (Single layout).
func (v *Vector[T]) Set(value T) {
	v.detach()
	v.p = payload[T]{layout: LayoutSingle, single: value}
}

// SetBoxed replaces the vector's storage with box (Boxed layout, size
// forced to 1).
func (v *Vector[T]) SetBoxed(box *BoxedContainer[T]) {
	v.detach()
	v.size = 1
	v.p = payload[T]{layout: LayoutBoxed, boxed: box}
}

// ReadAt returns the value stored at logical index i and whether a value
// is actually stored there (false for Empty, for unset Compressed gaps,
// or for indices outside a Contiguous range).
func (v *Vector[T]) ReadAt(i uint64) (T, bool) {
	p := v.current()
	var zero T
	switch p.layout {
	case LayoutEmpty:
		return zero, false
	case LayoutSingle:
		return p.single, true
	case LayoutContiguous:
		if i < p.first || i > p.last {
			return zero, false
		}
		return p.data[i-p.first], true
	case LayoutCompressed:
		hint := 0
		if idx, ok := p.blockMap.FindDataIndex(i, &hint); ok {
			return p.data[idx], true
		}
		return zero, false
	case LayoutBoxed:
		return zero, false
	default:
		return zero, false
	}
}

// WriteAt sets the value at logical index i, detaching first. It is only
// meaningful for Contiguous and Compressed layouts where i is within the
// stored range/mapping; writing outside that range is a fatal error
// (spec §4.1 "Out-of-bounds element access... checked in debug").
func (v *Vector[T]) WriteAt(i uint64, value T) {
	v.detach()
	p := &v.p
	switch p.layout {
	case LayoutSingle:
		diagnostics.FatalError("vector.WriteAt", "cannot write a single logical index into a Single-layout vector; call Set to replace the splat value")
	case LayoutContiguous:
		if i < p.first || i > p.last {
			diagnostics.FatalError("vector.WriteAt", "index %d out of stored range [%d,%d]", i, p.first, p.last)
		}
		p.data[i-p.first] = value
	case LayoutCompressed:
		hint := 0
		idx, ok := p.blockMap.FindDataIndex(i, &hint)
		if !ok {
			diagnostics.FatalError("vector.WriteAt", "index %d is not stored in this compressed vector", i)
		}
		p.data[idx] = value
	default:
		diagnostics.FatalError("vector.WriteAt", "layout %s does not support indexed write", p.layout)
	}
}

// BoxedValue returns the box held by a Boxed-layout vector, or nil.
func (v *Vector[T]) BoxedValue() *BoxedContainer[T] {
	p := v.current()
	if p.layout != LayoutBoxed {
		return nil
	}
	return p.boxed
}

// Extracted is the result of ExtractAsVtArray: a (possibly zero-copy)
// view over a contiguous logical subrange.
type Extracted[T any] struct {
	Data    []T
	Foreign bool // true if Data aliases shared storage rather than being a fresh copy
}

// ExtractAsVtArray extracts length logical elements starting at offset,
// bit-exact with the source vector. Against a Shared, Contiguous vector
// this is zero-copy (Foreign=true); any other layout materializes a copy.
func (v *Vector[T]) ExtractAsVtArray(offset, length uint64) Extracted[T] {
	if offset+length > v.size {
		diagnostics.FatalError("vector.ExtractAsVtArray", "range [%d,%d) exceeds size %d", offset, offset+length, v.size)
	}
	p := v.current()
	if v.shared != nil && p.layout == LayoutContiguous && offset >= p.first && offset+length-1 <= p.last {
		start := offset - p.first
		return Extracted[T]{Data: p.data[start : start+length], Foreign: true}
	}
	out := make([]T, length)
	for i := uint64(0); i < length; i++ {
		val, _ := v.ReadAt(offset + i)
		out[i] = val
	}
	return Extracted[T]{Data: out}
}

// Copy builds a new vector of the same size and type as other, keeping
// only the elements at set bits of m. The result's layout is chosen by
// the compression heuristic (spec §4.1 "Compression heuristic").
func (v *Vector[T]) Copy(other *Vector[T], m bits.Bits) {
	if other.size != m.Size() {
		diagnostics.ReportError("vector.Copy", "size mismatch: vector=%d mask=%d", other.size, m.Size())
		return
	}
	v.detach()
	v.size = other.size

	if m.IsAllUnset() {
		v.p = payload[T]{layout: LayoutEmpty}
		return
	}
	if m.IsAllSet() {
		v.p = clonePayload(*other.current())
		return
	}

	if shouldCompress(m) {
		data := make([]T, 0, m.Popcount())
		it := m.AllSetView()
		for it.HasNext() {
			val, _ := other.ReadAt(it.Next())
			data = append(data, val)
		}
		v.p = payload[T]{layout: LayoutCompressed, blockMap: newBlockMapping(m), data: data}
		return
	}

	first, last := m.FirstSet(), m.LastSet()
	data := make([]T, last-first+1)
	it := m.AllSetView()
	for it.HasNext() {
		idx := it.Next()
		val, _ := other.ReadAt(idx)
		data[idx-first] = val
	}
	v.p = payload[T]{layout: LayoutContiguous, first: first, last: last, data: data}
}

// Merge copies elements from other at the set bits of b into the
// receiver, which must already have the same size as other and b.
// Per spec §4.1 "Merging discipline": a Compressed receiver is first
// materialized to Contiguous-sparse, then the sparse range is expanded
// to cover both the receiver's and b's range.
func (v *Vector[T]) Merge(other *Vector[T], b bits.Bits) {
	if v.size != other.size || v.size != b.Size() {
		diagnostics.ReportError("vector.Merge", "size mismatch: receiver=%d other=%d mask=%d", v.size, other.size, b.Size())
		return
	}
	if !b.IsAnySet() {
		return
	}
	v.detach()

	if v.p.layout == LayoutCompressed {
		v.materializeToSparse()
	}
	if v.p.layout == LayoutEmpty {
		first, last := b.FirstSet(), b.LastSet()
		v.p = payload[T]{layout: LayoutContiguous, first: first, last: last, data: make([]T, last-first+1)}
	} else if v.p.layout == LayoutContiguous {
		v.expandContiguous(b.FirstSet(), b.LastSet())
	} else {
		diagnostics.ReportError("vector.Merge", "cannot merge into layout %s", v.p.layout)
		return
	}

	for _, p := range b.PlatformsView() {
		if !p.IsSet {
			continue
		}
		for i := uint64(0); i < p.Length; i++ {
			idx := p.First + i
			val, _ := other.ReadAt(idx)
			v.p.data[idx-v.p.first] = val
		}
	}
}

func (v *Vector[T]) materializeToSparse() {
	p := &v.p
	if p.layout != LayoutCompressed {
		return
	}
	if len(p.blockMap.blocks) == 0 {
		*p = payload[T]{layout: LayoutEmpty}
		return
	}
	first := p.blockMap.blocks[0].logicalStart
	last := p.blockMap.blockLastIndex(len(p.blockMap.blocks) - 1)
	data := make([]T, last-first+1)
	hint := 0
	for i := first; i <= last; i++ {
		if idx, ok := p.blockMap.FindDataIndex(i, &hint); ok {
			data[i-first] = p.data[idx]
		}
	}
	*p = payload[T]{layout: LayoutContiguous, first: first, last: last, data: data}
}

func (v *Vector[T]) expandContiguous(first, last uint64) {
	p := &v.p
	newFirst := p.first
	if first < newFirst {
		newFirst = first
	}
	newLast := p.last
	if last > newLast {
		newLast = last
	}
	if newFirst == p.first && newLast == p.last {
		return
	}
	data := make([]T, newLast-newFirst+1)
	copy(data[p.first-newFirst:], p.data)
	p.first, p.last, p.data = newFirst, newLast, data
}
