// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vector

import "fmt"

// Range is one logical grouping of values inside a BoxedContainer.
type Range struct {
	Start uint64
	End   uint64 // exclusive
}

// boxedTagger is implemented by every BoxedContainer so that NewBoxed and
// NewBoxedContainer can reject T = BoxedContainer[U] at construction
// time: per spec §3 "Holding a boxed value of T never nests."
type boxedTagger interface {
	isBoxedContainer()
}

// BoxedContainer groups values of T into Ranges, enabling a single Boxed
// Vector element to carry a vectorized run of data without encoding
// length in the graph's connection topology (spec §3 Vector/Boxed).
type BoxedContainer[T any] struct {
	data   []T
	ranges []Range
}

func (*BoxedContainer[T]) isBoxedContainer() {}

func isBoxedType[T any]() bool {
	// isBoxedContainer has a pointer receiver: asserting the zero value of
	// T itself only catches T = *BoxedContainer[U] (a nil pointer still
	// satisfies a pointer-receiver interface), while asserting a pointer
	// to T catches the bare value form T = BoxedContainer[U]. Check both
	// so neither form of nesting slips through.
	var zero T
	if _, ok := any(zero).(boxedTagger); ok {
		return true
	}
	_, ok := any(&zero).(boxedTagger)
	return ok
}

// NewBoxedContainer creates an empty box. It panics if T is itself a
// BoxedContainer, which the static data model forbids.
func NewBoxedContainer[T any]() *BoxedContainer[T] {
	if isBoxedType[T]() {
		panic("vector: BoxedContainer cannot nest a BoxedContainer")
	}
	return &BoxedContainer[T]{}
}

// Append adds values as a new trailing Range and returns that Range.
func (b *BoxedContainer[T]) Append(values []T) Range {
	start := uint64(len(b.data))
	b.data = append(b.data, values...)
	r := Range{Start: start, End: start + uint64(len(values))}
	b.ranges = append(b.ranges, r)
	return r
}

// Len returns the total number of values across all ranges.
func (b *BoxedContainer[T]) Len() uint64 { return uint64(len(b.data)) }

// RangeCount returns the number of range groupings in the box.
func (b *BoxedContainer[T]) RangeCount() int { return len(b.ranges) }

// RangeAt returns the i-th range grouping and a view over its values.
func (b *BoxedContainer[T]) RangeAt(i int) (Range, []T) {
	r := b.ranges[i]
	return r, b.data[r.Start:r.End]
}

// All returns the flattened backing data of the box.
func (b *BoxedContainer[T]) All() []T { return b.data }

func (b *BoxedContainer[T]) clone() *BoxedContainer[T] {
	out := &BoxedContainer[T]{
		data:   append([]T(nil), b.data...),
		ranges: append([]Range(nil), b.ranges...),
	}
	return out
}

func (b *BoxedContainer[T]) String() string {
	return fmt.Sprintf("BoxedContainer{ranges=%d, values=%d}", len(b.ranges), len(b.data))
}
