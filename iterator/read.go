// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package iterator implements the non-copyable, context-bound view
// objects computations use to read and write values without touching the
// underlying Vector/Bits representation directly: ReadIterator walks the
// logical union of an input's connections, ReadWriteIterator yields
// mutable references over an output's affects-mask subset, and
// WeightedIterator/IndexedWeightsOperand layer sparse per-index weights
// on top.
package iterator

import (
	"code.hybscloud.com/vexec/bits"
	"code.hybscloud.com/vexec/vector"
)

// Connection is one source feeding a ReadIterator: a vector together
// with the mask of elements actually requested from it.
type Connection[T any] struct {
	Vec  *vector.Vector[T]
	Mask bits.Bits
}

// ValueIterator is the shape shared by ReadIterator, ReadWriteIterator,
// and WeightedIterator, letting WeightedIterator decorate any of them.
type ValueIterator[T any] interface {
	IsAtEnd() bool
	Advance()
	AdvanceToEnd()
	Index() uint64
	Value() T
}

// ReadIterator iterates the logical union of all of an input's
// connections, in connection order: every element at a set bit of each
// connection's mask, across connections.
type ReadIterator[T any] struct {
	conns   []Connection[T]
	connIdx int
	it      *bits.SetIndexIterator
	cur     uint64
	atEnd   bool
}

// NewReadIterator creates an iterator over conns, positioned at the
// first available element (or at end, if no connection has any set
// bits).
func NewReadIterator[T any](conns []Connection[T]) *ReadIterator[T] {
	r := &ReadIterator[T]{conns: conns}
	r.seekFirst()
	return r
}

func (r *ReadIterator[T]) seekFirst() {
	r.connIdx = 0
	r.it = nil
	r.advanceToNextSetBit()
}

// advanceToNextSetBit finds the next set bit starting from the current
// connection's iterator, opening subsequent connections' iterators as
// needed. It sets atEnd when no connection has any remaining bits.
func (r *ReadIterator[T]) advanceToNextSetBit() {
	for {
		if r.it == nil {
			if r.connIdx >= len(r.conns) {
				r.atEnd = true
				return
			}
			r.it = r.conns[r.connIdx].Mask.AllSetView()
		}
		if r.it.HasNext() {
			r.cur = r.it.Next()
			r.atEnd = false
			return
		}
		r.it = nil
		r.connIdx++
	}
}

// IsAtEnd reports whether iteration has been exhausted.
func (r *ReadIterator[T]) IsAtEnd() bool { return r.atEnd }

// Advance moves to the next element, across connection boundaries.
func (r *ReadIterator[T]) Advance() {
	if r.atEnd {
		return
	}
	r.advanceToNextSetBit()
}

// AdvanceToEnd jumps straight to the end.
func (r *ReadIterator[T]) AdvanceToEnd() {
	r.connIdx = len(r.conns)
	r.it = nil
	r.atEnd = true
}

// Index returns the current element's logical index within its
// connection's vector.
func (r *ReadIterator[T]) Index() uint64 { return r.cur }

// ConnectionIndex returns which connection the iterator is currently
// reading from.
func (r *ReadIterator[T]) ConnectionIndex() int { return r.connIdx }

// Value returns the current element's value.
func (r *ReadIterator[T]) Value() T {
	val, _ := r.conns[r.connIdx].Vec.ReadAt(r.cur)
	return val
}

// ComputeSize returns the total element count across all connections
// (the sum of each connection's mask popcount).
func (r *ReadIterator[T]) ComputeSize() uint64 {
	var total uint64
	for _, c := range r.conns {
		total += c.Mask.Popcount()
	}
	return total
}
