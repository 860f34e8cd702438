// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iterator

import (
	"code.hybscloud.com/vexec/bits"
	"code.hybscloud.com/vexec/vector"
)

// ReadWriteIterator yields sequential mutable access to a receiver
// output's write buffer over its affects-mask subset. The node callback
// may read the prior value at each index (for read/write outputs that
// accumulate) before writing a new one.
type ReadWriteIterator[T any] struct {
	vec   *vector.Vector[T]
	it    *bits.SetIndexIterator
	cur   uint64
	atEnd bool
}

// NewReadWriteIterator creates an iterator over vec's affects subset,
// positioned at the first set index (or at end, if affects has none).
func NewReadWriteIterator[T any](vec *vector.Vector[T], affects bits.Bits) *ReadWriteIterator[T] {
	w := &ReadWriteIterator[T]{vec: vec, it: affects.AllSetView()}
	w.Advance()
	return w
}

// IsAtEnd reports whether iteration has been exhausted.
func (w *ReadWriteIterator[T]) IsAtEnd() bool { return w.atEnd }

// Advance moves to the next affected index.
func (w *ReadWriteIterator[T]) Advance() {
	if w.it.HasNext() {
		w.cur = w.it.Next()
		w.atEnd = false
		return
	}
	w.atEnd = true
}

// AdvanceToEnd jumps straight to the end.
func (w *ReadWriteIterator[T]) AdvanceToEnd() {
	for w.it.HasNext() {
		w.it.Next()
	}
	w.atEnd = true
}

// Index returns the current logical index.
func (w *ReadWriteIterator[T]) Index() uint64 { return w.cur }

// Value reads the current element from the write buffer.
func (w *ReadWriteIterator[T]) Value() T {
	val, _ := w.vec.ReadAt(w.cur)
	return val
}

// SetValue writes value at the current index.
func (w *ReadWriteIterator[T]) SetValue(value T) {
	w.vec.WriteAt(w.cur, value)
}
