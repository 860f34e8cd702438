// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iterator_test

import (
	"math"
	"testing"

	"code.hybscloud.com/vexec/bits"
	"code.hybscloud.com/vexec/iterator"
	"code.hybscloud.com/vexec/vector"
)

func TestReadIteratorAcrossConnections(t *testing.T) {
	v1 := vector.NewDense[float64](5, []float64{10, 11, 12, 13, 14})
	v2 := vector.NewDense[float64](5, []float64{20, 21, 22, 23, 24})

	conns := []iterator.Connection[float64]{
		{Vec: v1, Mask: bits.FromIndices(5, 1, 3)},
		{Vec: v2, Mask: bits.FromIndices(5, 0, 4)},
	}
	it := iterator.NewReadIterator(conns)
	if it.ComputeSize() != 4 {
		t.Fatalf("ComputeSize() = %d, want 4", it.ComputeSize())
	}

	var got []float64
	for !it.IsAtEnd() {
		got = append(got, it.Value())
		it.Advance()
	}
	want := []float64{11, 13, 20, 24}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadIteratorEmptyConnectionsIsAtEndImmediately(t *testing.T) {
	it := iterator.NewReadIterator[int](nil)
	if !it.IsAtEnd() {
		t.Fatalf("IsAtEnd() = false on empty connection list, want true")
	}
}

func TestReadWriteIteratorOverAffectsMask(t *testing.T) {
	v := vector.NewDense[float64](10, make([]float64, 10))
	affects := bits.FromIndices(10, 2, 5, 9)

	w := iterator.NewReadWriteIterator(v, affects)
	var visited []uint64
	for !w.IsAtEnd() {
		visited = append(visited, w.Index())
		w.SetValue(float64(w.Index()) * 2)
		w.Advance()
	}
	if len(visited) != 3 || visited[0] != 2 || visited[1] != 5 || visited[2] != 9 {
		t.Fatalf("visited = %v, want [2 5 9]", visited)
	}
	for _, idx := range visited {
		val, ok := v.ReadAt(idx)
		if !ok || val != float64(idx)*2 {
			t.Fatalf("ReadAt(%d) = (%v,%v), want (%v,true)", idx, val, ok, float64(idx)*2)
		}
	}
}

func TestIndexedWeightsOperandUnionArithmetic(t *testing.T) {
	a := iterator.FromPairs(iterator.Union, []uint64{1, 2, 5}, []float64{10, 20, 50})
	b := iterator.FromPairs(iterator.Union, []uint64{2, 5, 7}, []float64{1, 2, 3})

	sum := a.Add(b)
	want := map[uint64]float64{1: 10, 2: 21, 5: 52, 7: 3}
	if sum.Len() != len(want) {
		t.Fatalf("Add union Len() = %d, want %d", sum.Len(), len(want))
	}
	for i := 0; i < sum.Len(); i++ {
		idx := sum.IndexAt(i)
		if w, ok := want[idx]; !ok || sum.WeightAt(i) != w {
			t.Fatalf("Add at index %d = %v, want %v", idx, sum.WeightAt(i), want[idx])
		}
	}
}

func TestIndexedWeightsOperandIntersectionArithmetic(t *testing.T) {
	a := iterator.FromPairs(iterator.Intersection, []uint64{1, 2, 5}, []float64{10, 20, 50})
	b := iterator.FromPairs(iterator.Intersection, []uint64{2, 5, 7}, []float64{1, 2, 3})

	prod := a.Mul(b)
	if prod.Len() != 2 {
		t.Fatalf("Mul intersection Len() = %d, want 2", prod.Len())
	}
	for i := 0; i < prod.Len(); i++ {
		switch prod.IndexAt(i) {
		case 2:
			if prod.WeightAt(i) != 20 {
				t.Fatalf("index 2 = %v, want 20", prod.WeightAt(i))
			}
		case 5:
			if prod.WeightAt(i) != 100 {
				t.Fatalf("index 5 = %v, want 100", prod.WeightAt(i))
			}
		default:
			t.Fatalf("unexpected index %d in intersection result", prod.IndexAt(i))
		}
	}
}

func TestIndexedWeightsOperandDivisionMissingNumeratorIsNaN(t *testing.T) {
	a := iterator.FromPairs(iterator.Union, []uint64{2}, []float64{10})
	b := iterator.FromPairs(iterator.Union, []uint64{1, 2}, []float64{5, 2})

	q := a.Div(b)
	for i := 0; i < q.Len(); i++ {
		if q.IndexAt(i) == 1 {
			if !math.IsNaN(q.WeightAt(i)) {
				t.Fatalf("missing-numerator division at index 1 = %v, want NaN", q.WeightAt(i))
			}
		}
	}
	if !q.MayHaveMathErrors() {
		t.Fatalf("MayHaveMathErrors() = false after producing a NaN")
	}
	if q.GetNumMathErrors() != 1 {
		t.Fatalf("GetNumMathErrors() = %d, want 1", q.GetNumMathErrors())
	}
	q.ClearMathErrors()
	if q.GetNumMathErrors() != 0 {
		t.Fatalf("GetNumMathErrors() after ClearMathErrors() = %d, want 0", q.GetNumMathErrors())
	}
}

func TestIndexedWeightsOperandPruneZerosUnion(t *testing.T) {
	// PruneZeros judges by the operands' weights at each index, not o's
	// own weight; construct o with the same index set as the operand so
	// there's no missing-index ambiguity to reason about.
	o := iterator.FromPairs(iterator.Union, []uint64{1, 2, 3}, []float64{9, 9, 9})
	a := iterator.FromPairs(iterator.Union, []uint64{1, 2, 3}, []float64{0, 5, 0})
	o.PruneZeros([]*iterator.IndexedWeightsOperand{a})

	if o.Len() != 1 || o.IndexAt(0) != 2 {
		t.Fatalf("after PruneZeros: indices = (len %d), want only index 2", o.Len())
	}
}

func TestIndexedWeightsOperandClamp(t *testing.T) {
	o := iterator.FromPairs(iterator.Union, []uint64{0, 1, 2}, []float64{-5, 0.5, 10})
	c := o.Clamp(0, 1)
	want := []float64{0, 0.5, 1}
	for i, w := range want {
		if c.WeightAt(i) != w {
			t.Fatalf("Clamp[%d] = %v, want %v", i, c.WeightAt(i), w)
		}
	}
}

func TestWeightedIteratorSkipsToExplicitWeights(t *testing.T) {
	v := vector.NewDense[float64](10, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	conns := []iterator.Connection[float64]{{Vec: v, Mask: bits.AllSet(10)}}
	inner := iterator.NewReadIterator(conns)

	weights := iterator.FromPairs(iterator.Union, []uint64{2, 5, 8}, []float64{0.2, 0.5, 0.8})
	wi := iterator.NewWeightedIterator[float64](inner, weights)

	var idxs []uint64
	var ws []float64
	for !wi.IsAtEnd() {
		idxs = append(idxs, wi.Index())
		ws = append(ws, wi.GetWeight(0, -1))
		wi.Advance()
	}
	if len(idxs) != 3 || idxs[0] != 2 || idxs[1] != 5 || idxs[2] != 8 {
		t.Fatalf("idxs = %v, want [2 5 8]", idxs)
	}
	if ws[0] != 0.2 || ws[1] != 0.5 || ws[2] != 0.8 {
		t.Fatalf("ws = %v, want [0.2 0.5 0.8]", ws)
	}
}

func TestWeightedIteratorHasExplicitWeight(t *testing.T) {
	v := vector.NewDense[float64](3, []float64{0, 1, 2})
	conns := []iterator.Connection[float64]{{Vec: v, Mask: bits.AllSet(3)}}
	inner := iterator.NewReadIterator(conns)

	weights := iterator.FromPairs(iterator.Union, []uint64{1}, []float64{9})
	wi := iterator.NewWeightedIterator[float64](inner, weights)

	if wi.Index() != 1 {
		t.Fatalf("first stop Index() = %d, want 1 (only explicit weight)", wi.Index())
	}
	if !wi.HasExplicitWeight(0) {
		t.Fatalf("HasExplicitWeight(0) = false at the only explicit index")
	}
	wi.Advance()
	if !wi.IsAtEnd() {
		t.Fatalf("IsAtEnd() = false after exhausting the only explicit weight")
	}
}
