// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vector_test

import (
	"testing"

	"code.hybscloud.com/vexec/bits"
	"code.hybscloud.com/vexec/vector"
)

func TestEmptyVector(t *testing.T) {
	v := vector.NewEmpty[float64](10)
	if v.Size() != 10 {
		t.Fatalf("Size() = %d, want 10", v.Size())
	}
	if v.Layout() != vector.LayoutEmpty {
		t.Fatalf("Layout() = %v, want Empty", v.Layout())
	}
	if _, ok := v.ReadAt(3); ok {
		t.Fatalf("ReadAt on empty vector returned ok=true")
	}
}

func TestSingleVector(t *testing.T) {
	v := vector.NewSingle[float64](100, 3.5)
	for _, i := range []uint64{0, 50, 99} {
		val, ok := v.ReadAt(i)
		if !ok || val != 3.5 {
			t.Fatalf("ReadAt(%d) = (%v,%v), want (3.5,true)", i, val, ok)
		}
	}
	if v.IsSharable() {
		t.Fatalf("Single-layout vector must never be sharable")
	}
}

func TestDenseVectorReadWrite(t *testing.T) {
	data := make([]float64, 20)
	for i := range data {
		data[i] = float64(i)
	}
	v := vector.NewDense[float64](20, data)
	if v.Layout() != vector.LayoutContiguous {
		t.Fatalf("Layout() = %v, want Contiguous", v.Layout())
	}
	val, ok := v.ReadAt(5)
	if !ok || val != 5 {
		t.Fatalf("ReadAt(5) = (%v,%v), want (5,true)", val, ok)
	}
	v.WriteAt(5, 500)
	val, _ = v.ReadAt(5)
	if val != 500 {
		t.Fatalf("after WriteAt(5,500): ReadAt(5) = %v, want 500", val)
	}
}

// TestCompressedCopyRoundTrip exercises the "Compressed copy round-trip"
// scenario: a dense 1500-element double vector, copied under a sparse
// mask of 4 set bits spanning more than half the vector, must compress
// and read back bit-exact at the set indices.
func TestCompressedCopyRoundTrip(t *testing.T) {
	const size = 1500
	data := make([]float64, size)
	for i := range data {
		data[i] = float64(i) * 1.5
	}
	src := vector.NewDense[float64](size, data)

	m := bits.FromIndices(size, 1, 3, 4, 1499)
	var dst vector.Vector[float64]
	dst.Copy(src, m)

	if dst.Size() != size {
		t.Fatalf("Size() = %d, want %d", dst.Size(), size)
	}
	if dst.Layout() != vector.LayoutCompressed {
		t.Fatalf("Layout() = %v, want Compressed", dst.Layout())
	}

	for _, idx := range []uint64{1, 3, 4, 1499} {
		val, ok := dst.ReadAt(idx)
		if !ok {
			t.Fatalf("ReadAt(%d): ok=false, want true", idx)
		}
		want := float64(idx) * 1.5
		if val != want {
			t.Fatalf("ReadAt(%d) = %v, want %v", idx, val, want)
		}
	}
	for _, idx := range []uint64{0, 2, 5, 1000} {
		if _, ok := dst.ReadAt(idx); ok {
			t.Fatalf("ReadAt(%d): ok=true, want false (not in mask)", idx)
		}
	}
}

func TestCopyWithDenseMaskYieldsContiguous(t *testing.T) {
	const size = 10
	data := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	src := vector.NewDense[float64](size, data)
	m := bits.FromIndices(size, 2, 3, 4, 5, 6, 7)

	var dst vector.Vector[float64]
	dst.Copy(src, m)
	if dst.Layout() != vector.LayoutContiguous {
		t.Fatalf("Layout() = %v, want Contiguous (size=10 is below the compression size threshold)", dst.Layout())
	}
	for idx := uint64(2); idx <= 7; idx++ {
		val, ok := dst.ReadAt(idx)
		if !ok || val != float64(idx) {
			t.Fatalf("ReadAt(%d) = (%v,%v), want (%v,true)", idx, val, ok, float64(idx))
		}
	}
}

func TestCopyWithAllUnsetYieldsEmpty(t *testing.T) {
	src := vector.NewSingle[float64](50, 1.0)
	var dst vector.Vector[float64]
	dst.Copy(src, bits.New(50))
	if dst.Layout() != vector.LayoutEmpty {
		t.Fatalf("Layout() = %v, want Empty", dst.Layout())
	}
}

func TestCopyWithAllSetClonesLayout(t *testing.T) {
	src := vector.NewSingle[float64](50, 7.0)
	var dst vector.Vector[float64]
	dst.Copy(src, bits.AllSet(50))
	if dst.Layout() != vector.LayoutSingle {
		t.Fatalf("Layout() = %v, want Single", dst.Layout())
	}
	val, ok := dst.ReadAt(10)
	if !ok || val != 7.0 {
		t.Fatalf("ReadAt(10) = (%v,%v), want (7,true)", val, ok)
	}
}

func TestMergeExpandsContiguousRange(t *testing.T) {
	const size = 20
	var v vector.Vector[float64]
	v.ResizeWithBits(bits.FromIndices(size, 5, 6, 7))
	v.WriteAt(5, 50)
	v.WriteAt(6, 60)
	v.WriteAt(7, 70)

	other := vector.NewDense[float64](size, func() []float64 {
		d := make([]float64, size)
		for i := range d {
			d[i] = float64(i) * 10
		}
		return d
	}())

	v.Merge(other, bits.FromIndices(size, 2, 3, 15))

	for _, tc := range []struct {
		idx  uint64
		want float64
	}{
		{2, 20}, {3, 30}, {5, 50}, {6, 60}, {7, 70}, {15, 150},
	} {
		val, ok := v.ReadAt(tc.idx)
		if !ok || val != tc.want {
			t.Fatalf("ReadAt(%d) = (%v,%v), want (%v,true)", tc.idx, val, ok, tc.want)
		}
	}
}

func TestMergeMaterializesCompressedFirst(t *testing.T) {
	const size = 2000
	var v vector.Vector[float64]
	sparse := bits.FromIndices(size, 10, 1999)
	v.ResizeWithBits(sparse)
	if v.Layout() != vector.LayoutCompressed {
		t.Fatalf("precondition: Layout() = %v, want Compressed", v.Layout())
	}
	v.WriteAt(10, 1)
	v.WriteAt(1999, 2)

	other := vector.NewSingle[float64](size, 9)
	v.Merge(other, bits.FromIndices(size, 500))

	if v.Layout() != vector.LayoutContiguous {
		t.Fatalf("after Merge: Layout() = %v, want Contiguous (compressed must materialize before merging)", v.Layout())
	}
	val, ok := v.ReadAt(500)
	if !ok || val != 9 {
		t.Fatalf("ReadAt(500) = (%v,%v), want (9,true)", val, ok)
	}
	val, ok = v.ReadAt(10)
	if !ok || val != 1 {
		t.Fatalf("ReadAt(10) = (%v,%v), want (1,true)", val, ok)
	}
}

func TestShareAndDetach(t *testing.T) {
	data := make([]int, 6000)
	for i := range data {
		data[i] = i
	}
	v := vector.NewDense[int](6000, data)
	if !v.IsSharable() {
		t.Fatalf("IsSharable() = false, want true (size above threshold)")
	}
	if !v.Share() {
		t.Fatalf("Share() = false, want true")
	}
	if !v.IsShared() {
		t.Fatalf("IsShared() = false after Share()")
	}

	other := v.ShareWith()
	if !other.IsShared() {
		t.Fatalf("ShareWith result is not shared")
	}
	val, ok := other.ReadAt(100)
	if !ok || val != 100 {
		t.Fatalf("shared ReadAt(100) = (%v,%v), want (100,true)", val, ok)
	}

	// Writing through v must not perturb the clone returned by ShareWith
	// (copy-on-write detach: shared refcount > 1 forces a materialized copy).
	v.WriteAt(100, -1)
	val, ok = other.ReadAt(100)
	if !ok || val != 100 {
		t.Fatalf("after detach+write on sibling, other.ReadAt(100) = (%v,%v), want (100,true) (no aliasing)", val, ok)
	}
	val, ok = v.ReadAt(100)
	if !ok || val != -1 {
		t.Fatalf("v.ReadAt(100) = (%v,%v), want (-1,true)", val, ok)
	}
}

func TestShareRefusedBelowThreshold(t *testing.T) {
	v := vector.NewDense[int](10, make([]int, 10))
	if v.IsSharable() {
		t.Fatalf("IsSharable() = true, want false (below size threshold)")
	}
	if v.Share() {
		t.Fatalf("Share() = true, want false (below size threshold)")
	}
}

func TestExtractAsVtArrayZeroCopyForSharedContiguous(t *testing.T) {
	data := make([]int, 8000)
	for i := range data {
		data[i] = i
	}
	v := vector.NewDense[int](8000, data)
	v.Share()

	ext := v.ExtractAsVtArray(100, 50)
	if !ext.Foreign {
		t.Fatalf("Foreign = false, want true for a shared contiguous vector")
	}
	if len(ext.Data) != 50 || ext.Data[0] != 100 {
		t.Fatalf("Data = %v (len %d), want starting at 100 with length 50", ext.Data[:3], len(ext.Data))
	}
}

func TestExtractAsVtArrayMaterializesForUnshared(t *testing.T) {
	v := vector.NewSingle[int](100, 7)
	ext := v.ExtractAsVtArray(10, 5)
	if ext.Foreign {
		t.Fatalf("Foreign = true, want false for an unshared, non-contiguous vector")
	}
	for _, x := range ext.Data {
		if x != 7 {
			t.Fatalf("Data = %v, want all 7", ext.Data)
		}
	}
}

func TestBoxedVector(t *testing.T) {
	box := vector.NewBoxedContainer[float64]()
	box.Append([]float64{1, 2, 3})
	v := vector.NewBoxed[float64](box)
	if v.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", v.Size())
	}
	if !v.IsBoxed() {
		t.Fatalf("IsBoxed() = false, want true")
	}
	got := v.BoxedValue()
	if got.Len() != 3 {
		t.Fatalf("BoxedValue().Len() = %d, want 3", got.Len())
	}
}

func TestBoxedContainerRejectsNestingByValue(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected NewBoxedContainer[BoxedContainer[float64]] to panic")
		}
	}()
	vector.NewBoxedContainer[vector.BoxedContainer[float64]]()
}

func TestBoxedContainerRejectsNestingByPointer(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected NewBoxedContainer[*BoxedContainer[float64]] to panic")
		}
	}()
	vector.NewBoxedContainer[*vector.BoxedContainer[float64]]()
}

func TestResizeContiguousShrinkBelowStoredRangeResetsToEmpty(t *testing.T) {
	v := vector.NewSparse[float64](100, 40, []float64{1, 2, 3})
	v.Resize(41)
	if v.Layout() != vector.LayoutEmpty {
		t.Fatalf("Layout() = %v, want Empty (stored range exceeded new size)", v.Layout())
	}
}
