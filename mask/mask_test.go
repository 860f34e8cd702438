// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mask_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/vexec/bits"
	"code.hybscloud.com/vexec/mask"
)

func TestNullMask(t *testing.T) {
	var m mask.Mask
	if !m.IsNull() {
		t.Fatalf("zero value: IsNull() = false, want true")
	}
	if m.Size() != 0 {
		t.Fatalf("zero value: Size() = %d, want 0", m.Size())
	}
	if !m.IsAllOnes() || !m.IsAllZeros() {
		t.Fatalf("null mask must report both IsAllOnes and IsAllZeros (size 0)")
	}
}

func TestEqualityIsPointerIdentity(t *testing.T) {
	r := &mask.Registry{}
	a := r.Intern(bits.FromIndices(100, 1, 2, 3))
	b := r.Intern(bits.FromIndices(100, 1, 2, 3))
	c := r.Intern(bits.FromIndices(100, 1, 2, 4))

	if !a.Equal(b) {
		t.Fatalf("masks built from equal Bits must intern to the same entry")
	}
	if a.Equal(c) {
		t.Fatalf("masks built from different Bits must not be equal")
	}
}

func TestImmortalSmallMask(t *testing.T) {
	r := &mask.Registry{}
	before := r.Size()
	m := r.Intern(bits.FromIndices(4, 1, 2))
	if r.Size() != before+1 {
		t.Fatalf("Size after insert: got %d, want %d", r.Size(), before+1)
	}

	// Dropping and re-acquiring an equal immortal mask must not change
	// registry size, and must yield the same entry.
	m.Release()
	m2 := r.Intern(bits.FromIndices(4, 1, 2))
	if !m.Equal(m2) {
		t.Fatalf("immortal mask re-insert must return the same interned entry")
	}
	if r.Size() != before+1 {
		t.Fatalf("Size after immortal release+reinsert: got %d, want %d (no net change)", r.Size(), before+1)
	}
}

func TestRefcountedEraseAndReinsert(t *testing.T) {
	r := &mask.Registry{}
	big := bits.FromIndices(5000, 1, 17, 4999)
	before := r.Size()

	m := r.Intern(big)
	if r.Size() != before+1 {
		t.Fatalf("Size after insert: got %d, want %d", r.Size(), before+1)
	}

	m.Release()
	if r.Size() != before {
		t.Fatalf("Size after release to zero refs: got %d, want %d (entry erased)", r.Size(), before)
	}

	m2 := r.Intern(big)
	if r.Size() != before+1 {
		t.Fatalf("Size after reinsert: got %d, want %d", r.Size(), before+1)
	}
	_ = m2
}

func TestSetOperators(t *testing.T) {
	r := &mask.Registry{}
	a := r.Intern(bits.FromIndices(8, 0, 1, 2, 3))
	b := r.Intern(bits.FromIndices(8, 2, 3, 4, 5))

	if got := a.And(b); got.Popcount() != 2 {
		t.Fatalf("And popcount: got %d, want 2", got.Popcount())
	}
	if got := a.Or(b); got.Popcount() != 6 {
		t.Fatalf("Or popcount: got %d, want 6", got.Popcount())
	}
	if got := a.Xor(b); got.Popcount() != 4 {
		t.Fatalf("Xor popcount: got %d, want 4", got.Popcount())
	}
	if got := a.Sub(b); got.Popcount() != 2 {
		t.Fatalf("Sub popcount: got %d, want 2", got.Popcount())
	}
	if got := a.Not(); got.Popcount() != 4 {
		t.Fatalf("Not popcount: got %d, want 4", got.Popcount())
	}
}

func TestAllOnesOfSize1Singleton(t *testing.T) {
	m1 := mask.AllOnesOfSize1()
	m2 := mask.AllOnesOfSize1()
	if !m1.Equal(m2) {
		t.Fatalf("AllOnesOfSize1 must return the same singleton on every call")
	}
	if m1.Size() != 1 || !m1.IsAllOnes() {
		t.Fatalf("AllOnesOfSize1: got size=%d allOnes=%v, want size=1 allOnes=true", m1.Size(), m1.IsAllOnes())
	}
}

func TestConcurrentInternStress(t *testing.T) {
	r := &mask.Registry{}
	const goroutines = 32
	const itersPerGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < itersPerGoroutine; i++ {
				idx := uint64((seed + i) % 50)
				b := bits.FromIndices(64, idx, (idx+1)%64)
				m := r.Intern(b)
				if m.Size() != 64 {
					t.Errorf("Intern: got size %d, want 64", m.Size())
				}
				m.Release()
			}
		}(g)
	}
	wg.Wait()
}
