// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fallback_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/vexec/fallback"
	"code.hybscloud.com/vexec/vector"
)

type widget struct{ Weight float64 }

func TestDefineAndGetFallback(t *testing.T) {
	r := fallback.New()
	if !fallback.Define(r, 3.25) {
		t.Fatalf("Define(float64) = false on first registration, want true")
	}
	r.Open()

	got := fallback.GetFallback[float64](r)
	if got != 3.25 {
		t.Fatalf("GetFallback[float64]() = %v, want 3.25", got)
	}
}

func TestDefineRepeatEqualValueSucceeds(t *testing.T) {
	r := fallback.New()
	fallback.Define(r, widget{Weight: 1.0})
	if fallback.Define(r, widget{Weight: 1.0}) == false {
		t.Fatalf("repeat Define with an equal value = false, want true")
	}
}

func TestDefineRepeatDifferentValueReportsNotFatal(t *testing.T) {
	r := fallback.New()
	fallback.Define(r, widget{Weight: 1.0})
	ok := fallback.Define(r, widget{Weight: 2.0})
	if ok {
		t.Fatalf("Define with a differing value on a second registration should report false (first wins)")
	}
	r.Open()
	got := fallback.GetFallback[widget](r)
	if got.Weight != 1.0 {
		t.Fatalf("GetFallback[widget]().Weight = %v, want 1.0 (first registration wins)", got.Weight)
	}
}

func TestDefineDerivedRecordsBaseType(t *testing.T) {
	type base interface{ Area() float64 }
	r := fallback.New()
	fallback.DefineDerived[widget, base](r, widget{Weight: 9})
	r.Open()

	bt, ok := fallback.BaseType[widget](r)
	if !ok {
		t.Fatalf("BaseType[widget]() ok=false, want true")
	}
	if bt.Name() != "base" {
		t.Fatalf("BaseType[widget]() = %v, want base", bt)
	}
}

func TestCreateEmptyVectorAndFillVector(t *testing.T) {
	r := fallback.New()
	fallback.Define(r, 7.0)
	r.Open()

	v := fallback.CreateEmptyVector[float64](r, 100)
	if v.Size() != 100 || v.Layout() != vector.LayoutEmpty {
		t.Fatalf("CreateEmptyVector: size=%d layout=%v, want size=100 layout=Empty", v.Size(), v.Layout())
	}

	fallback.FillVector[float64](r, v, 50)
	if v.Size() != 50 {
		t.Fatalf("FillVector: Size() = %d, want 50", v.Size())
	}
	val, ok := v.ReadAt(10)
	if !ok || val != 7.0 {
		t.Fatalf("FillVector: ReadAt(10) = (%v,%v), want (7.0,true)", val, ok)
	}
}

func TestBarrierBlocksUntilOpen(t *testing.T) {
	r := fallback.New()
	fallback.Define(r, int64(42))

	var wg sync.WaitGroup
	var got int64
	wg.Add(1)
	go func() {
		defer wg.Done()
		got = fallback.GetFallback[int64](r)
	}()

	r.Open()
	wg.Wait()
	if got != 42 {
		t.Fatalf("GetFallback[int64]() across barrier = %v, want 42", got)
	}
}

func TestInstanceIsProcessWideSingleton(t *testing.T) {
	if fallback.Instance() != fallback.Instance() {
		t.Fatalf("Instance() must return the same registry on every call")
	}
}
