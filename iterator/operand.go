// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iterator

import (
	"math"
	"sort"

	"code.hybscloud.com/vexec/diagnostics"
)

// SetOperation selects how two IndexedWeightsOperand index sets combine
// under a binary operator.
type SetOperation int

const (
	// Union keeps every index present on either side; a side missing an
	// index contributes the operation's missing-value convention.
	Union SetOperation = iota
	// Intersection keeps only indices present on both sides.
	Intersection
)

// IndexedWeightsOperand is a mutable, sparse (ascending index, weight)
// vector supporting elementwise arithmetic, comparison, and range
// operations, used to combine per-element weights coming from different
// weighted-iterator slots.
type IndexedWeightsOperand struct {
	setOp             SetOperation
	indices           []uint64
	weights           []float64
	mayHaveMathErrors bool
}

// New creates an empty operand with the given set operation.
func New(setOp SetOperation) *IndexedWeightsOperand {
	return &IndexedWeightsOperand{setOp: setOp}
}

// FromPairs creates an operand from parallel index/weight slices, which
// must already be sorted ascending by index and hold no duplicates.
func FromPairs(setOp SetOperation, indices []uint64, weights []float64) *IndexedWeightsOperand {
	if len(indices) != len(weights) {
		diagnostics.FatalError("iterator.FromPairs", "indices length %d != weights length %d", len(indices), len(weights))
	}
	if !sort.SliceIsSorted(indices, func(i, j int) bool { return indices[i] < indices[j] }) {
		diagnostics.FatalError("iterator.FromPairs", "indices must be sorted ascending")
	}
	o := &IndexedWeightsOperand{setOp: setOp, indices: append([]uint64(nil), indices...), weights: append([]float64(nil), weights...)}
	o.recheckMathErrors()
	return o
}

// Len returns the number of (index, weight) pairs held.
func (o *IndexedWeightsOperand) Len() int { return len(o.indices) }

// IndexAt returns the index at position i (0-based, ascending).
func (o *IndexedWeightsOperand) IndexAt(i int) uint64 { return o.indices[i] }

// WeightAt returns the weight at position i.
func (o *IndexedWeightsOperand) WeightAt(i int) float64 { return o.weights[i] }

// SetOp returns this operand's set operation.
func (o *IndexedWeightsOperand) SetOp() SetOperation { return o.setOp }

// MayHaveMathErrors is the fast-path flag for GetNumMathErrors: false
// means zero math errors without needing to scan.
func (o *IndexedWeightsOperand) MayHaveMathErrors() bool { return o.mayHaveMathErrors }

// GetNumMathErrors returns the number of weights that are Inf or NaN.
func (o *IndexedWeightsOperand) GetNumMathErrors() int {
	if !o.mayHaveMathErrors {
		return 0
	}
	n := 0
	for _, w := range o.weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			n++
		}
	}
	return n
}

// ClearMathErrors zeroes every weight that is Inf or NaN.
func (o *IndexedWeightsOperand) ClearMathErrors() {
	if !o.mayHaveMathErrors {
		return
	}
	for i, w := range o.weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			o.weights[i] = 0
		}
	}
	o.mayHaveMathErrors = false
}

func (o *IndexedWeightsOperand) recheckMathErrors() {
	for _, w := range o.weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			o.mayHaveMathErrors = true
			return
		}
	}
}

// at returns the weight at idx and whether idx is present, via binary
// search over the ascending index slice.
func (o *IndexedWeightsOperand) at(idx uint64) (float64, bool) {
	n := len(o.indices)
	pos := sort.Search(n, func(i int) bool { return o.indices[i] >= idx })
	if pos < n && o.indices[pos] == idx {
		return o.weights[pos], true
	}
	return 0, false
}

// FirstIndexAtOrAfter returns the position of the first index >= from.
// If the index at hint is already >= from it returns hint without
// looking at earlier positions (the common case for an iterator
// advancing monotonically); otherwise it binary-searches the whole slice.
func (o *IndexedWeightsOperand) FirstIndexAtOrAfter(from uint64, hint int) int {
	n := len(o.indices)
	if hint < 0 {
		hint = 0
	}
	if hint < n && o.indices[hint] >= from {
		return hint
	}
	pos := sort.Search(n, func(i int) bool { return o.indices[i] >= from })
	return pos
}

func (o *IndexedWeightsOperand) append(idx uint64, w float64) {
	o.indices = append(o.indices, idx)
	o.weights = append(o.weights, w)
	if math.IsNaN(w) || math.IsInf(w, 0) {
		o.mayHaveMathErrors = true
	}
}

// combine walks both operands' ascending index lists with two cursors,
// applying op at every index the set operation says should survive:
// every index for Union (missing side marked !aHas/!bHas), only shared
// indices for Intersection.
func (a *IndexedWeightsOperand) combine(b *IndexedWeightsOperand, op func(av, bv float64, aHas, bHas bool) float64) *IndexedWeightsOperand {
	if a.setOp != b.setOp {
		diagnostics.FatalError("iterator.combine", "operands have different set operations")
	}
	out := &IndexedWeightsOperand{setOp: a.setOp}
	i, j := 0, 0
	for i < len(a.indices) || j < len(b.indices) {
		switch {
		case i >= len(a.indices):
			if a.setOp == Union {
				out.append(b.indices[j], op(0, b.weights[j], false, true))
			}
			j++
		case j >= len(b.indices):
			if a.setOp == Union {
				out.append(a.indices[i], op(a.weights[i], 0, true, false))
			}
			i++
		case a.indices[i] == b.indices[j]:
			out.append(a.indices[i], op(a.weights[i], b.weights[j], true, true))
			i++
			j++
		case a.indices[i] < b.indices[j]:
			if a.setOp == Union {
				out.append(a.indices[i], op(a.weights[i], 0, true, false))
			}
			i++
		default:
			if a.setOp == Union {
				out.append(b.indices[j], op(0, b.weights[j], false, true))
			}
			j++
		}
	}
	return out
}

func (o *IndexedWeightsOperand) unary(fn func(float64) float64) *IndexedWeightsOperand {
	out := &IndexedWeightsOperand{setOp: o.setOp, indices: append([]uint64(nil), o.indices...), weights: make([]float64, len(o.weights))}
	for i, w := range o.weights {
		v := fn(w)
		out.weights[i] = v
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out.mayHaveMathErrors = true
		}
	}
	return out
}

func boolToWeight(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// PruneZeros removes indices from o whose corresponding weights across
// operands are all zero (Union) or that have any zero corresponding
// weight (Intersection). operands must share o's set operation.
func (o *IndexedWeightsOperand) PruneZeros(operands []*IndexedWeightsOperand) {
	var kept []uint64
	var keptW []float64
	for i, idx := range o.indices {
		drop := false
		switch o.setOp {
		case Union:
			allZero := true
			for _, op := range operands {
				if w, ok := op.at(idx); ok && w != 0 {
					allZero = false
					break
				}
			}
			drop = allZero
		case Intersection:
			for _, op := range operands {
				if w, ok := op.at(idx); !ok || w == 0 {
					drop = true
					break
				}
			}
		}
		if !drop {
			kept = append(kept, idx)
			keptW = append(keptW, o.weights[i])
		}
	}
	o.indices, o.weights = kept, keptW
	o.recheckMathErrors()
}

// Fill discards o's current contents and sets it to fillWeight at every
// index the set operation and operands dictate: for Union, any index
// present in at least one operand (and, if nonZeroSetOperation, with at
// least one non-zero corresponding weight); for Intersection, indices
// present in all operands (and, if nonZeroSetOperation, all non-zero).
func (o *IndexedWeightsOperand) Fill(operands []*IndexedWeightsOperand, fillWeight float64, nonZeroSetOperation bool) {
	seen := map[uint64]int{}
	var order []uint64
	for _, op := range operands {
		for _, idx := range op.indices {
			if _, ok := seen[idx]; !ok {
				order = append(order, idx)
			}
			seen[idx]++
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	o.indices, o.weights = nil, nil
	o.mayHaveMathErrors = false
	for _, idx := range order {
		switch o.setOp {
		case Union:
			include := true
			if nonZeroSetOperation {
				include = false
				for _, op := range operands {
					if w, ok := op.at(idx); ok && w != 0 {
						include = true
						break
					}
				}
			}
			if include {
				o.append(idx, fillWeight)
			}
		case Intersection:
			if seen[idx] != len(operands) {
				continue
			}
			include := true
			if nonZeroSetOperation {
				for _, op := range operands {
					if w, ok := op.at(idx); !ok || w == 0 {
						include = false
						break
					}
				}
			}
			if include {
				o.append(idx, fillWeight)
			}
		}
	}
}

// Negate returns a new operand with every weight negated.
func (o *IndexedWeightsOperand) Negate() *IndexedWeightsOperand { return o.unary(func(w float64) float64 { return -w }) }

// AddScalar returns a new operand with s added to every weight.
func (o *IndexedWeightsOperand) AddScalar(s float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return w + s })
}

// SubScalar returns a new operand with s subtracted from every weight.
func (o *IndexedWeightsOperand) SubScalar(s float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return w - s })
}

// MulScalar returns a new operand scaled by s.
func (o *IndexedWeightsOperand) MulScalar(s float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return w * s })
}

// DivScalar returns a new operand with every weight divided by s.
func (o *IndexedWeightsOperand) DivScalar(s float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return w / s })
}

// Add combines o and v by addition, per o's set operation.
func (o *IndexedWeightsOperand) Add(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, _, _ bool) float64 { return av + bv })
}

// Sub combines o and v by subtraction, per o's set operation.
func (o *IndexedWeightsOperand) Sub(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, _, _ bool) float64 { return av - bv })
}

// Mul combines o and v by multiplication, per o's set operation.
func (o *IndexedWeightsOperand) Mul(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, _, _ bool) float64 { return av * bv })
}

// Div combines o and v by division, per o's set operation. A missing
// numerator (o's side absent under Union) always yields NaN regardless
// of the denominator; a missing denominator defaults to zero and so
// follows ordinary floating-point division-by-zero semantics.
func (o *IndexedWeightsOperand) Div(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, aHas, bHas bool) float64 {
		if !aHas {
			return math.NaN()
		}
		if !bHas {
			return av / 0
		}
		return av / bv
	})
}

func cmp(fn func(av, bv float64) bool) func(av, bv float64, aHas, bHas bool) float64 {
	return func(av, bv float64, _, _ bool) float64 { return boolToWeight(fn(av, bv)) }
}

func (o *IndexedWeightsOperand) Lt(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, cmp(func(a, b float64) bool { return a < b }))
}
func (o *IndexedWeightsOperand) Le(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, cmp(func(a, b float64) bool { return a <= b }))
}
func (o *IndexedWeightsOperand) Gt(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, cmp(func(a, b float64) bool { return a > b }))
}
func (o *IndexedWeightsOperand) Ge(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, cmp(func(a, b float64) bool { return a >= b }))
}
func (o *IndexedWeightsOperand) EqOp(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, cmp(func(a, b float64) bool { return a == b }))
}
func (o *IndexedWeightsOperand) Ne(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, cmp(func(a, b float64) bool { return a != b }))
}

// Standard math library functions, applied elementwise.
func (o *IndexedWeightsOperand) Acos() *IndexedWeightsOperand  { return o.unary(math.Acos) }
func (o *IndexedWeightsOperand) Acosh() *IndexedWeightsOperand { return o.unary(math.Acosh) }
func (o *IndexedWeightsOperand) Asin() *IndexedWeightsOperand  { return o.unary(math.Asin) }
func (o *IndexedWeightsOperand) Asinh() *IndexedWeightsOperand { return o.unary(math.Asinh) }
func (o *IndexedWeightsOperand) Atan() *IndexedWeightsOperand  { return o.unary(math.Atan) }
func (o *IndexedWeightsOperand) Atanh() *IndexedWeightsOperand { return o.unary(math.Atanh) }
func (o *IndexedWeightsOperand) Ceil() *IndexedWeightsOperand  { return o.unary(math.Ceil) }
func (o *IndexedWeightsOperand) Cos() *IndexedWeightsOperand   { return o.unary(math.Cos) }
func (o *IndexedWeightsOperand) Cosh() *IndexedWeightsOperand  { return o.unary(math.Cosh) }
func (o *IndexedWeightsOperand) Exp() *IndexedWeightsOperand   { return o.unary(math.Exp) }
func (o *IndexedWeightsOperand) Fabs() *IndexedWeightsOperand  { return o.unary(math.Abs) }
func (o *IndexedWeightsOperand) Floor() *IndexedWeightsOperand { return o.unary(math.Floor) }
func (o *IndexedWeightsOperand) Log() *IndexedWeightsOperand   { return o.unary(math.Log) }
func (o *IndexedWeightsOperand) Log10() *IndexedWeightsOperand { return o.unary(math.Log10) }
func (o *IndexedWeightsOperand) Sin() *IndexedWeightsOperand   { return o.unary(math.Sin) }
func (o *IndexedWeightsOperand) Sinh() *IndexedWeightsOperand  { return o.unary(math.Sinh) }
func (o *IndexedWeightsOperand) Sqrt() *IndexedWeightsOperand  { return o.unary(math.Sqrt) }
func (o *IndexedWeightsOperand) Tan() *IndexedWeightsOperand   { return o.unary(math.Tan) }
func (o *IndexedWeightsOperand) Tanh() *IndexedWeightsOperand  { return o.unary(math.Tanh) }

func (o *IndexedWeightsOperand) Fmod(denominator float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return math.Mod(w, denominator) })
}
func (o *IndexedWeightsOperand) Pow(exponent float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return math.Pow(w, exponent) })
}
func (o *IndexedWeightsOperand) Atan2(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, _, _ bool) float64 { return math.Atan2(av, bv) })
}

// Min returns a new operand holding the minimum of o and v at each
// surviving index.
func (o *IndexedWeightsOperand) Min(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, _, _ bool) float64 { return math.Min(av, bv) })
}

// Max returns a new operand holding the maximum of o and v at each
// surviving index.
func (o *IndexedWeightsOperand) Max(v *IndexedWeightsOperand) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, _, _ bool) float64 { return math.Max(av, bv) })
}

func (o *IndexedWeightsOperand) MinScalar(m float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return math.Min(w, m) })
}
func (o *IndexedWeightsOperand) MaxScalar(m float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 { return math.Max(w, m) })
}

// Clamp returns a new operand with every weight clamped to [min, max].
func (o *IndexedWeightsOperand) Clamp(min, max float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 {
		if w < min {
			return min
		}
		if w > max {
			return max
		}
		return w
	})
}

// Smoothstep maps each weight through a Hermite smoothstep over
// [min, max], with optional slopes at the endpoints.
func (o *IndexedWeightsOperand) Smoothstep(min, max, slope0, slope1 float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 {
		if max == min {
			return w
		}
		t := (w - min) / (max - min)
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		return t*t*(3-2*t) + slope0*t*(1-t)*(1-t) - slope1*t*t*(1-t)
	})
}

// Smoothramp maps each weight through a smooth ramp over [min, max] with
// shoulder widths shoulder0/shoulder1 at the two ends.
func (o *IndexedWeightsOperand) Smoothramp(min, max, shoulder0, shoulder1 float64) *IndexedWeightsOperand {
	return o.unary(func(w float64) float64 {
		if max == min {
			return w
		}
		t := (w - min) / (max - min)
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}
		lo := shoulder0
		hi := 1 - shoulder1
		switch {
		case t < lo && lo > 0:
			u := t / lo
			return lo * (u * u)
		case t > hi && shoulder1 > 0:
			u := (t - hi) / shoulder1
			return hi + shoulder1*(u-(u*u)/2)
		default:
			return t
		}
	})
}

// Lerp linearly interpolates between o and v by scalar a: o*(1-a) + v*a.
func (o *IndexedWeightsOperand) Lerp(v *IndexedWeightsOperand, a float64) *IndexedWeightsOperand {
	return o.combine(v, func(av, bv float64, _, _ bool) float64 { return av*(1-a) + bv*a })
}

// LerpWeighted linearly interpolates between o and v using a per-index
// interpolation factor from a instead of a single scalar: at each
// surviving index, o*(1-a) + v*a. Indices present in o/v but absent from
// a fall back to factor 0 (keep o's value).
func (o *IndexedWeightsOperand) LerpWeighted(v, a *IndexedWeightsOperand) *IndexedWeightsOperand {
	result := o.combine(v, func(av, bv float64, _, _ bool) float64 { return av })
	for i, idx := range result.indices {
		av, _ := o.at(idx)
		bv, _ := v.at(idx)
		factor, _ := a.at(idx)
		w := av*(1-factor) + bv*factor
		result.weights[i] = w
		if math.IsNaN(w) || math.IsInf(w, 0) {
			result.mayHaveMathErrors = true
		}
	}
	return result
}
