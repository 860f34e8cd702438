// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fallback holds the per-type default values the runtime
// substitutes when a connection carries no data: every value type used
// anywhere in a network must be Define-d here with a fallback, once,
// before Schedule or Execute ever runs.
package fallback

import (
	"reflect"
	"sync"

	"code.hybscloud.com/vexec/diagnostics"
	"code.hybscloud.com/vexec/vector"
)

// entry is the type-erased slot a Define[T] call installs. Reflection
// stands in for the original's hand-written type-erased container: this
// registry holds at most a few dozen entries (one per value type the
// embedding application uses), so the dispatch-table compile-time
// concerns that motivated the original's bespoke erasure don't apply.
type entry struct {
	value    any
	baseType reflect.Type // non-nil when registered via DefineDerived
}

// equals compares e's stored value against rhs, treating values of a
// non-comparable type (slices, maps, boxed containers) as always equal:
// the registry can't meaningfully reject a re-registration it has no way
// to compare, so it accepts it.
func (e entry) equals(rhs any) bool {
	t := reflect.TypeOf(e.value)
	if t == nil || !t.Comparable() {
		return true
	}
	return e.value == rhs
}

// Registry holds fallback values keyed by their Go type, behind a
// registration barrier: Define may only be called before the owning
// application publishes the registry for lookups via Open.
type Registry struct {
	barrier *RegistrationBarrier

	mu      sync.RWMutex
	entries map[reflect.Type]entry
}

// New creates a Registry in its insert-only phase. Call Open once all
// Define/DefineDerived calls for process startup have completed.
func New() *Registry {
	return &Registry{
		barrier: newRegistrationBarrier(),
		entries: make(map[reflect.Type]entry),
	}
}

// Open publishes the registry for GetFallback/FillVector/CreateEmptyVector
// lookups. Calling Open more than once is a no-op.
func (r *Registry) Open() {
	r.barrier.SetReady()
}

// Define registers fallback as the default value for T. Returns false,
// leaving the existing registration untouched, if T was already defined
// with an unequal fallback value; returns true if this is the first
// registration for T, or a repeat registration with an equal value
// (multiple embedding components may legitimately define the same
// value type).
func Define[T any](r *Registry, value T) bool {
	return defineWithBase[T](r, value, nil)
}

// DefineDerived registers fallback as the default value for T, recording
// that T derives from B for callers that need to walk a type hierarchy
// (the Go analogue of the original's two-type-parameter Define<T,B>,
// since Go has no notion of one concrete type statically "deriving"
// another outside of interface satisfaction).
func DefineDerived[T, B any](r *Registry, value T) bool {
	baseType := reflect.TypeOf((*B)(nil)).Elem()
	return defineWithBase[T](r, value, baseType)
}

func defineWithBase[T any](r *Registry, value T, baseType reflect.Type) bool {
	t := reflect.TypeOf((*T)(nil)).Elem()
	e := entry{value: value, baseType: baseType}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[t]; ok {
		if !existing.equals(value) {
			diagnostics.ReportError("fallback.Define", "type %s registered more than once with different fallback values", t)
			return false
		}
		return true
	}
	r.entries[t] = e
	return true
}

// BaseType returns the base type T was registered under via
// DefineDerived, or (nil, false) if T was registered with Define, or was
// never registered at all.
func BaseType[T any](r *Registry) (reflect.Type, bool) {
	r.barrier.WaitUntilReady()
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[t]
	if !ok || e.baseType == nil {
		return nil, false
	}
	return e.baseType, true
}

// CheckForRegistration reports whether T has a registered fallback
// value. It is a fatal error for any runtime component to query a type
// that isn't registered by the time execution begins.
func CheckForRegistration[T any](r *Registry) {
	r.barrier.WaitUntilReady()
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.RLock()
	_, ok := r.entries[t]
	r.mu.RUnlock()
	if !ok {
		diagnostics.FatalError("fallback.CheckForRegistration", "type %s has no registered fallback value", t)
	}
}

// GetFallback returns the registered fallback value for T. It is a
// fatal error to query a type that isn't registered.
func GetFallback[T any](r *Registry) T {
	r.barrier.WaitUntilReady()
	t := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.RLock()
	e, ok := r.entries[t]
	r.mu.RUnlock()
	if !ok {
		diagnostics.FatalError("fallback.GetFallback", "type %s has no registered fallback value", t)
		var zero T
		return zero
	}
	return e.value.(T)
}

// CreateEmptyVector returns an empty Vector[T] of the given logical
// size. T must already be registered; this creates empty data, not a
// fallback-valued vector (see FillVector for that).
func CreateEmptyVector[T any](r *Registry, size uint64) *vector.Vector[T] {
	CheckForRegistration[T](r)
	return vector.NewEmpty[T](size)
}

// FillVector resizes v to numElements and fills every logical index with
// T's registered fallback value.
func FillVector[T any](r *Registry, v *vector.Vector[T], numElements uint64) {
	value := GetFallback[T](r)
	v.Resize(numElements)
	v.Set(value)
}

// defaultRegistry is the process-wide fallback registry (spec's "global
// registries" are confined to mask, fallback, and execution-type
// registries, each behind a registration barrier).
var defaultRegistry = New()

// Instance returns the process-wide fallback registry. Embedding
// applications call Define/DefineDerived against it during startup, then
// Open it once before execution begins.
func Instance() *Registry {
	return defaultRegistry
}
