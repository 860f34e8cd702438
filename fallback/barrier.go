// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fallback

import (
	"sync"
	"sync/atomic"
)

// RegistrationBarrier separates the insert-only phase of populating a
// singleton registry from the read-only phase that follows it. Registry
// functions that add entries run during subscription, before the
// registry is published for lookups; a reader arriving during that
// window must block rather than observe a partially populated registry.
//
// The zero value is not ready to use; construct with newRegistrationBarrier.
type RegistrationBarrier struct {
	ready atomic.Bool

	mu   sync.Mutex
	cond *sync.Cond
	set  bool
}

func newRegistrationBarrier() *RegistrationBarrier {
	b := &RegistrationBarrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// WaitUntilReady blocks until SetReady has been called. The overwhelming
// majority of calls land after SetReady and take the atomic-load fast
// path; only callers racing the initial registration phase pay for the
// mutex and condition variable.
func (b *RegistrationBarrier) WaitUntilReady() {
	if b.ready.Load() {
		return
	}
	b.waitSlow()
}

func (b *RegistrationBarrier) waitSlow() {
	b.mu.Lock()
	for !b.set {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// SetReady marks the barrier open, waking every blocked waiter. Calling
// SetReady more than once is a no-op.
func (b *RegistrationBarrier) SetReady() {
	b.mu.Lock()
	if b.set {
		b.mu.Unlock()
		return
	}
	b.set = true
	b.mu.Unlock()
	b.cond.Broadcast()
	b.ready.Store(true)
}
