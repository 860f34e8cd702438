// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mask

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// spinRW is a short-held reader/writer spinlock; it has no try-lock
// operation, so RLock and Lock spin until they acquire. State encodes
// -1 for write-held and N>=0 for N concurrent readers.
//
// Unlike sync.RWMutex, spinRW never parks a goroutine on the scheduler; it
// busy-waits via spin.Wait, matching spec §5's "shard RW spinlock
// (tryable, short)" suspension point. Critical sections guarded by a
// shard's spinRW are a bucket scan or a single-entry splice, both O(1)
// amortized, so busy-waiting never dominates.
type spinRW struct {
	state atomix.Int64
}

func (l *spinRW) RLock() {
	sw := spin.Wait{}
	for {
		s := l.state.LoadAcquire()
		if s < 0 {
			sw.Once()
			continue
		}
		if l.state.CompareAndSwapAcqRel(s, s+1) {
			return
		}
	}
}

func (l *spinRW) RUnlock() {
	l.state.AddAcqRel(-1)
}

func (l *spinRW) Lock() {
	sw := spin.Wait{}
	for {
		if l.state.CompareAndSwapAcqRel(0, -1) {
			return
		}
		sw.Once()
	}
}

func (l *spinRW) Unlock() {
	l.state.StoreRelease(0)
}
