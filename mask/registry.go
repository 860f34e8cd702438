// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mask

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/vexec/bits"
)

// shardBits is the number of low hash bits used to pick a shard. The
// original (pxr/exec/vdf/maskRegistry.h) calls this DiscardBucketBits.
const shardBits = 6

// shardCount is the number of independent, RW-spinlocked hash tables the
// registry stripes entries across.
const shardCount = 1 << shardBits

// immortalSizeThreshold is the largest mask size whose entries are never
// refcounted: per spec §3/§4.2, "any mask whose bits.size <= 8 is marked
// immortal at creation and never reference-counted."
const immortalSizeThreshold = 8

// entry is one flyweighted node: an interned Bits value plus its
// lifecycle bookkeeping. A Mask is a pointer to one of these.
type entry struct {
	val       bits.Bits
	hash      uint64
	immortal  bool
	refCount  atomix.Int64
	resurrect atomix.Int64
	next      *entry
	owner     *Registry
}

type shard struct {
	lock      spinRW
	buckets   []*entry
	bucketMax uint64 // bucketCount - 1
	nodeCount int
}

// Registry is a striped, refcounted intern table for bits.Bits. The zero
// value is ready to use.
type Registry struct {
	shards [shardCount]shard
}

const initialBucketCount = 16

func newShard() shard {
	return shard{
		buckets:   make([]*entry, initialBucketCount),
		bucketMax: initialBucketCount - 1,
	}
}

func (r *Registry) shardFor(hash uint64) *shard {
	idx := hash & (shardCount - 1)
	sh := &r.shards[idx]
	if sh.buckets == nil {
		sh.lock.Lock()
		if sh.buckets == nil {
			*sh = newShard()
		}
		sh.lock.Unlock()
	}
	return sh
}

func bucketIndex(hash uint64, bucketMax uint64) uint64 {
	return (hash >> shardBits) & bucketMax
}

// Intern returns the Mask for b, creating and inserting a new flyweight
// entry if an equal one is not already registered. Masks whose size is at
// most immortalSizeThreshold are never refcounted or reclaimed.
func (r *Registry) Intern(b bits.Bits) Mask {
	if b.Size() == 0 {
		return Mask{}
	}
	hash := b.Hash()
	sh := r.shardFor(hash)
	immortal := b.Size() <= immortalSizeThreshold

	sh.lock.RLock()
	if e := findInBucket(sh, hash, b); e != nil {
		if !immortal {
			retainFound(e)
		}
		sh.lock.RUnlock()
		return Mask{e: e}
	}
	sh.lock.RUnlock()

	sh.lock.Lock()
	defer sh.lock.Unlock()
	if e := findInBucket(sh, hash, b); e != nil {
		if !immortal {
			retainFound(e)
		}
		return Mask{e: e}
	}
	e := &entry{val: b, hash: hash, immortal: immortal, owner: r}
	if !immortal {
		e.refCount.StoreRelaxed(1)
	}
	idx := bucketIndex(hash, sh.bucketMax)
	e.next = sh.buckets[idx]
	sh.buckets[idx] = e
	sh.nodeCount++
	if uint64(sh.nodeCount) >= sh.bucketMax+1 {
		rehash(sh)
	}
	return Mask{e: e}
}

func findInBucket(sh *shard, hash uint64, b bits.Bits) *entry {
	idx := bucketIndex(hash, sh.bucketMax)
	for e := sh.buckets[idx]; e != nil; e = e.next {
		if e.hash == hash && e.val.Equal(b) {
			return e
		}
	}
	return nil
}

// retainFound increments the refcount of an entry found by a lookup,
// reviving it via the resurrection counter if it raced a concurrent
// erase that had just observed refcount 0. Both the fetch-add and the
// resurrection bump use acquire-release ordering (not relaxed): lookups
// run under the shard's shared read lock, so several may update the same
// entry concurrently.
func retainFound(e *entry) {
	if prev := e.refCount.AddAcqRel(1) - 1; prev == 0 {
		e.resurrect.AddAcqRel(1)
	}
}

// rehash doubles the bucket array and redistributes entries. Caller must
// hold sh.lock for writing.
func rehash(sh *shard) {
	newMax := (sh.bucketMax+1)*2 - 1
	newBuckets := make([]*entry, newMax+1)
	for _, head := range sh.buckets {
		for e := head; e != nil; {
			next := e.next
			idx := bucketIndex(e.hash, newMax)
			e.next = newBuckets[idx]
			newBuckets[idx] = e
			e = next
		}
	}
	sh.buckets = newBuckets
	sh.bucketMax = newMax
}

// release drops one reference to e, erasing it from the registry if the
// refcount reaches zero and no concurrent lookup has resurrected it.
// Immortal entries (size <= immortalSizeThreshold) are no-ops.
func (r *Registry) release(e *entry) {
	if e == nil || e.immortal {
		return
	}
	if e.refCount.AddAcqRel(-1) != 0 {
		return
	}
	if e.owner != nil {
		r = e.owner
	}

	sh := r.shardFor(e.hash)
	sh.lock.Lock()
	defer sh.lock.Unlock()

	if e.resurrect.LoadAcquire() > 0 {
		e.resurrect.AddAcqRel(-1)
		return
	}

	idx := bucketIndex(e.hash, sh.bucketMax)
	prev := &sh.buckets[idx]
	for cur := *prev; cur != nil; cur = cur.next {
		if cur == e {
			*prev = cur.next
			sh.nodeCount--
			return
		}
		prev = &cur.next
	}
}

// Size returns the total number of live entries across all shards. For
// test use only.
func (r *Registry) Size() int {
	total := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.lock.RLock()
		total += sh.nodeCount
		sh.lock.RUnlock()
	}
	return total
}

// defaultRegistry is the process-wide mask registry (spec §5 "Singleton
// registries").
var defaultRegistry = &Registry{}

// DefaultRegistry returns the process-wide mask registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
