// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xxhash selects the hash function used for mask and bits
// identity, so the rest of the module names one function instead of
// importing the ecosystem package directly everywhere a fast, stable hash
// is needed.
package xxhash

import "github.com/cespare/xxhash/v2"

// Sum64 returns the xxHash64 digest of data.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// New returns a streaming xxHash64 hasher for incremental writes.
func New() *xxhash.Digest {
	return xxhash.New()
}
