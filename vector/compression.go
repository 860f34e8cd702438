// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vector

import "code.hybscloud.com/vexec/bits"

// compressionSizeThreshold is the minimum size for compression;
// shouldCompress applies the rest of the heuristic from spec §3/§4.1:
//
//	shouldCompress(bits) = size >= 1000 AND !contiguous AND
//	                       span >= size/2 AND popcount < span/8
const compressionSizeThreshold = 1000

// shouldCompress decides, for a Copy-with-mask operation, whether the
// result should use the Compressed layout (true) or contiguous-sparse
// (false).
func shouldCompress(b bits.Bits) bool {
	size := b.Size()
	if size < compressionSizeThreshold {
		return false
	}
	if b.Contiguous() {
		return false
	}
	if !b.IsAnySet() {
		return false
	}
	span := b.LastSet() - b.FirstSet() + 1
	if span < size/2 {
		return false
	}
	popcount := b.Popcount()
	return popcount < span/8
}
