// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package vector

import (
	"sort"

	"code.hybscloud.com/vexec/bits"
)

// block is one logical run of stored elements: the logical index at
// which the run starts, and the data index (exclusive end) one past the
// run's last packed element. Grounded on
// original_source/pxr/exec/vdf/compressedIndexMapping.h's
// Vdf_IndexBlockMapping.
type block struct {
	logicalStart uint64
	dataEnd      uint64
}

// blockMapping relates logical indices of a Compressed vector to packed
// data indices. One block exists per contiguous run of set bits in the
// mask the vector was compressed from.
type blockMapping struct {
	blocks []block
}

// newBlockMapping builds a mapping whose block layout matches the set
// runs of b, in ascending logical order.
func newBlockMapping(b bits.Bits) *blockMapping {
	var blocks []block
	dataEnd := uint64(0)
	for _, p := range b.PlatformsView() {
		if !p.IsSet {
			continue
		}
		dataEnd += p.Length
		blocks = append(blocks, block{logicalStart: p.First, dataEnd: dataEnd})
	}
	return &blockMapping{blocks: blocks}
}

func (m *blockMapping) numStored() uint64 {
	if len(m.blocks) == 0 {
		return 0
	}
	return m.blocks[len(m.blocks)-1].dataEnd
}

func (m *blockMapping) dataStart(blockIdx int) uint64 {
	if blockIdx == 0 {
		return 0
	}
	return m.blocks[blockIdx-1].dataEnd
}

func (m *blockMapping) blockLength(blockIdx int) uint64 {
	return m.blocks[blockIdx].dataEnd - m.dataStart(blockIdx)
}

func (m *blockMapping) blockLastIndex(blockIdx int) uint64 {
	return m.blocks[blockIdx].logicalStart + m.blockLength(blockIdx) - 1
}

// FindBlockIndex returns the index of the block containing logicalIdx,
// and false if logicalIdx falls in an unset gap.
func (m *blockMapping) FindBlockIndex(logicalIdx uint64) (int, bool) {
	n := len(m.blocks)
	if n == 0 {
		return 0, false
	}
	idx := sort.Search(n, func(i int) bool {
		return m.blocks[i].logicalStart > logicalIdx
	}) - 1
	if idx < 0 {
		return 0, false
	}
	if logicalIdx > m.blockLastIndex(idx) {
		return 0, false
	}
	return idx, true
}

// FindDataIndex finds the packed data index for logicalIdx, consulting
// *hint first, then hint+1, before falling back to a binary search (the
// teacher-independent, spec-mandated hint-then-next-then-bisect order,
// grounded on compressedIndexMapping.cpp's FindDataIndex). *hint is
// updated to the block that served the lookup.
func (m *blockMapping) FindDataIndex(logicalIdx uint64, hint *int) (uint64, bool) {
	if h := *hint; h >= 0 && h < len(m.blocks) && m.inBlock(h, logicalIdx) {
		return m.dataIndexInBlock(h, logicalIdx), true
	}
	if h := *hint + 1; h >= 0 && h < len(m.blocks) && m.inBlock(h, logicalIdx) {
		*hint = h
		return m.dataIndexInBlock(h, logicalIdx), true
	}
	idx, ok := m.FindBlockIndex(logicalIdx)
	if !ok {
		return 0, false
	}
	*hint = idx
	return m.dataIndexInBlock(idx, logicalIdx), true
}

func (m *blockMapping) inBlock(blockIdx int, logicalIdx uint64) bool {
	return logicalIdx >= m.blocks[blockIdx].logicalStart && logicalIdx <= m.blockLastIndex(blockIdx)
}

func (m *blockMapping) dataIndexInBlock(blockIdx int, logicalIdx uint64) uint64 {
	return m.dataStart(blockIdx) + (logicalIdx - m.blocks[blockIdx].logicalStart)
}

// ComputeStoredBits returns the Bits (of size num) with a bit set for
// every logical index represented by this mapping.
func (m *blockMapping) ComputeStoredBits(num uint64) bits.Bits {
	var indices []uint64
	for i := range m.blocks {
		start := m.blocks[i].logicalStart
		length := m.blockLength(i)
		for j := uint64(0); j < length; j++ {
			indices = append(indices, start+j)
		}
	}
	return bits.FromIndices(num, indices...)
}
