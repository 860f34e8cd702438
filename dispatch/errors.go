// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import "code.hybscloud.com/iox"

// ErrWouldBlock indicates the internal task queue is momentarily full.
// Callers never see this directly — Run/ParallelFor retry internally —
// but it is exposed for dispatcher-internal classification the same way
// the teacher's queues expose it.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal, not a failure.
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}
