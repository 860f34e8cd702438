// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import "errors"

// ErrStale indicates UpdateAffectsMaskForOutput could not revise the
// schedule in place (the new dependency set escaped what was already
// scheduled) and the caller must reschedule from scratch.
//
// ErrStale is a control-flow signal, not a failure: the caller should
// call Scheduler.Schedule again rather than treat it as an error to
// surface.
var ErrStale = errors.New("scheduler: schedule is stale, reschedule required")

// ErrSizeMismatch indicates a mask-size disagreement during schedule
// construction (e.g. a connection mask whose size does not match its
// source output).
var ErrSizeMismatch = errors.New("scheduler: mask size mismatch")

// ErrNoGain indicates a buffer-pass candidate was rejected because
// passing the buffer would not free any elements (the keep mask would
// equal the full request mask).
var ErrNoGain = errors.New("scheduler: buffer pass would yield no gain")

// IsSemantic reports whether err is one of this package's control-flow
// signals rather than an unexpected failure.
func IsSemantic(err error) bool {
	return errors.Is(err, ErrStale) || errors.Is(err, ErrSizeMismatch) || errors.Is(err, ErrNoGain)
}
