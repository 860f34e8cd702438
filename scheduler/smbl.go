// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"code.hybscloud.com/vexec/graph"
	"code.hybscloud.com/vexec/mask"
	"code.hybscloud.com/vexec/schedule"
)

// computeSMBL is Phase 7, sparse mung-buffer locking: walking pool
// outputs downstream-to-upstream (PoolPriority's descending chain-index
// order), fold each output's affects-mask minus everything already
// claimed by its downstream neighbors into its keep mask. Those elements
// would otherwise be silently overwritten by a later pass before a
// not-yet-run downstream reader gets to see them.
func computeSMBL(net graph.Network, out *schedule.Schedule) {
	var claimed mask.Mask
	var locked bool

	for _, po := range out.PoolPriority {
		output, ok := po.(graph.OutputID)
		if !ok {
			continue
		}
		so, found := out.FindOutput(output)
		if !found {
			continue
		}

		lock := so.AffectsMask.Sub(claimed)
		if lock.IsAnySet() {
			so.KeepMask = so.KeepMask.Or(lock)
			locked = true
		}
		claimed = claimed.Or(so.AffectsMask)
	}

	if locked {
		out.HasSMBL = true
	}
}

// refreshInvocationsForNode re-derives the task graph after
// UpdateAffectsMaskForOutput revises a single node's affects mask.
//
// A literal in-place splice of just node ni's invocation/compute-task
// slice is possible but fragile to get right without a test harness to
// lean on; Phases 5 and 6 are cheap relative to Phase 1's propagation, so
// this instead regenerates the whole task graph from the current (already
// patched) Nodes slice. Phase 7 runs separately, right after this returns,
// in UpdateAffectsMaskForOutput.
func refreshInvocationsForNode(net graph.Network, sched *schedule.Schedule, ni int) {
	_ = ni // the node-scoped entry point is kept for interface clarity; see doc comment
	_ = generateTaskGraph(net, sched, nil)
	_ = buildInputDependencyEdges(net, sched, nil)
}
