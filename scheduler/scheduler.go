// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler implements the seven-phase Schedule algorithm that
// turns a Request into a sealed, dense-indexed Schedule: request-mask
// propagation, buffer-pass planning, affects-mask application,
// pass-through skipping, strip-mined task graph generation,
// input-dependency edges, and sparse mung-buffer locking.
package scheduler

import (
	"code.hybscloud.com/vexec/diagnostics"
	"code.hybscloud.com/vexec/dispatch"
	"code.hybscloud.com/vexec/graph"
	"code.hybscloud.com/vexec/mask"
	"code.hybscloud.com/vexec/schedule"
)

// nodeOutputThreshold is the output-count above which a node with no
// affects-mask and no associated input gets its dependency computation
// batched through the vectorized ComputeInputDependencyRequest instead
// of one ComputeInputDependencyMask call per output (§4.5 Phase 1).
const nodeOutputThreshold = 100

// partitionGrain is the strip-mining partition size for pool chains.
// Tuned to be divisible by 5 (packed 5-wide transforms never straddle a
// partition) and >= 5; kept a single constant per spec §9.
const partitionGrain = 500

// Scheduler runs the Schedule algorithm against one Network.
type Scheduler struct {
	net        graph.Network
	dispatcher *dispatch.Dispatcher
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDispatcher gives the scheduler a work dispatcher for Phase 5's
// per-node task-graph fragment generation. Without one, Phase 5 runs
// single-threaded; the other phases are not parallelized (Phase 6's dedup
// map and Phase 7's downstream-to-upstream fold are both sequential by
// construction).
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(s *Scheduler) { s.dispatcher = d }
}

// New creates a Scheduler over net.
func New(net graph.Network, opts ...Option) *Scheduler {
	s := &Scheduler{net: net}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule runs the full seven-phase algorithm, populating out (which
// must be freshly constructed via schedule.New or reset).
//
// topoSort is accepted for interface parity with the collaborator
// surface named in spec §6; Request-mask propagation does not need a
// precomputed topological order (it discovers reachability via the
// stack), so topoSort is accepted but not used or checked.
func (s *Scheduler) Schedule(request Request, out *schedule.Schedule, topoSort []graph.NodeID) error {
	b := newBuildState(s.net)
	b.runPhase1(request)
	b.buildNodes(out)

	planBufferPass(s.net, out, b.requestMaskOriginal)
	applyAffectsMasks(s.net, out)
	skipPassThrough(s.net, out)

	if err := generateTaskGraph(s.net, out, s.dispatcher); err != nil {
		return err
	}
	if err := buildInputDependencyEdges(s.net, out, s.dispatcher); err != nil {
		return err
	}
	computeSMBL(s.net, out)

	out.Seal()
	return nil
}

// UpdateAffectsMaskForOutput attempts an in-place revision of sched when
// output's affects-mask changes. Phase 3 is re-applied to that node
// only; Phases 5 and 6 are regenerated for the whole schedule and Phase 7
// is re-run over every pool output. If the new
// dependency set is not a subset of what was already scheduled, the
// schedule is reported stale and the caller must reschedule from
// scratch.
func (s *Scheduler) UpdateAffectsMaskForOutput(sched *schedule.Schedule, output graph.OutputID) error {
	ni, oi, ok := sched.OutputLocation(output)
	if !ok {
		diagnostics.ReportError("scheduler.UpdateAffectsMaskForOutput", "output %v is not scheduled", output)
		return ErrStale
	}

	so := &sched.Nodes[ni].Outputs[oi]
	out := s.net.Output(output)
	affects, hasAffects := out.AffectsMask()

	var newAffects mask.Mask
	if hasAffects {
		newAffects = so.RequestMask.And(affects)
	} else {
		newAffects = so.RequestMask
	}

	if !so.RequestMask.Contains(newAffects) {
		diagnostics.ReportError("scheduler.UpdateAffectsMaskForOutput", "new affects-mask for %v is not a subset of the scheduled request mask", output)
		return ErrStale
	}

	so.AffectsMask = newAffects
	sched.Nodes[ni].Affective = computeNodeAffective(s.net, &sched.Nodes[ni])
	refreshInvocationsForNode(s.net, sched, ni)
	computeSMBL(s.net, sched)
	return nil
}
