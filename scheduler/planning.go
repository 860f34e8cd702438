// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"code.hybscloud.com/vexec/graph"
	"code.hybscloud.com/vexec/mask"
	"code.hybscloud.com/vexec/schedule"
)

type passCandidate struct {
	downstreamNode   graph.Node
	downstreamOutput graph.OutputID
	conn             graph.Connection
}

// planBufferPass is Phase 2: for every scheduled, non-root-value node,
// choose which outgoing read/write connection each output donates its
// write buffer to, and compute the keep mask covering what must remain
// readable after donation.
//
// Per spec §9 ("Open questions"), the choice is by the outgoing
// connection's own declared mask popcount, not by the computed
// dependency-mask popcount — preserved as specified even though the
// source comments flag it as potentially sub-optimal.
func planBufferPass(net graph.Network, out *schedule.Schedule, requestMaskOriginal map[graph.OutputID]mask.Mask) {
	candidatesBySource := map[graph.OutputID][]passCandidate{}
	for _, sn := range out.Nodes {
		node := net.NodeByID(sn.Node)
		for _, o := range node.Outputs() {
			if !o.IsReadWrite() {
				continue
			}
			conn, ok := o.AssociatedInput()
			if !ok {
				continue
			}
			candidatesBySource[conn.SourceOutput] = append(candidatesBySource[conn.SourceOutput], passCandidate{
				downstreamNode:   node,
				downstreamOutput: o.ID(),
				conn:             conn,
			})
		}

		// Every read/write output is marked requested regardless of
		// external request: union of its incoming connection mask.
		for _, o := range node.Outputs() {
			if !o.IsReadWrite() {
				continue
			}
			if _, already := out.FindOutput(o.ID()); already {
				continue
			}
			conn, ok := o.AssociatedInput()
			if !ok {
				continue
			}
			appendScheduledOutput(out, sn.Node, schedule.ScheduleOutput{
				Output:      o.ID(),
				RequestMask: conn.Mask,
				UniqueIndex: schedule.Invalid,
			})
		}
	}

	for ni := range out.Nodes {
		node := net.NodeByID(out.Nodes[ni].Node)
		if node.IsRootValue() {
			continue
		}
		for oi := range out.Nodes[ni].Outputs {
			so := &out.Nodes[ni].Outputs[oi]
			cands := candidatesBySource[so.Output]
			if len(cands) == 0 {
				continue
			}

			bestIdx := 0
			for i := 1; i < len(cands); i++ {
				if cands[i].conn.Mask.Popcount() > cands[bestIdx].conn.Mask.Popcount() {
					bestIdx = i
				}
			}

			var keep mask.Mask
			for i, c := range cands {
				if i == bestIdx {
					continue
				}
				downstreamReq := out.Nodes[ni].Outputs[oi].RequestMask
				if dso, ok := out.FindOutput(c.downstreamOutput); ok {
					downstreamReq = dso.RequestMask
				}
				depMask := c.downstreamNode.ComputeInputDependencyMask(c.downstreamOutput, downstreamReq, c.conn)
				keep = keep.Or(depMask.And(so.RequestMask))
			}

			if keep.Equal(so.RequestMask) {
				continue // ErrNoGain: passing would free nothing
			}
			so.PassToOutput = cands[bestIdx].downstreamOutput
			so.HasPassTo = true
			so.KeepMask = keep
		}
	}

	for output, m := range requestMaskOriginal {
		if so, ok := out.FindOutput(output); ok {
			so.KeepMask = so.KeepMask.Or(m)
		}
	}
}

func appendScheduledOutput(out *schedule.Schedule, nid any, so schedule.ScheduleOutput) {
	for ni := range out.Nodes {
		if out.Nodes[ni].Node == nid {
			out.Nodes[ni].Outputs = append(out.Nodes[ni].Outputs, so)
			return
		}
	}
}

// applyAffectsMasks is Phase 3.
func applyAffectsMasks(net graph.Network, out *schedule.Schedule) {
	for ni := range out.Nodes {
		applyAffectsMasksForNode(net, &out.Nodes[ni])
	}
}

func applyAffectsMasksForNode(net graph.Network, sn *schedule.ScheduleNode) {
	for oi := range sn.Outputs {
		so := &sn.Outputs[oi]
		o := net.Output(so.Output)
		_, hasAssoc := o.AssociatedInput()
		if !hasAssoc {
			continue
		}
		affects, hasAffects := o.AffectsMask()
		if hasAffects {
			so.AffectsMask = so.RequestMask.And(affects)
		} else {
			so.AffectsMask = so.RequestMask
		}
	}
	sn.Affective = computeNodeAffective(net, sn)
}

func computeNodeAffective(net graph.Network, sn *schedule.ScheduleNode) bool {
	node := net.NodeByID(sn.Node)
	if node.IsRootValue() {
		return false
	}
	for _, so := range sn.Outputs {
		o := net.Output(so.Output)
		_, hasAssoc := o.AssociatedInput()
		if !hasAssoc || so.AffectsMask.IsAnySet() {
			return true
		}
	}
	return false
}

// skipPassThrough is Phase 4: for each pool-chain branch in descending
// chain-index order, find the nearest affective upstream output and
// record a direct fromBufferOutput/passToOutput link, skipping the
// intervening no-op chain.
func skipPassThrough(net graph.Network, out *schedule.Schedule) {
	for _, po := range out.PoolPriority {
		output := po.(graph.OutputID)
		so, ok := out.FindOutput(output)
		if !ok || !so.HasPassTo {
			continue
		}
		nearest, nearestOK := findNearestAffectiveUpstream(net, out, output)
		if !nearestOK || nearest == output {
			continue // the walk didn't advance past output itself: nothing to skip
		}
		// output (the downstream end) now gets its buffer from nearest
		// directly, bypassing the intervening no-op run.
		so.FromBufferOutput = nearest
		so.HasFromBuffer = true

		// nearest (the upstream end found) redirects its own donation to
		// output, but only if it already had one to redirect.
		if nso, ok := out.FindOutput(nearest); ok && nso.HasPassTo {
			nso.PassToOutput = output
		}
	}
}

// findNearestAffectiveUpstream walks the pass-to chain starting at
// output until it finds an affective output, or a condition that must
// stop the walk: no associated input, an all-zero incoming connection,
// a non-empty affects-mask, a non-empty keep-mask, any scheduled read,
// the chain converging (the next associated output has more than one
// read/write fan-in), or an upstream source that is not scheduled.
func findNearestAffectiveUpstream(net graph.Network, out *schedule.Schedule, output graph.OutputID) (graph.OutputID, bool) {
	cur := output
	for {
		so, ok := out.FindOutput(cur)
		if !ok {
			return nil, false
		}
		ni, _, _ := out.OutputLocation(cur)
		if out.Nodes[ni].Affective {
			return cur, true
		}
		o := net.Output(cur)
		conn, hasAssoc := o.AssociatedInput()
		if !hasAssoc || !conn.Mask.IsAnySet() || so.AffectsMask.IsAnySet() || so.KeepMask.IsAnySet() {
			return cur, true
		}
		for _, sn := range out.Nodes {
			for _, si := range sn.Inputs {
				if si.SourceOutput == cur && si.Kind != schedule.InputReadWrite {
					return cur, true
				}
			}
		}
		if countReadWriteFanIn(net, out, conn.SourceOutput) > 1 {
			return cur, true
		}
		if _, sourceScheduled := out.FindOutput(conn.SourceOutput); !sourceScheduled {
			return cur, true
		}
		cur = conn.SourceOutput
	}
}

func countReadWriteFanIn(net graph.Network, out *schedule.Schedule, output graph.OutputID) int {
	count := 0
	for _, sn := range out.Nodes {
		node := net.NodeByID(sn.Node)
		for _, o := range node.Outputs() {
			if !o.IsReadWrite() {
				continue
			}
			conn, ok := o.AssociatedInput()
			if ok && conn.SourceOutput == output {
				count++
			}
		}
	}
	return count
}
