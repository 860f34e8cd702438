// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"container/heap"
	"sort"

	"code.hybscloud.com/vexec/graph"
	"code.hybscloud.com/vexec/mask"
	"code.hybscloud.com/vexec/schedule"
)

type stackItem struct {
	output graph.OutputID
	mask   mask.Mask
}

// buildState accumulates Phase 1's request-mask propagation before the
// dense Schedule arrays exist.
type buildState struct {
	net graph.Network

	order  []graph.NodeID
	seen   map[graph.NodeID]bool
	nodeOf map[graph.NodeID]graph.Node

	// outputMaskOf is the final request mask recorded for every output
	// touched during propagation, pool or not.
	outputMaskOf map[graph.OutputID]mask.Mask

	// nodeConnDeps[node][connectionIndex] is the aggregated dependency
	// mask a node's input connection contributes, keyed by the
	// connection's position in graph.Node.Inputs().
	nodeConnDeps map[graph.NodeID]map[int]mask.Mask

	poolChainIdx   map[graph.OutputID]int
	inPoolHeap     map[graph.OutputID]bool
	poolPriority   []graph.OutputID
	poolPrioritySeen map[graph.OutputID]bool

	// deferred holds batched (output, mask) pairs for high-output-count
	// nodes with no affects-mask/associated input, flushed through the
	// vectorized ComputeInputDependencyRequest.
	deferredOutputs map[graph.NodeID][]graph.OutputID
	deferredMasks   map[graph.NodeID][]mask.Mask

	requestMaskOriginal map[graph.OutputID]mask.Mask
}

func newBuildState(net graph.Network) *buildState {
	return &buildState{
		net:                 net,
		seen:                map[graph.NodeID]bool{},
		nodeOf:              map[graph.NodeID]graph.Node{},
		outputMaskOf:        map[graph.OutputID]mask.Mask{},
		nodeConnDeps:        map[graph.NodeID]map[int]mask.Mask{},
		poolChainIdx:        map[graph.OutputID]int{},
		inPoolHeap:          map[graph.OutputID]bool{},
		poolPrioritySeen:    map[graph.OutputID]bool{},
		deferredOutputs:     map[graph.NodeID][]graph.OutputID{},
		deferredMasks:       map[graph.NodeID][]mask.Mask{},
		requestMaskOriginal: map[graph.OutputID]mask.Mask{},
	}
}

func (b *buildState) ensureScheduled(nid graph.NodeID, node graph.Node) {
	if b.seen[nid] {
		return
	}
	b.seen[nid] = true
	b.nodeOf[nid] = node
	b.order = append(b.order, nid)
}

type poolHeapItem struct {
	output   graph.OutputID
	chainIdx int
}

type poolHeapQueue []poolHeapItem

func (q poolHeapQueue) Len() int            { return len(q) }
func (q poolHeapQueue) Less(i, j int) bool  { return q[i].chainIdx < q[j].chainIdx }
func (q poolHeapQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *poolHeapQueue) Push(x any)         { *q = append(*q, x.(poolHeapItem)) }
func (q *poolHeapQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// runPhase1 seeds a stack with request's masked outputs and propagates
// request masks upstream to completion (§4.5 Phase 1).
func (b *buildState) runPhase1(request Request) {
	var poolHeapQ poolHeapQueue
	stack := make([]stackItem, 0, len(request))
	for _, mo := range request {
		stack = append(stack, stackItem{output: mo.Output, mask: mo.Mask})
		prior := b.requestMaskOriginal[mo.Output]
		b.requestMaskOriginal[mo.Output] = prior.Or(mo.Mask)
	}

	drain := func() {
		for len(stack) > 0 {
			it := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b.processImmediate(it.output, it.mask, &stack, &poolHeapQ)
		}
		b.flushDeferred(&stack)
	}

	drain()
	for len(stack) > 0 {
		drain()
	}

	for poolHeapQ.Len() > 0 {
		item := heap.Pop(&poolHeapQ).(poolHeapItem)
		b.inPoolHeap[item.output] = false
		b.processPoolPop(item.output, &stack, &poolHeapQ)
		drain()
		for len(stack) > 0 {
			drain()
		}
	}

	sort.SliceStable(b.poolPriority, func(i, j int) bool {
		return b.poolChainIdx[b.poolPriority[i]] > b.poolChainIdx[b.poolPriority[j]]
	})
}

func (b *buildState) recordPoolPriority(output graph.OutputID) {
	if b.poolPrioritySeen[output] {
		return
	}
	b.poolPrioritySeen[output] = true
	b.poolPriority = append(b.poolPriority, output)
}

func (b *buildState) processImmediate(output graph.OutputID, m mask.Mask, stack *[]stackItem, poolHeapQ *poolHeapQueue) {
	node := b.net.Node(output)
	nid := node.ID()
	out := b.net.Output(output)

	if out.IsPool() {
		prior, had := b.outputMaskOf[output]
		merged := prior.Or(m)
		if had && merged.Equal(prior) {
			return
		}
		b.outputMaskOf[output] = merged
		b.ensureScheduled(nid, node)
		b.recordPoolPriority(output)
		if idx, ok := b.net.PoolChainIndex(output); ok {
			b.poolChainIdx[output] = idx
		}
		if !b.inPoolHeap[output] {
			heap.Push(poolHeapQ, poolHeapItem{output: output, chainIdx: b.poolChainIdx[output]})
			b.inPoolHeap[output] = true
		}
		return
	}

	prior, had := b.outputMaskOf[output]
	merged := prior.Or(m)
	if had && merged.Equal(prior) {
		return
	}
	b.outputMaskOf[output] = merged
	b.ensureScheduled(nid, node)

	if node.IsSpeculation() {
		return
	}
	b.pushInputDeps(nid, node, output, merged, stack)
}

// processPoolPop re-derives a popped pool output's dependencies using
// its current (possibly since-grown) request mask. Processing is
// idempotent: nothing changes if the mask hasn't grown since this
// output was last processed.
func (b *buildState) processPoolPop(output graph.OutputID, stack *[]stackItem, poolHeapQ *poolHeapQueue) {
	node := b.net.Node(output)
	nid := node.ID()
	merged, ok := b.outputMaskOf[output]
	if !ok || node.IsSpeculation() {
		return
	}
	b.pushInputDeps(nid, node, output, merged, stack)
}

func (b *buildState) pushInputDeps(nid graph.NodeID, node graph.Node, output graph.OutputID, merged mask.Mask, stack *[]stackItem) {
	out := b.net.Output(output)
	_, hasAffects := out.AffectsMask()
	_, hasAssoc := out.AssociatedInput()

	if len(node.Outputs()) > nodeOutputThreshold && !hasAffects && !hasAssoc {
		b.deferredOutputs[nid] = append(b.deferredOutputs[nid], output)
		b.deferredMasks[nid] = append(b.deferredMasks[nid], merged)
		return
	}

	for ci, conn := range node.Inputs() {
		depMask := node.ComputeInputDependencyMask(output, merged, conn)
		if !depMask.IsAnySet() {
			continue
		}
		b.recordDependency(nid, ci, depMask)
		*stack = append(*stack, stackItem{output: conn.SourceOutput, mask: depMask})
	}
}

func (b *buildState) recordDependency(nid graph.NodeID, connIdx int, depMask mask.Mask) {
	m, ok := b.nodeConnDeps[nid]
	if !ok {
		m = map[int]mask.Mask{}
		b.nodeConnDeps[nid] = m
	}
	m[connIdx] = m[connIdx].Or(depMask)
}

func (b *buildState) flushDeferred(stack *[]stackItem) {
	for nid, outs := range b.deferredOutputs {
		masks := b.deferredMasks[nid]
		if len(outs) == 0 {
			continue
		}
		node := b.nodeOf[nid]
		deps := node.ComputeInputDependencyRequest(outs, masks)
		for _, d := range deps {
			for ci, conn := range node.Inputs() {
				if conn.SourceOutput == d.Connection.SourceOutput {
					b.recordDependency(nid, ci, d.Mask)
					break
				}
			}
			*stack = append(*stack, stackItem{output: d.Connection.SourceOutput, mask: d.Mask})
		}
		delete(b.deferredOutputs, nid)
		delete(b.deferredMasks, nid)
	}
}

// buildNodes materializes the discovered nodes/outputs/inputs into
// out's dense arrays.
func (b *buildState) buildNodes(out *schedule.Schedule) {
	out.Nodes = make([]schedule.ScheduleNode, len(b.order))
	for ni, nid := range b.order {
		node := b.nodeOf[nid]
		sn := schedule.ScheduleNode{Node: nid}

		for _, o := range node.Outputs() {
			if m, ok := b.outputMaskOf[o.ID()]; ok {
				sn.Outputs = append(sn.Outputs, schedule.ScheduleOutput{
					Output:      o.ID(),
					RequestMask: m,
					UniqueIndex: schedule.Invalid,
				})
			}
		}

		conns := node.Inputs()
		deps := b.nodeConnDeps[nid]
		for ci, conn := range conns {
			if m, ok := deps[ci]; ok && m.IsAnySet() {
				sn.Inputs = append(sn.Inputs, schedule.ScheduleInput{
					Input:          ci,
					SourceOutput:   conn.SourceOutput,
					DependencyMask: m,
					ConnMask:       conn.Mask,
					Kind:           connKindToInputKind(conn.Kind),
				})
			}
		}
		out.Nodes[ni] = sn
	}

	out.PoolPriority = make([]any, len(b.poolPriority))
	for i, o := range b.poolPriority {
		out.PoolPriority[i] = o
	}
}

func connKindToInputKind(k graph.ConnectionKind) schedule.InputKind {
	switch k {
	case graph.KindPrereq:
		return schedule.InputPrereq
	case graph.KindReadWrite:
		return schedule.InputReadWrite
	default:
		return schedule.InputRead
	}
}
