// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"code.hybscloud.com/vexec/bits"
	"code.hybscloud.com/vexec/dispatch"
	"code.hybscloud.com/vexec/graph"
	"code.hybscloud.com/vexec/mask"
	"code.hybscloud.com/vexec/schedule"
)

// partition is a [start, end) strip of a pool chain's element range, sized
// to partitionGrain.
type partition struct {
	start, end uint64
}

// nodeTaskBuild is the task-graph fragment for one node, built with
// locally-scoped indices (0-based invocation indices, no InputsTaskIndex
// assigned yet) so it can be computed concurrently across nodes before
// being spliced into the Schedule's dense arrays in node order.
type nodeTaskBuild struct {
	invocations []schedule.NodeInvocation
	computes    []schedule.ComputeTask

	hasInputsTask bool
	inputsTask    schedule.InputsTask

	hasKeepTask bool
	keepTask    schedule.KeepTask
}

// generateTaskGraph is Phase 5: strip-mine each pool chain into
// NodeInvocations at partitionGrain, and emit one or more ComputeTasks and
// at most one InputsTask per node. Per-node fragments are independent of
// each other, so when a dispatcher is supplied the fragments are built
// concurrently; splicing them into the Schedule's dense arrays stays
// single-threaded to keep index assignment deterministic.
func generateTaskGraph(net graph.Network, out *schedule.Schedule, d *dispatch.Dispatcher) error {
	n := len(out.Nodes)
	builds := make([]nodeTaskBuild, n)

	build := func(ni int) error {
		builds[ni] = buildNodeTasksForOne(net, out, ni)
		return nil
	}

	if d != nil && n > 1 {
		if err := d.ParallelFor(n, build); err != nil {
			return err
		}
	} else {
		for ni := 0; ni < n; ni++ {
			if err := build(ni); err != nil {
				return err
			}
		}
	}

	out.Invocations = out.Invocations[:0]
	out.Compute = out.Compute[:0]
	out.Inputs = out.Inputs[:0]
	out.Keep = out.Keep[:0]
	out.NodeToComputeTasks = make([]schedule.NodeTaskRange, n)
	out.NodeToKeepTasks = make([]int, n)

	for ni, r := range builds {
		invBase := len(out.Invocations)
		out.Invocations = append(out.Invocations, r.invocations...)

		computeFirst := len(out.Compute)
		for _, ct := range r.computes {
			if ct.InvocationIndex != schedule.Invalid {
				ct.InvocationIndex += invBase
			}
			out.Compute = append(out.Compute, ct)
		}
		out.NodeToComputeTasks[ni] = schedule.NodeTaskRange{First: computeFirst, Count: len(r.computes)}

		if r.hasInputsTask {
			itIdx := len(out.Inputs)
			out.Inputs = append(out.Inputs, r.inputsTask)
			for c := computeFirst; c < len(out.Compute); c++ {
				out.Compute[c].InputsTaskIndex = itIdx
			}
		}

		if r.hasKeepTask {
			out.NodeToKeepTasks[ni] = len(out.Keep)
			out.Keep = append(out.Keep, r.keepTask)
		} else {
			out.NodeToKeepTasks[ni] = schedule.Invalid
		}
	}
	return nil
}

// buildNodeTasksForOne computes node ni's task-graph fragment. It only
// reads out.Nodes[ni] and net, so it is safe to call concurrently across
// nodes.
func buildNodeTasksForOne(net graph.Network, out *schedule.Schedule, ni int) nodeTaskBuild {
	sn := &out.Nodes[ni]
	node := net.NodeByID(sn.Node)

	var poolRequest, poolAffects, poolKeep mask.Mask
	hasPool := false
	for _, o := range node.Outputs() {
		if !o.IsPool() {
			continue
		}
		so := findScheduleOutputInNode(sn, o.ID())
		if so == nil {
			continue
		}
		hasPool = true
		poolRequest = poolRequest.Or(so.RequestMask)
		poolAffects = poolAffects.Or(so.AffectsMask)
		poolKeep = poolKeep.Or(so.KeepMask)
	}

	var r nodeTaskBuild
	if hasPool && poolRequest.IsAnySet() {
		for _, p := range occupiedPartitions(poolRequest) {
			inv := schedule.NodeInvocation{
				RequestMask: restrictToPartition(poolRequest, p),
				AffectsMask: restrictToPartition(poolAffects, p),
				KeepMask:    restrictToPartition(poolKeep, p),
			}
			r.computes = append(r.computes, schedule.ComputeTask{
				InvocationIndex: len(r.invocations),
				InputsTaskIndex: schedule.Invalid,
				PrepTaskIndex:   schedule.Invalid,
				Flags:           schedule.TaskFlags{IsAffective: sn.Affective, HasKeep: inv.KeepMask.IsAnySet()},
			})
			r.invocations = append(r.invocations, inv)
		}
	} else {
		r.computes = append(r.computes, schedule.ComputeTask{
			InvocationIndex: schedule.Invalid,
			InputsTaskIndex: schedule.Invalid,
			PrepTaskIndex:   schedule.Invalid,
			Flags:           schedule.TaskFlags{IsAffective: sn.Affective, HasKeep: anyOutputHasKeep(sn)},
		})
	}

	prereqs, reads := classifyInputs(sn)
	if sn.Affective && len(prereqs) > 0 && len(reads) > 0 {
		r.hasInputsTask = true
		r.inputsTask = schedule.InputsTask{
			InputDepIndex: schedule.Invalid,
			PrereqsNum:    len(prereqs),
			OptionalsNum:  len(reads),
		}
	}

	for _, so := range sn.Outputs {
		if so.KeepMask.IsAnySet() {
			r.hasKeepTask = true
			r.keepTask = schedule.KeepTask{Output: so.Output, KeepMask: so.KeepMask}
			break
		}
	}

	return r
}

func findScheduleOutputInNode(sn *schedule.ScheduleNode, output any) *schedule.ScheduleOutput {
	for i := range sn.Outputs {
		if sn.Outputs[i].Output == output {
			return &sn.Outputs[i]
		}
	}
	return nil
}

func anyOutputHasKeep(sn *schedule.ScheduleNode) bool {
	for _, so := range sn.Outputs {
		if so.KeepMask.IsAnySet() {
			return true
		}
	}
	return false
}

// classifyInputs splits a node's scheduled inputs into prereqs and reads
// for InputsTask sizing. Read/write inputs are excluded: they are served
// by the buffer-pass machinery (Phases 2 and 4), not by an InputsTask.
func classifyInputs(sn *schedule.ScheduleNode) (prereqs, reads []int) {
	for i, si := range sn.Inputs {
		switch si.Kind {
		case schedule.InputPrereq:
			prereqs = append(prereqs, i)
		case schedule.InputRead:
			reads = append(reads, i)
		}
	}
	return prereqs, reads
}

// occupiedPartitions returns the [start, end) partitions of m's size that
// overlap at least one set bit, in ascending order.
func occupiedPartitions(m mask.Mask) []partition {
	size := m.Size()
	if size == 0 {
		return nil
	}
	numPartitions := int((size + partitionGrain - 1) / partitionGrain)
	occupied := make([]bool, numPartitions)

	it := m.Bits().AllSetView()
	for it.HasNext() {
		idx := it.Next()
		occupied[int(idx/partitionGrain)] = true
	}

	var parts []partition
	for i := 0; i < numPartitions; i++ {
		if !occupied[i] {
			continue
		}
		lo := uint64(i) * partitionGrain
		hi := lo + partitionGrain
		if hi > size {
			hi = size
		}
		parts = append(parts, partition{start: lo, end: hi})
	}
	return parts
}

// restrictToPartition returns m with every bit outside [p.start, p.end)
// cleared.
func restrictToPartition(m mask.Mask, p partition) mask.Mask {
	size := m.Size()
	if size == 0 {
		return m
	}
	b := bits.New(size)
	for i := p.start; i < p.end; i++ {
		b = b.Set(i)
	}
	return m.And(mask.New(b))
}

// depKey dedups InputDependency edges by the (output, mask) pair they
// name, per §4.5 Phase 6.
type depKey struct {
	output any
	mask   mask.Mask
}

// buildInputDependencyEdges is Phase 6: record one InputDependency per
// scheduled input, pointing back at the compute-task range that needs it.
// Inputs naming the same (sourceOutput, dependencyMask) pair each get
// their own edge, and those edges share a UniqueIndex.
func buildInputDependencyEdges(net graph.Network, out *schedule.Schedule, d *dispatch.Dispatcher) error {
	seen := make(map[depKey]int)
	next := 0

	out.Deps = out.Deps[:0]
	for ni := range out.Nodes {
		sn := &out.Nodes[ni]
		r := out.NodeToComputeTasks[ni]

		for ii := range sn.Inputs {
			si := &sn.Inputs[ii]
			if !si.DependencyMask.IsAnySet() {
				continue
			}
			key := depKey{output: si.SourceOutput, mask: si.DependencyMask}
			uid, ok := seen[key]
			if !ok {
				uid = next
				next++
				seen[key] = uid
				if dso, found := out.FindOutput(si.SourceOutput); found && dso.UniqueIndex == schedule.Invalid {
					dso.UniqueIndex = uid
				}
			}
			out.Deps = append(out.Deps, schedule.InputDependency{
				UniqueIndex:       uid,
				Output:            si.SourceOutput,
				Mask:              si.DependencyMask,
				ComputeOrKeepTask: r.First,
				ComputeTaskNum:    r.Count,
			})
		}
	}
	return nil
}
