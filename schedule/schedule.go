// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schedule holds the sealed, read-only plan a scheduler produces:
// flat arrays of nodes, outputs, inputs, and a task graph over dense
// indices, addressed without a pointer graph.
package schedule

import "code.hybscloud.com/vexec/mask"

// Invalid is the sentinel for an absent dense index.
const Invalid = -1

// ScheduleOutput is one scheduled output within a node: its request,
// affects, and keep masks, and the buffer-passing links to/from a
// neighboring output.
type ScheduleOutput struct {
	Output           any
	RequestMask      mask.Mask
	AffectsMask      mask.Mask
	KeepMask         mask.Mask
	PassToOutput     any
	HasPassTo        bool
	FromBufferOutput any
	HasFromBuffer    bool
	UniqueIndex      int // Invalid until assigned in Phase 6
}

// ScheduleInput is one scheduled input within a node: which upstream
// output it reads, the dependency mask it needs from that output, and
// the input handle itself.
type ScheduleInput struct {
	Input          any
	SourceOutput   any
	DependencyMask mask.Mask
	ConnMask       mask.Mask // the connection's own declared mask, not the computed dependency
	Kind           InputKind
}

// InputKind classifies a ScheduleInput for task-graph generation.
type InputKind uint8

const (
	InputRead InputKind = iota
	InputPrereq
	InputReadWrite
)

// ScheduleNode is one scheduled graph node.
type ScheduleNode struct {
	Node           any
	Affective      bool
	OutputToClear  any
	HasOutputClear bool
	Outputs        []ScheduleOutput
	Inputs         []ScheduleInput
}

// NodeInvocation is one strip-mined partition of a pool node's work.
type NodeInvocation struct {
	RequestMask mask.Mask
	AffectsMask mask.Mask
	KeepMask    mask.Mask
}

// TaskFlags carries the boolean attributes of a ComputeTask.
type TaskFlags struct {
	IsAffective bool
	HasKeep     bool
}

// ComputeTask is one unit of node evaluation: either a partition of a
// pool node (InvocationIndex set) or a singular non-pool node.
type ComputeTask struct {
	InvocationIndex int // Invalid for non-pool nodes
	InputsTaskIndex int // Invalid if no InputsTask
	PrepTaskIndex   int // Invalid if no prep task
	RequiredsIndex  int
	RequiredsNum    int
	Flags           TaskFlags
}

// InputsTask coordinates concurrent prereq and read-input fetching ahead
// of a compute task.
type InputsTask struct {
	InputDepIndex int
	PrereqsNum    int
	OptionalsNum  int
}

// InputDependency is one dense edge from a compute task to an upstream
// (output, mask) pair, deduplicated by UniqueIndex.
type InputDependency struct {
	UniqueIndex       int
	Output            any
	Mask              mask.Mask
	ComputeOrKeepTask int
	ComputeTaskNum    int
}

// KeepTask retains a buffer slice that is no longer affective downstream
// but must remain readable (a buffer-pass donor's keep-mask, or an SMBL
// lock).
type KeepTask struct {
	Output   any
	KeepMask mask.Mask
}

// NodeTaskRange is a node-index -> (firstTaskID, taskCount) inversion
// entry, used for nodeToComputeTasks (nodeToKeepTasks holds a single
// task id per node instead).
type NodeTaskRange struct {
	First int
	Count int
}

// Schedule is the sealed plan a Scheduler produces. All slices are owned
// by the Schedule and must not be mutated by callers; all masks are
// value-semantic and interned, so copying a Schedule's fields is cheap
// and safe.
type Schedule struct {
	Nodes       []ScheduleNode
	Invocations []NodeInvocation
	Compute     []ComputeTask
	Inputs      []InputsTask
	Deps        []InputDependency
	Keep        []KeepTask

	NodeToComputeTasks []NodeTaskRange
	NodeToKeepTasks    []int // index into Keep, Invalid if the node has no keep task

	// PoolPriority lists pool outputs in descending pool-chain-index
	// order, as populated by Phase 1 and sorted at its end.
	PoolPriority []any

	HasSMBL bool

	// Small schedules (<=32 nodes) drop the node-index map below and do
	// linear scans instead (§4.5 "Small-schedule marking").
	Small    bool
	nodeIdx  map[any]int
	outIdx   map[any]outputLocation
	outIdxOK bool
}

type outputLocation struct {
	NodeIndex   int
	OutputIndex int
}

// smallScheduleThreshold is the node count at or below which a schedule
// is marked small and its index maps are dropped in favor of linear scan.
const smallScheduleThreshold = 32

// New returns an empty, writable Schedule ready for a Scheduler to
// populate.
func New() *Schedule {
	return &Schedule{}
}

// Seal finalizes index maps once population is complete, choosing the
// small-schedule linear-scan mode when the node count is small.
func (s *Schedule) Seal() {
	if len(s.Nodes) <= smallScheduleThreshold {
		s.Small = true
		s.nodeIdx = nil
		s.outIdx = nil
		s.outIdxOK = false
		return
	}
	s.Small = false
	s.nodeIdx = make(map[any]int, len(s.Nodes))
	s.outIdx = make(map[any]outputLocation)
	for ni, n := range s.Nodes {
		s.nodeIdx[n.Node] = ni
		for oi, o := range n.Outputs {
			s.outIdx[o.Output] = outputLocation{NodeIndex: ni, OutputIndex: oi}
		}
	}
	s.outIdxOK = true
}

// NodeIndex resolves a node handle to its dense index, or -1 if the node
// is not scheduled. Small schedules scan linearly; sealed large
// schedules use the index map built by Seal.
func (s *Schedule) NodeIndex(node any) int {
	if s.outIdxOK && s.nodeIdx != nil {
		if i, ok := s.nodeIdx[node]; ok {
			return i
		}
		return Invalid
	}
	for i := range s.Nodes {
		if s.Nodes[i].Node == node {
			return i
		}
	}
	return Invalid
}

// OutputLocation resolves an output handle to its (nodeIndex,
// outputIndex) pair, or false if the output is not scheduled.
func (s *Schedule) OutputLocation(output any) (nodeIndex, outputIndex int, ok bool) {
	if s.outIdxOK && s.outIdx != nil {
		loc, found := s.outIdx[output]
		return loc.NodeIndex, loc.OutputIndex, found
	}
	for ni, n := range s.Nodes {
		for oi, o := range n.Outputs {
			if o.Output == output {
				return ni, oi, true
			}
		}
	}
	return 0, 0, false
}

// FindOutput resolves an output handle directly to its ScheduleOutput.
func (s *Schedule) FindOutput(output any) (*ScheduleOutput, bool) {
	ni, oi, ok := s.OutputLocation(output)
	if !ok {
		return nil, false
	}
	return &s.Nodes[ni].Outputs[oi], true
}

// ComputeTasksForNode returns the compute tasks scheduled for node at
// dense index ni.
func (s *Schedule) ComputeTasksForNode(ni int) []ComputeTask {
	r := s.NodeToComputeTasks[ni]
	if r.Count == 0 {
		return nil
	}
	return s.Compute[r.First : r.First+r.Count]
}

// KeepTaskForNode returns the keep task index for node at dense index
// ni, or Invalid if it has none.
func (s *Schedule) KeepTaskForNode(ni int) int {
	if ni >= len(s.NodeToKeepTasks) {
		return Invalid
	}
	return s.NodeToKeepTasks[ni]
}
