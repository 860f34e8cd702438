// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package graph declares the collaborator interfaces the scheduler
// consumes from a dataflow network: nodes, outputs, connections, and the
// precomputed pool-chain order. The scheduler package never constructs or
// mutates a graph; it only walks one through these interfaces.
package graph

import "code.hybscloud.com/vexec/mask"

// OutputID identifies an output within a Network. Networks are free to
// back it with a pointer, a dense index, or anything with value
// semantics and equality.
type OutputID any

// NodeID identifies a node within a Network.
type NodeID any

// ConnectionKind classifies an input connection for task-graph
// generation: whether it must be fetched before the node callback runs
// at all (Prereq), is read during the callback but only conditionally
// required (Read), or is a mutable read/write buffer pass-through
// (ReadWrite).
type ConnectionKind uint8

const (
	KindRead ConnectionKind = iota
	KindPrereq
	KindReadWrite
)

// Connection is one input's link to an upstream output, carrying the
// connection-local mask describing which elements of that output this
// input consumes.
type Connection struct {
	SourceOutput OutputID
	Mask         mask.Mask
	Kind         ConnectionKind
}

// InputDependency is one (connection, mask) contribution an output
// requires from an upstream connection given its own current request
// mask.
type InputDependency struct {
	Connection Connection
	Mask       mask.Mask
}

// Output is a single typed output slot on a Node.
type Output interface {
	ID() OutputID

	// AffectsMask returns the output's affects-mask and whether it has
	// one at all. An output with no affects-mask is treated as
	// affecting every element it is asked about.
	AffectsMask() (mask.Mask, bool)

	// IsPool reports whether this output carries an affects-mask subset
	// and participates in pool-chain strip-mining.
	IsPool() bool

	// IsReadWrite reports whether this is a read/write output (the node
	// callback may write to it regardless of external request).
	IsReadWrite() bool

	// AssociatedInput returns the input this output passes its buffer
	// through from, if any (buffer-passing, §4.2 "Merging discipline").
	AssociatedInput() (Connection, bool)
}

// Node is a single scheduled-or-schedulable graph node.
type Node interface {
	ID() NodeID

	// Outputs lists this node's outputs in a stable order.
	Outputs() []Output

	// Inputs lists this node's input connections in declaration order.
	Inputs() []Connection

	// IsSpeculation reports whether this is a self-cycle-inducing
	// speculation node, which request-mask propagation never traverses
	// through (§4.5 Phase 1).
	IsSpeculation() bool

	// IsRootValue reports whether this node is a root-value node: it
	// stays not-affective and is skipped at run time, though its
	// outputs remain scheduled.
	IsRootValue() bool

	// ComputeInputDependencyMask returns the mask this node requires
	// from conn given that output currently carries requestMask.
	ComputeInputDependencyMask(output OutputID, requestMask mask.Mask, conn Connection) mask.Mask

	// ComputeInputDependencyRequest is the vectorized form used for
	// nodes with many outputs and no affects-mask or associated input
	// (§4.5 Phase 1, NODE_OUTPUT_THRESHOLD batching).
	ComputeInputDependencyRequest(outputs []OutputID, requestMasks []mask.Mask) []InputDependency
}

// Network resolves outputs/nodes and the precomputed pool-chain order.
type Network interface {
	Node(output OutputID) Node
	NodeByID(id NodeID) Node
	Output(id OutputID) Output

	// PoolChainIndex returns output's position in the precomputed
	// downstream-first pool-chain order, and whether it participates in
	// one at all.
	PoolChainIndex(output OutputID) (int, bool)
}

// Executor is the evaluation-time collaborator: it supplies live vector
// values for inputs and writable buffers for outputs, and reports
// scheduling status back to the core.
type Executor interface {
	GetInputValue(conn Connection, m mask.Mask) any
	GetOutputValueForWriting(output OutputID) any
	IsScheduled(output OutputID) bool
	IsRequired(output OutputID) bool
}
