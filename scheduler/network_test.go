// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler_test

import (
	"code.hybscloud.com/vexec/graph"
	"code.hybscloud.com/vexec/mask"
)

// depFunc lets a test fixture decide, per output, which of a node's
// connections it actually depends on and by how much — mirroring how a
// real node's ComputeInputDependencyMask inspects its own output-specific
// logic rather than blindly intersecting every connection's mask.
type depFunc func(output graph.OutputID, requestMask mask.Mask, conn graph.Connection) mask.Mask

type fakeOutput struct {
	id         graph.OutputID
	pool       bool
	readWrite  bool
	affects    mask.Mask
	hasAffects bool
	assoc      graph.Connection
	hasAssoc   bool
}

func (o *fakeOutput) ID() graph.OutputID                     { return o.id }
func (o *fakeOutput) AffectsMask() (mask.Mask, bool)          { return o.affects, o.hasAffects }
func (o *fakeOutput) IsPool() bool                            { return o.pool }
func (o *fakeOutput) IsReadWrite() bool                       { return o.readWrite }
func (o *fakeOutput) AssociatedInput() (graph.Connection, bool) { return o.assoc, o.hasAssoc }

type fakeNode struct {
	id          graph.NodeID
	outputs     []graph.Output
	inputs      []graph.Connection
	speculation bool
	rootValue   bool
	dep         depFunc
}

func (n *fakeNode) ID() graph.NodeID           { return n.id }
func (n *fakeNode) Outputs() []graph.Output    { return n.outputs }
func (n *fakeNode) Inputs() []graph.Connection { return n.inputs }
func (n *fakeNode) IsSpeculation() bool        { return n.speculation }
func (n *fakeNode) IsRootValue() bool          { return n.rootValue }

func (n *fakeNode) ComputeInputDependencyMask(output graph.OutputID, requestMask mask.Mask, conn graph.Connection) mask.Mask {
	if n.dep == nil {
		return requestMask.And(conn.Mask)
	}
	return n.dep(output, requestMask, conn)
}

func (n *fakeNode) ComputeInputDependencyRequest(outputs []graph.OutputID, requestMasks []mask.Mask) []graph.InputDependency {
	var deps []graph.InputDependency
	for i, o := range outputs {
		for _, conn := range n.inputs {
			d := n.ComputeInputDependencyMask(o, requestMasks[i], conn)
			if d.IsAnySet() {
				deps = append(deps, graph.InputDependency{Connection: conn, Mask: d})
			}
		}
	}
	return deps
}

type fakeNetwork struct {
	nodes        map[graph.NodeID]*fakeNode
	outputOwner  map[graph.OutputID]graph.NodeID
	outputs      map[graph.OutputID]*fakeOutput
	poolChainIdx map[graph.OutputID]int
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		nodes:        map[graph.NodeID]*fakeNode{},
		outputOwner:  map[graph.OutputID]graph.NodeID{},
		outputs:      map[graph.OutputID]*fakeOutput{},
		poolChainIdx: map[graph.OutputID]int{},
	}
}

func (nw *fakeNetwork) addNode(n *fakeNode) {
	nw.nodes[n.id] = n
	for _, o := range n.outputs {
		fo := o.(*fakeOutput)
		nw.outputOwner[fo.id] = n.id
		nw.outputs[fo.id] = fo
	}
}

func (nw *fakeNetwork) Node(output graph.OutputID) graph.Node {
	return nw.nodes[nw.outputOwner[output]]
}

func (nw *fakeNetwork) NodeByID(id graph.NodeID) graph.Node {
	return nw.nodes[id]
}

func (nw *fakeNetwork) Output(id graph.OutputID) graph.Output {
	return nw.outputs[id]
}

func (nw *fakeNetwork) PoolChainIndex(output graph.OutputID) (int, bool) {
	idx, ok := nw.poolChainIdx[output]
	return idx, ok
}

var _ graph.Network = (*fakeNetwork)(nil)
var _ graph.Node = (*fakeNode)(nil)
var _ graph.Output = (*fakeOutput)(nil)
