package scene

import (
	"github.com/lyzr/notf/painter"
	"github.com/lyzr/notf/table"
	"github.com/lyzr/notf/value"
)

// nodeRow is one node's table-backed state: its stable interface, the
// operators and children the current state rebuilt, and the layout that
// places those children.
type nodeRow struct {
	name        string // local name as known to parent; "" for root
	description *Description
	parent      table.Handle

	interfaceOps   map[string]table.Handle
	interfaceOrder []string

	state   string
	network map[string]table.Handle // local operator name -> handle, rebuilt every transition
	design  *painter.Design
	claim   table.Handle // operator whose value is this node's size request; zero if none

	layout     Layout
	childOrder []string
	children   map[string]table.Handle

	grant Grant // the size this node was last allotted by its parent's layout
}

// Node is a lightweight handle-carrying proxy over a node row, satisfying
// painter.NodeProxy so a node's Design can be sketched against its own live
// interface values and current layout grant.
type Node struct {
	scene  *Scene
	Handle table.Handle
}

// Interops returns the node's interface operators' current values, keyed by
// slot name, for use by a Design's Interop ValueNodes.
func (n Node) Interops() map[string]value.Value {
	row := n.scene.nodes.GetPtr(n.Handle)
	if row == nil {
		return nil
	}
	out := make(map[string]value.Value, len(row.interfaceOrder))
	for _, name := range row.interfaceOrder {
		if opRow, ok := n.scene.rt.Row(row.interfaceOps[name]); ok {
			out[name] = opRow.Value
		}
	}
	return out
}

// Grant returns the size this node was last allotted by its parent's
// layout, for use by a Design's `grant` expression variable.
func (n Node) Grant() (width, height float64) {
	row := n.scene.nodes.GetPtr(n.Handle)
	if row == nil {
		return 0, 0
	}
	return row.grant.Width, row.grant.Height
}

// Interop returns the current value of one of the node's interface slots.
func (n Node) Interop(name string) (value.Value, bool) {
	row := n.scene.nodes.GetPtr(n.Handle)
	if row == nil {
		return value.Value{}, false
	}
	h, ok := row.interfaceOps[name]
	if !ok {
		return value.Value{}, false
	}
	opRow, ok := n.scene.rt.Row(h)
	if !ok {
		return value.Value{}, false
	}
	return opRow.Value, true
}

// State returns the node's current state name.
func (n Node) State() string {
	row := n.scene.nodes.GetPtr(n.Handle)
	if row == nil {
		return ""
	}
	return row.state
}

// Design returns the node's current state's Design, or nil if that state
// declared none.
func (n Node) Design() *painter.Design {
	row := n.scene.nodes.GetPtr(n.Handle)
	if row == nil {
		return nil
	}
	return row.design
}

// Sketch evaluates the node's current Design against its own proxy,
// producing the draw list and hitboxes the painter backend consumes.
func (n Node) Sketch() (painter.Sketch, error) {
	d := n.Design()
	if d == nil {
		return painter.Sketch{}, nil
	}
	return d.Sketch(n)
}
