// Package scene implements the Node tree that the operator graph's
// dynamic behavior hangs off of: state-machine-driven node lifecycles,
// interface operators, per-state operator networks and connections,
// layout, and path resolution against the tree.
package scene

import (
	"github.com/lyzr/notf/painter"
	"github.com/lyzr/notf/value"
)

// InterfaceSlot is one named, typed surface a Node exposes to the rest of
// the scene regardless of its current state — its stable input/output/
// property interface.
type InterfaceSlot struct {
	Name   string
	Schema value.Schema
}

// OperatorSpec names one operator a state creates, keyed by a name local
// to that state.
type OperatorSpec struct {
	Name string
	Kind string
	Args value.Value
}

// ChildSpec names one child node a state creates.
type ChildSpec struct {
	Name        string
	Description *Description
}

// Connection is one (source, sink) pair to subscribe when a state is
// entered. Each side is a Path string: a single relative segment names a
// dynamic operator created by this state (OperatorSpec.Name); anything
// else resolves against the scene the way Path grammar describes
// (absolute paths from the root, relative paths descending from this
// node), optionally addressing an interface operator via the `|interop`
// suffix.
type Connection struct {
	Source string
	Sink   string
}

// LayoutSpec names which registered Layout a state instantiates and with
// what constructor arguments.
type LayoutSpec struct {
	Kind string
	Args value.Value
}

// StateDescription is everything a state rebuilds when entered: the
// dynamic operator network, its internal and cross-node connections, the
// child nodes it owns, its layout, and its paintable design. Claim names
// the dynamic-or-interface operator recorded as this node's claim; the
// parent's layout does not read it.
type StateDescription struct {
	Operators   []OperatorSpec
	Connections []Connection
	Children    []ChildSpec
	Layout      *LayoutSpec
	Design      *painter.Design
	Claim       string
}

// Description is a node type: its stable interface, its state table, and
// which state transitions are allowed.
type Description struct {
	Name         string
	Interface    []InterfaceSlot
	States       map[string]*StateDescription
	InitialState string
	// Transitions lists every (from, to) pair this description permits.
	// An entry with an empty "from" permits entering "to" from any state,
	// including the node's very first transition out of "".
	Transitions map[[2]string]bool
}

// allows reports whether moving from `from` to `to` is permitted. The
// node's first transition (from == "") is always permitted regardless of
// the transition table, matching create_child always being able to reach
// InitialState.
func (d *Description) allows(from, to string) bool {
	if from == "" {
		return true
	}
	if d.Transitions[[2]string{from, to}] {
		return true
	}
	return d.Transitions[[2]string{"", to}]
}
