package scene

import (
	"github.com/tidwall/sjson"

	"github.com/lyzr/notf/errs"
	"github.com/lyzr/notf/operator"
	"github.com/lyzr/notf/path"
	"github.com/lyzr/notf/table"
	"github.com/lyzr/notf/value"
)

// Scene owns the node tree: a table of node rows hung off an operator
// runtime, rooted at a single node created by New.
type Scene struct {
	rt    *operator.Runtime
	nodes *table.Table[nodeRow]
	root  table.Handle
}

// New builds the root node from rootDescription and transitions it into its
// initial state.
func New(rt *operator.Runtime, rootDescription *Description) (*Scene, error) {
	s := &Scene{rt: rt, nodes: table.New[nodeRow]()}
	s.root = s.nodes.Insert(nodeRow{
		description:  rootDescription,
		interfaceOps: map[string]table.Handle{},
		network:      map[string]table.Handle{},
		children:     map[string]table.Handle{},
	})
	if err := s.buildInterface(s.root, rootDescription); err != nil {
		return nil, err
	}
	if err := s.TransitionInto(s.root, rootDescription.InitialState); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the scene's root node handle.
func (s *Scene) Root() table.Handle { return s.root }

// Node wraps h as a painter.NodeProxy-satisfying handle into this scene.
func (s *Scene) Node(h table.Handle) Node { return Node{scene: s, Handle: h} }

// buildInterface creates one Property operator per interface slot, External
// so it survives state transitions and (on the root) doubles as an
// externally-drivable fact.
func (s *Scene) buildInterface(node table.Handle, desc *Description) error {
	row := s.nodes.GetPtr(node)
	if row == nil {
		return errs.NewIndexError("build interface: %s is not a live node", node)
	}
	for _, slot := range desc.Interface {
		if err := path.CheckName(slot.Name); err != nil {
			return err
		}
		args, err := value.FromDenotable(value.Object{{Key: "schema", Value: value.FromSchema(slot.Schema)}})
		if err != nil {
			return errs.NewSchemaMismatch("interface slot %q: %v", slot.Name, err)
		}
		h, err := s.rt.Create("Property", args)
		if err != nil {
			return errs.NewSchemaMismatch("interface slot %q: %v", slot.Name, err)
		}
		row.interfaceOps[slot.Name] = h
		row.interfaceOrder = append(row.interfaceOrder, slot.Name)
	}
	return nil
}

// CreateChild allocates a node row under parent, builds its interface
// operators and transitions it into its initial state.
func (s *Scene) CreateChild(parent table.Handle, name string, desc *Description) (table.Handle, error) {
	if err := path.CheckName(name); err != nil {
		return table.Handle{}, err
	}
	pRow := s.nodes.GetPtr(parent)
	if pRow == nil {
		return table.Handle{}, errs.NewIndexError("create_child: parent %s is not a live node", parent)
	}
	if _, exists := pRow.children[name]; exists {
		return table.Handle{}, errs.NewKeyError("create_child: %q already names a child of %s", name, parent)
	}

	child := s.nodes.Insert(nodeRow{
		name:         name,
		description:  desc,
		parent:       parent,
		interfaceOps: map[string]table.Handle{},
		network:      map[string]table.Handle{},
		children:     map[string]table.Handle{},
	})
	if err := s.buildInterface(child, desc); err != nil {
		return table.Handle{}, err
	}

	pRow = s.nodes.GetPtr(parent)
	pRow.children[name] = child
	pRow.childOrder = append(pRow.childOrder, name)

	if err := s.TransitionInto(child, desc.InitialState); err != nil {
		return table.Handle{}, err
	}
	return child, nil
}

// TransitionInto moves node from its current state into target, tearing
// down and rebuilding every piece of state the current state owns: dynamic
// operators, layout, children, connections and design.
func (s *Scene) TransitionInto(node table.Handle, target string) error {
	row := s.nodes.GetPtr(node)
	if row == nil {
		return errs.NewIndexError("transition_into: %s is not a live node", node)
	}
	if row.state != "" && !row.description.allows(row.state, target) {
		return errs.NewStateTransitionDenied(row.state, target)
	}
	stateDesc, ok := row.description.States[target]
	if !ok {
		return errs.NewKeyError("transition_into: %q is not a state of %q", target, row.description.Name)
	}

	// Step 2: clear dynamic dependencies of the outgoing state.
	for _, child := range append([]string(nil), row.childOrder...) {
		if h, ok := row.children[child]; ok {
			if err := s.Remove(h); err != nil {
				return err
			}
		}
	}
	for _, h := range row.network {
		s.rt.Destroy(h)
	}
	row.network = map[string]table.Handle{}
	row.childOrder = nil
	row.children = map[string]table.Handle{}
	row.layout = nil
	row.claim = table.Handle{}

	// Step 3-4: enter the new state and bind its design.
	row.state = target
	row.design = stateDesc.Design

	// Step 5: create children (recursively transitions each into its own
	// initial state).
	for _, cs := range stateDesc.Children {
		if _, err := s.CreateChild(node, cs.Name, cs.Description); err != nil {
			return err
		}
	}

	// Step 6: create the layout and let it compute every child's grant from
	// the node's current size.
	row = s.nodes.GetPtr(node)
	layoutKind, layoutArgs := "", value.None
	if stateDesc.Layout != nil {
		layoutKind, layoutArgs = stateDesc.Layout.Kind, stateDesc.Layout.Args
	}
	layout, err := createLayout(layoutKind, layoutArgs)
	if err != nil {
		return errs.NewSchemaMismatch("transition_into: layout %q: %v", layoutKind, err)
	}
	row.layout = layout
	s.relayoutChildren(node)

	// Step 7: create the new state's dynamic operators.
	for _, spec := range stateDesc.Operators {
		h, err := s.rt.Create(spec.Kind, spec.Args)
		if err != nil {
			return errs.NewSchemaMismatch("transition_into: operator %q: %v", spec.Name, err)
		}
		row.network[spec.Name] = h
	}

	// Step 8-9: resolve and subscribe every connection.
	for _, conn := range stateDesc.Connections {
		source, err := s.resolveConnectionEndpoint(node, row.network, conn.Source)
		if err != nil {
			return err
		}
		sink, err := s.resolveConnectionEndpoint(node, row.network, conn.Sink)
		if err != nil {
			return err
		}
		if err := s.rt.Subscribe(source, sink); err != nil {
			return err
		}
	}

	// Step 10: record which operator holds the node's claim. Only the
	// handle is stored on the node row; no value is pushed into the
	// interface and no layout reads it.
	if stateDesc.Claim != "" {
		if h, ok := row.network[stateDesc.Claim]; ok {
			row.claim = h
		} else if h, ok := row.interfaceOps[stateDesc.Claim]; ok {
			row.claim = h
		} else {
			return errs.NewKeyError("transition_into: claim %q names neither a dynamic nor interface operator", stateDesc.Claim)
		}
	}
	return nil
}

// resolveConnectionEndpoint resolves one side of a Connection: a
// single-segment relative path with no interop suffix names a dynamic
// operator created in this state (step 7); anything else is a path against
// the scene, terminating at an interface operator.
func (s *Scene) resolveConnectionEndpoint(node table.Handle, network map[string]table.Handle, raw string) (table.Handle, error) {
	p, err := path.Parse(raw)
	if err != nil {
		return table.Handle{}, err
	}
	if _, hasInterop := p.Interop(); !hasInterop && !p.IsAbsolute() && len(p.Segments()) == 1 {
		if h, ok := network[p.Segments()[0]]; ok {
			return h, nil
		}
	}

	var target table.Handle
	if p.IsAbsolute() {
		target, err = s.GetNode(p)
	} else {
		target, err = s.GetDescendant(node, p)
	}
	if err != nil {
		return table.Handle{}, err
	}
	interopName, hasInterop := p.Interop()
	if !hasInterop {
		return table.Handle{}, errs.NewPathError("connection endpoint %q must name a dynamic operator or an interface operator", raw)
	}
	tRow := s.nodes.GetPtr(target)
	if tRow == nil {
		return table.Handle{}, errs.NewNotFound("connection endpoint %q: node no longer live", raw)
	}
	h, ok := tRow.interfaceOps[interopName]
	if !ok {
		return table.Handle{}, errs.NewNotFound("connection endpoint %q: no interface operator named %q", raw, interopName)
	}
	return h, nil
}

// relayoutChildren recomputes grants for node's current children from its
// layout and node's own last-granted size, recursing into any child whose
// grant actually changed.
func (s *Scene) relayoutChildren(node table.Handle) {
	row := s.nodes.GetPtr(node)
	if row == nil || row.layout == nil {
		return
	}
	children := make([]Grant, len(row.childOrder))
	for i, name := range row.childOrder {
		if h, ok := row.children[name]; ok {
			if cRow := s.nodes.GetPtr(h); cRow != nil {
				children[i] = cRow.grant
			}
		}
	}
	grants := row.layout.Compute(row.grant, children)
	for i, name := range row.childOrder {
		h, ok := row.children[name]
		if !ok {
			continue
		}
		cRow := s.nodes.GetPtr(h)
		if cRow == nil || i >= len(grants) {
			continue
		}
		if cRow.grant == grants[i] {
			continue // unchanged branches are skipped
		}
		cRow.grant = grants[i]
		s.relayoutChildren(h)
	}
}

// SetGrant applies an externally-driven size grant to node (the scene's own
// root, typically sized by the embedding window) and propagates it to its
// children.
func (s *Scene) SetGrant(node table.Handle, g Grant) {
	row := s.nodes.GetPtr(node)
	if row == nil || row.grant == g {
		return
	}
	row.grant = g
	s.relayoutChildren(node)
}

// Remove tears node out of the tree: unlinks it from its parent, removes
// its children depth-first, then its dynamic and interface operators, then
// the row itself.
func (s *Scene) Remove(node table.Handle) error {
	row := s.nodes.GetPtr(node)
	if row == nil {
		return errs.NewIndexError("remove: %s is not a live node", node)
	}
	if !row.parent.IsNil() {
		if pRow := s.nodes.GetPtr(row.parent); pRow != nil {
			delete(pRow.children, row.name)
			pRow.childOrder = removeName(pRow.childOrder, row.name)
		}
	}
	for _, name := range append([]string(nil), row.childOrder...) {
		if h, ok := row.children[name]; ok {
			if err := s.Remove(h); err != nil {
				return err
			}
		}
	}
	for _, h := range row.network {
		s.rt.Destroy(h)
	}
	for _, h := range row.interfaceOps {
		s.rt.Destroy(h)
	}
	s.nodes.Remove(node)
	return nil
}

// InterfaceJSON encodes node's interface operators' current values as a
// single JSON object, in declaration order — the representation httpapi's
// GET /scene/*path and the Postgres snapshot store both persist.
func (s *Scene) InterfaceJSON(node table.Handle) (string, error) {
	row := s.nodes.GetPtr(node)
	if row == nil {
		return "", errs.NewIndexError("interface_json: %s is not a live node", node)
	}
	doc := "{}"
	for _, name := range row.interfaceOrder {
		opRow, ok := s.rt.Row(row.interfaceOps[name])
		if !ok {
			continue
		}
		text, err := value.AsJSON(opRow.Value)
		if err != nil {
			return "", err
		}
		doc, err = sjson.SetRaw(doc, name, text)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

// DriveInterop emits v as Next on node's named interface operator — the
// entry point for externally driven facts, whether from httpapi's POST
// /facts/:name or the Redis fact feed.
func (s *Scene) DriveInterop(node table.Handle, name string, v value.Value) error {
	row := s.nodes.GetPtr(node)
	if row == nil {
		return errs.NewIndexError("drive_interop: %s is not a live node", node)
	}
	h, ok := row.interfaceOps[name]
	if !ok {
		return errs.NewNotFound("drive_interop: no interface operator named %q", name)
	}
	return s.rt.Emit(h, operator.Next, v)
}

// DriveFact emits v as Next on the root's named interface operator.
func (s *Scene) DriveFact(name string, v value.Value) error {
	return s.DriveInterop(s.root, name, v)
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}

// GetNode resolves an absolute path from the scene root.
func (s *Scene) GetNode(p path.Path) (table.Handle, error) {
	if !p.IsAbsolute() && len(p.Segments()) > 0 {
		return table.Handle{}, errs.NewPathError("get_node requires an absolute path")
	}
	return s.walk(s.root, p.Segments())
}

// GetDescendant resolves a path relative to from, descending ".." to the
// parent and named segments into children.
func (s *Scene) GetDescendant(from table.Handle, p path.Path) (table.Handle, error) {
	if p.IsAbsolute() {
		return s.GetNode(p)
	}
	return s.walk(from, p.Segments())
}

func (s *Scene) walk(start table.Handle, segments []string) (table.Handle, error) {
	cur := start
	for _, seg := range segments {
		row := s.nodes.GetPtr(cur)
		if row == nil {
			return table.Handle{}, errs.NewNotFound("path resolution: node no longer live")
		}
		if seg == ".." {
			if row.parent.IsNil() {
				return table.Handle{}, errs.NewNotFound("path resolution: root has no parent")
			}
			cur = row.parent
			continue
		}
		next, ok := row.children[seg]
		if !ok {
			return table.Handle{}, errs.NewNotFound("path resolution: no child named %q", seg)
		}
		cur = next
	}
	return cur, nil
}
