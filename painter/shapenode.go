package painter

// Shape is the evaluated output of a ShapeNode: a flattened list of
// primitive shapes ready for the rasterizer backend (out of scope here).
type Shape struct {
	Kind         string // "rounded_rect"
	X, Y         float64
	Width        float64
	Height       float64
	CornerRadius float64
}

// ShapeNode produces a list of Shapes for a given evaluation generation.
type ShapeNode interface {
	Evaluate(gen uint64, proxy NodeProxy) ([]Shape, error)
}

// roundedRectNode is the five-ValueNode RoundedRect(x, y, w, h, r) shape.
type roundedRectNode struct {
	x, y, w, h, r ValueNode
}

// RoundedRect builds a single-rectangle ShapeNode from five ValueNodes.
func RoundedRect(x, y, w, h, r ValueNode) ShapeNode {
	return &roundedRectNode{x: x, y: y, w: w, h: h, r: r}
}

func (n *roundedRectNode) Evaluate(gen uint64, proxy NodeProxy) ([]Shape, error) {
	x, err := n.x.Evaluate(gen, proxy)
	if err != nil {
		return nil, err
	}
	y, err := n.y.Evaluate(gen, proxy)
	if err != nil {
		return nil, err
	}
	w, err := n.w.Evaluate(gen, proxy)
	if err != nil {
		return nil, err
	}
	h, err := n.h.Evaluate(gen, proxy)
	if err != nil {
		return nil, err
	}
	r, err := n.r.Evaluate(gen, proxy)
	if err != nil {
		return nil, err
	}
	return []Shape{{
		Kind:         "rounded_rect",
		X:            x.Number(),
		Y:            y.Number(),
		Width:        w.Number(),
		Height:       h.Number(),
		CornerRadius: r.Number(),
	}}, nil
}

// constantShapeNode always evaluates to the same fixed shape list.
type constantShapeNode struct{ shapes []Shape }

// ConstantShape wraps a fixed shape list as a ShapeNode.
func ConstantShape(shapes []Shape) ShapeNode { return &constantShapeNode{shapes: shapes} }

func (n *constantShapeNode) Evaluate(uint64, NodeProxy) ([]Shape, error) { return n.shapes, nil }
